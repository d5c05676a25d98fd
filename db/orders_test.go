package db

import (
	"fmt"
	"testing"

	"github.com/everestpanel/billing-backend/internal"
	qt "github.com/frankban/quicktest"
)

func testOrder(intentID string) *Order {
	return &Order{
		Name:            testOrderName,
		UserID:          1,
		Description:     "1x Basic Plan",
		Total:           internal.AmountFromFloat(9.99),
		Currency:        testOrderCurrency,
		Status:          OrderStatusPending,
		ProductID:       1,
		PaymentIntentID: intentID,
	}
}

func TestSetOrder(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// missing payment intent ID
	order := testOrder("")
	_, err := testDB.SetOrder(order)
	c.Assert(err, qt.Equals, ErrInvalidData)
	// invalid status
	order = testOrder(testIntentID)
	order.Status = "bogus"
	_, err = testDB.SetOrder(order)
	c.Assert(err, qt.Equals, ErrInvalidData)
	// create a valid order
	order = testOrder(testIntentID)
	id, err := testDB.SetOrder(order)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))
	// a second order for the same payment intent must be refused
	dup := testOrder(testIntentID)
	_, err = testDB.SetOrder(dup)
	c.Assert(err, qt.Equals, ErrDuplicateKey)
	// a different intent gets the next sequential ID
	other := testOrder("pi_test_456")
	id, err = testDB.SetOrder(other)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(2))
}

func TestOrderByPaymentIntent(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// test not found order
	order, err := testDB.OrderByPaymentIntent(testIntentID)
	c.Assert(order, qt.IsNil)
	c.Assert(err, qt.Equals, ErrNotFound)
	// create a new order with the intent
	_, err = testDB.SetOrder(testOrder(testIntentID))
	c.Assert(err, qt.IsNil)
	// test found order
	order, err = testDB.OrderByPaymentIntent(testIntentID)
	c.Assert(err, qt.IsNil)
	c.Assert(order, qt.Not(qt.IsNil))
	c.Assert(order.PaymentIntentID, qt.Equals, testIntentID)
	c.Assert(order.Total.String(), qt.Equals, "9.99")
	c.Assert(order.Currency, qt.Equals, testOrderCurrency)
	// fetch the same order by ID
	byID, err := testDB.Order(order.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(byID.PaymentIntentID, qt.Equals, testIntentID)
}

func TestLastOrderByUser(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// no orders yet
	_, err := testDB.LastOrderByUser(1)
	c.Assert(err, qt.Equals, ErrNotFound)
	// create three orders for the same user
	for i := 0; i < 3; i++ {
		order := testOrder(fmt.Sprintf("pi_test_%d", i))
		order.Name = fmt.Sprintf("order-%d", i)
		_, err := testDB.SetOrder(order)
		c.Assert(err, qt.IsNil)
	}
	// the most recent insert wins
	order, err := testDB.LastOrderByUser(1)
	c.Assert(err, qt.IsNil)
	c.Assert(order.Name, qt.Equals, "order-2")
	// a different user has no orders
	_, err = testDB.LastOrderByUser(2)
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestSetOrderStatus(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// invalid target status
	c.Assert(testDB.SetOrderStatus(1, "bogus"), qt.Equals, ErrInvalidData)
	// missing order
	c.Assert(testDB.SetOrderStatus(1, OrderStatusProcessed), qt.Equals, ErrNotFound)
	// create a pending order
	id, err := testDB.SetOrder(testOrder(testIntentID))
	c.Assert(err, qt.IsNil)
	// pending -> processed is allowed
	c.Assert(testDB.SetOrderStatus(id, OrderStatusProcessed), qt.IsNil)
	order, err := testDB.Order(id)
	c.Assert(err, qt.IsNil)
	c.Assert(order.Status, qt.Equals, OrderStatusProcessed)
	// any further transition from a terminal status is refused
	c.Assert(testDB.SetOrderStatus(id, OrderStatusFailed), qt.Equals, ErrTerminalStatus)
	c.Assert(testDB.SetOrderStatus(id, OrderStatusPending), qt.Equals, ErrTerminalStatus)
	order, err = testDB.Order(id)
	c.Assert(err, qt.IsNil)
	c.Assert(order.Status, qt.Equals, OrderStatusProcessed)
}

func TestOrders(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// create orders for two users, some of them renewals
	for i := 0; i < 6; i++ {
		order := testOrder(fmt.Sprintf("pi_test_%d", i))
		order.UserID = uint64(i%2 + 1)
		order.IsRenewal = i%3 == 0
		_, err := testDB.SetOrder(order)
		c.Assert(err, qt.IsNil)
	}
	// no filter returns everything
	orders, total, err := testDB.Orders(OrdersFilter{})
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, int64(6))
	c.Assert(orders, qt.HasLen, 6)
	// filter by user
	orders, total, err = testDB.Orders(OrdersFilter{UserID: 1})
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, int64(3))
	for _, order := range orders {
		c.Assert(order.UserID, qt.Equals, uint64(1))
	}
	// filter by renewal flag
	renewal := true
	orders, total, err = testDB.Orders(OrdersFilter{IsRenewal: &renewal})
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, int64(2))
	for _, order := range orders {
		c.Assert(order.IsRenewal, qt.IsTrue)
	}
	// pagination keeps the total but trims the page
	orders, total, err = testDB.Orders(OrdersFilter{Page: 2, PerPage: 4})
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, int64(6))
	c.Assert(orders, qt.HasLen, 2)
	// descending sort puts the last insert first
	orders, _, err = testDB.Orders(OrdersFilter{SortDesc: true})
	c.Assert(err, qt.IsNil)
	c.Assert(orders[0].PaymentIntentID, qt.Equals, "pi_test_5")
	// filter by status after flipping one order
	c.Assert(testDB.SetOrderStatus(orders[0].ID, OrderStatusProcessed), qt.IsNil)
	_, total, err = testDB.Orders(OrdersFilter{Status: OrderStatusProcessed})
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, int64(1))
}
