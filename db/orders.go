package db

import (
	"context"
	"errors"
	"time"

	"github.com/everestpanel/billing-backend/internal/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextOrderID internal method returns the next available order ID. This
// method must be called with the keysLock held.
func (ms *MongoStorage) nextOrderID(ctx context.Context) (uint64, error) {
	var order Order
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := ms.orders.FindOne(ctx, bson.M{}, opts).Decode(&order); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return order.ID + 1, nil
}

// SetOrder method creates the order in the database. The unique index on
// paymentIntentID makes a duplicate intent insert fail with ErrDuplicateKey.
func (ms *MongoStorage) SetOrder(order *Order) (uint64, error) {
	if order.PaymentIntentID == "" || !IsValidOrderStatus(order.Status) {
		return 0, ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nextID, err := ms.nextOrderID(ctx)
	if err != nil {
		return 0, err
	}
	order.ID = nextID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	if _, err := ms.orders.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, ErrDuplicateKey
		}
		return 0, err
	}
	return order.ID, nil
}

// Order method returns the order with the given ID. If the order doesn't
// exist, it returns the specific error.
func (ms *MongoStorage) Order(orderID uint64) (*Order, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	order := &Order{}
	if err := ms.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(order); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get order")
	}
	return order, nil
}

// OrderByPaymentIntent method returns the order bound to the given payment
// intent ID. The unique index guarantees at most one match.
func (ms *MongoStorage) OrderByPaymentIntent(intentID string) (*Order, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	order := &Order{}
	if err := ms.orders.FindOne(ctx, bson.M{"paymentIntentID": intentID}).Decode(order); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get order")
	}
	return order, nil
}

// LastOrderByUser method returns the most recently created order of the user.
func (ms *MongoStorage) LastOrderByUser(userID uint64) (*Order, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	order := &Order{}
	if err := ms.orders.FindOne(ctx, bson.M{"userID": userID}, opts).Decode(order); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get order")
	}
	return order, nil
}

// SetOrderStatus method moves the order to the given status. Status
// transitions are monotonic: once an order reached a terminal status the
// update is refused with ErrTerminalStatus.
func (ms *MongoStorage) SetOrderStatus(orderID uint64, status OrderStatus) error {
	if !IsValidOrderStatus(status) {
		return ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// the filter excludes terminal statuses so a concurrent double-submit
	// cannot flip a processed order
	filter := bson.M{
		"_id":    orderID,
		"status": bson.M{"$nin": bson.A{OrderStatusProcessed, OrderStatusFailed, OrderStatusExpired}},
	}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}
	res, err := ms.orders.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// distinguish a missing order from a terminal one
		count, err := ms.orders.CountDocuments(ctx, bson.M{"_id": orderID})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrTerminalStatus
	}
	return nil
}

// OrdersFilter narrows and paginates the Orders listing. Zero values are
// ignored.
type OrdersFilter struct {
	UserID    uint64
	Status    OrderStatus
	IsRenewal *bool
	Page      int
	PerPage   int
	// SortDesc sorts by creation time descending when true.
	SortDesc bool
}

// Orders method returns a page of orders matching the filter and the total
// number of matches.
func (ms *MongoStorage) Orders(filter OrdersFilter) ([]*Order, int64, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	query := bson.M{}
	if filter.UserID != 0 {
		query["userID"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.IsRenewal != nil {
		query["isRenewal"] = *filter.IsRenewal
	}
	total, err := ms.orders.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}
	sortDir := 1
	if filter.SortDesc {
		sortDir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: sortDir}, {Key: "_id", Value: sortDir}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cursor, err := ms.orders.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warnw("failed to close orders cursor", "error", err)
		}
	}()
	var orders []*Order
	for cursor.Next(ctx) {
		order := &Order{}
		if err := cursor.Decode(order); err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// DelOrder method deletes the order with the given ID, used by the admin
// bulk-cleanup tooling.
func (ms *MongoStorage) DelOrder(orderID uint64) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ms.orders.DeleteOne(ctx, bson.M{"_id": orderID})
	return err
}
