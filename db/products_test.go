package db

import (
	"testing"

	"github.com/everestpanel/billing-backend/internal"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
)

func TestSetProduct(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// updating a non existing product is refused
	_, err := testDB.SetProduct(&Product{ID: 100, Name: testProductName})
	c.Assert(err, qt.Equals, ErrInvalidData)
	// create a new product
	categoryUUID := uuid.NewString()
	id, err := testDB.SetProduct(&Product{
		Name:         testProductName,
		Description:  "2GB memory, 1 vCPU",
		Price:        internal.AmountFromFloat(9.99),
		CategoryUUID: categoryUUID,
		Limits: ProductLimits{
			CPU:    100,
			Memory: 2048,
			Disk:   10240,
		},
		EggID:   5,
		Visible: true,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint64(1))
	// update the existing product, hiding it from the storefront
	product, err := testDB.Product(id)
	c.Assert(err, qt.IsNil)
	c.Assert(product.Price.String(), qt.Equals, "9.99")
	product.Visible = false
	product.Price = internal.AmountFromFloat(12.49)
	_, err = testDB.SetProduct(product)
	c.Assert(err, qt.IsNil)
	product, err = testDB.Product(id)
	c.Assert(err, qt.IsNil)
	c.Assert(product.Visible, qt.IsFalse)
	c.Assert(product.Price.String(), qt.Equals, "12.49")
	c.Assert(product.Limits.Memory, qt.Equals, 2048)
}

func TestProductsByCategory(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	categoryUUID := uuid.NewString()
	otherUUID := uuid.NewString()
	// two visible products and one hidden in the category, one elsewhere
	for _, p := range []*Product{
		{Name: "Basic", CategoryUUID: categoryUUID, Visible: true},
		{Name: "Premium", CategoryUUID: categoryUUID, Visible: true},
		{Name: "Legacy", CategoryUUID: categoryUUID, Visible: false},
		{Name: "Other", CategoryUUID: otherUUID, Visible: true},
	} {
		_, err := testDB.SetProduct(p)
		c.Assert(err, qt.IsNil)
	}
	// all products of the category
	products, err := testDB.ProductsByCategory(categoryUUID, false)
	c.Assert(err, qt.IsNil)
	c.Assert(products, qt.HasLen, 3)
	// only the visible ones
	products, err = testDB.ProductsByCategory(categoryUUID, true)
	c.Assert(err, qt.IsNil)
	c.Assert(products, qt.HasLen, 2)
	// unknown category
	products, err = testDB.ProductsByCategory(uuid.NewString(), false)
	c.Assert(err, qt.IsNil)
	c.Assert(products, qt.HasLen, 0)
}

func TestDelProduct(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	id, err := testDB.SetProduct(&Product{Name: testProductName})
	c.Assert(err, qt.IsNil)
	c.Assert(testDB.DelProduct(id), qt.IsNil)
	_, err = testDB.Product(id)
	c.Assert(err, qt.Equals, ErrNotFound)
}
