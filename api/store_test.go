package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/internal"
	qt "github.com/frankban/quicktest"
)

// testStorefront helper function seeds a visible category with a visible
// product and returns the category UUID.
func testStorefront(t *testing.T) string {
	categoryUUID, err := testDB.SetCategory(&db.Category{
		Name:    "Minecraft",
		NestID:  1,
		Visible: true,
	})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	if _, err := testDB.SetProduct(&db.Product{
		Name:         "Starter",
		Description:  "2GB of memory",
		Price:        internal.AmountFromFloat(9.99),
		CategoryUUID: categoryUUID,
		Limits:       db.ProductLimits{CPU: 100, Memory: 2048, Disk: 10240},
		EggID:        1,
		Visible:      true,
	}); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return categoryUUID
}

func TestStoreCategoriesHandler(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			c.Logf("error resetting test database: %v", err)
		}
	}()

	// empty storefront is refused and recorded as an exception
	resp, code := testRequest(t, http.MethodGet, "", nil, storeCategoriesEndpoint)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(string(resp), qt.Equals, string(mustMarshal(errors.ErrStorefrontEmpty)))
	exceptions, err := testDB.BillingExceptions(db.ExceptionTypeStorefront)
	c.Assert(err, qt.IsNil)
	c.Assert(exceptions, qt.HasLen, 1)

	// a hidden category with a visible product stays out of the storefront
	categoryUUID := testStorefront(t)
	hiddenUUID, err := testDB.SetCategory(&db.Category{
		Name:    "Hidden",
		NestID:  2,
		Visible: false,
	})
	c.Assert(err, qt.IsNil)
	_, err = testDB.SetProduct(&db.Product{
		Name:         "Secret",
		Price:        internal.AmountFromFloat(4.99),
		CategoryUUID: hiddenUUID,
		Visible:      true,
	})
	c.Assert(err, qt.IsNil)

	resp, code = testRequest(t, http.MethodGet, "", nil, storeCategoriesEndpoint)
	c.Assert(code, qt.Equals, http.StatusOK)
	var storefront []*apicommon.CategoryWithProducts
	c.Assert(json.Unmarshal(resp, &storefront), qt.IsNil)
	c.Assert(storefront, qt.HasLen, 1)
	c.Assert(storefront[0].Category.UUID, qt.Equals, categoryUUID)
	c.Assert(storefront[0].Products, qt.HasLen, 1)
	c.Assert(storefront[0].Products[0].Name, qt.Equals, "Starter")
}

func TestStoreCategoryProductsHandler(t *testing.T) {
	c := qt.New(t)
	defer func() {
		if err := testDB.Reset(); err != nil {
			c.Logf("error resetting test database: %v", err)
		}
	}()
	categoryUUID := testStorefront(t)

	// unknown category
	resp, code := testRequest(t, http.MethodGet, "", nil, "/store/categories/unknown/products")
	c.Assert(code, qt.Equals, http.StatusNotFound)
	c.Assert(string(resp), qt.Equals, string(mustMarshal(errors.ErrCategoryNotFound)))

	// hidden category behaves as missing
	hiddenUUID, err := testDB.SetCategory(&db.Category{
		Name:    "Hidden",
		NestID:  2,
		Visible: false,
	})
	c.Assert(err, qt.IsNil)
	_, code = testRequest(t, http.MethodGet, "", nil, "/store/categories/", hiddenUUID, "/products")
	c.Assert(code, qt.Equals, http.StatusNotFound)

	// visible category lists only visible products
	_, err = testDB.SetProduct(&db.Product{
		Name:         "Hidden plan",
		Price:        internal.AmountFromFloat(19.99),
		CategoryUUID: categoryUUID,
		Visible:      false,
	})
	c.Assert(err, qt.IsNil)
	resp, code = testRequest(t, http.MethodGet, "", nil, "/store/categories/", categoryUUID, "/products")
	c.Assert(code, qt.Equals, http.StatusOK)
	var products []*db.Product
	c.Assert(json.Unmarshal(resp, &products), qt.IsNil)
	c.Assert(products, qt.HasLen, 1)
	c.Assert(products[0].Name, qt.Equals, "Starter")
}
