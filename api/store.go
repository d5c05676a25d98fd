package api

import (
	"net/http"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/internal/log"
	"github.com/go-chi/chi/v5"
)

// storeCategoriesHandler godoc
// @Summary List storefront categories
// @Description List the visible categories with their visible products
// @Tags store
// @Produce json
// @Success 200 {array} apicommon.CategoryWithProducts
// @Failure 400 {object} errors.Error "Storefront is empty"
// @Router /store/categories [get]
func (a *API) storeCategoriesHandler(w http.ResponseWriter, _ *http.Request) {
	categories, err := a.db.Categories(true)
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	storefront := []*apicommon.CategoryWithProducts{}
	for _, category := range categories {
		products, err := a.db.ProductsByCategory(category.UUID, true)
		if err != nil {
			errors.ErrInternalStorageError.WithErr(err).Write(w)
			return
		}
		if len(products) == 0 {
			continue
		}
		storefront = append(storefront, &apicommon.CategoryWithProducts{
			Category: category,
			Products: products,
		})
	}
	// an empty storefront is an operator mistake worth surfacing to admins
	if len(storefront) == 0 {
		if _, err := a.db.SetBillingException(&db.BillingException{
			Title:       "Storefront is empty",
			Description: "a storefront request found no visible categories with visible products",
			Type:        db.ExceptionTypeStorefront,
		}); err != nil {
			log.Warnw("failed to record storefront exception", "error", err)
		}
		errors.ErrStorefrontEmpty.Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, storefront)
}

// storeCategoryProductsHandler godoc
// @Summary List a category's products
// @Description List the visible products of a storefront category
// @Tags store
// @Produce json
// @Param categoryUUID path string true "Category UUID"
// @Success 200 {array} db.Product
// @Failure 404 {object} errors.Error "Category not found"
// @Router /store/categories/{categoryUUID}/products [get]
func (a *API) storeCategoryProductsHandler(w http.ResponseWriter, r *http.Request) {
	categoryUUID := chi.URLParam(r, "categoryUUID")
	if categoryUUID == "" {
		errors.ErrMalformedURLParam.Write(w)
		return
	}
	category, err := a.db.Category(categoryUUID)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrCategoryNotFound.Write(w)
			return
		}
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	if !category.Visible {
		errors.ErrCategoryNotFound.Write(w)
		return
	}
	products, err := a.db.ProductsByCategory(category.UUID, true)
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, products)
}
