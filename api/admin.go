package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/exchange"
	"github.com/go-chi/chi/v5"
)

// adminOrdersFilter builds an orders filter from the allow-listed query
// parameters. Unknown filter or sort values are refused.
func adminOrdersFilter(r *http.Request) (db.OrdersFilter, error) {
	query := r.URL.Query()
	filter := db.OrdersFilter{}
	if rawUserID := query.Get("filter[user_id]"); rawUserID != "" {
		userID, err := strconv.ParseUint(rawUserID, 10, 64)
		if err != nil {
			return filter, errors.ErrInvalidFilter.Withf("invalid user_id filter %q", rawUserID)
		}
		filter.UserID = userID
	}
	if rawStatus := query.Get("filter[status]"); rawStatus != "" {
		if !db.IsValidOrderStatus(db.OrderStatus(rawStatus)) {
			return filter, errors.ErrInvalidFilter.Withf("invalid status filter %q", rawStatus)
		}
		filter.Status = db.OrderStatus(rawStatus)
	}
	if rawRenewal := query.Get("filter[is_renewal]"); rawRenewal != "" {
		isRenewal, err := strconv.ParseBool(rawRenewal)
		if err != nil {
			return filter, errors.ErrInvalidFilter.Withf("invalid is_renewal filter %q", rawRenewal)
		}
		filter.IsRenewal = &isRenewal
	}
	switch query.Get("sort") {
	case "", "-createdAt":
		filter.SortDesc = true
	case "createdAt":
		filter.SortDesc = false
	default:
		return filter, errors.ErrInvalidFilter.Withf("invalid sort %q", query.Get("sort"))
	}
	filter.Page, filter.PerPage = apicommon.PaginationFromRequest(r)
	return filter, nil
}

// adminOrdersHandler godoc
// @Summary List all orders
// @Description List every order with optional user, status and renewal filters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param filter[user_id] query int false "Filter by user ID"
// @Param filter[status] query string false "Filter by order status"
// @Param filter[is_renewal] query bool false "Filter by renewal flag"
// @Param sort query string false "createdAt or -createdAt"
// @Success 200 {object} apicommon.OrdersResponse
// @Failure 400 {object} errors.Error "Filter or sort field not allowed"
// @Failure 404 {object} errors.Error "Filtered user does not exist"
// @Router /admin/billing/orders [get]
func (a *API) adminOrdersHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := adminOrdersFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if filter.UserID > 0 {
		if _, err := a.db.User(filter.UserID); err != nil {
			if stderrors.Is(err, db.ErrNotFound) {
				errors.ErrUserNotFound.Withf("no user with id %d", filter.UserID).Write(w)
				return
			}
			errors.ErrInternalStorageError.WithErr(err).Write(w)
			return
		}
	}
	orders, total, err := a.db.Orders(filter)
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, &apicommon.OrdersResponse{
		Orders: orders,
		Pagination: apicommon.Pagination{
			Page:    filter.Page,
			PerPage: filter.PerPage,
			Total:   total,
		},
	})
}

// adminExceptionsHandler godoc
// @Summary List billing exceptions
// @Description List the recorded billing exceptions, newest first, optionally restricted to one type
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param type query string false "Exception type (payment, deployment or storefront)"
// @Success 200 {object} apicommon.ExceptionsResponse
// @Failure 400 {object} errors.Error "Unknown exception type"
// @Router /admin/billing/exceptions [get]
func (a *API) adminExceptionsHandler(w http.ResponseWriter, r *http.Request) {
	exceptionType := r.URL.Query().Get("type")
	if exceptionType != "" && !db.IsValidExceptionType(exceptionType) {
		errors.ErrInvalidData.Withf("unknown exception type %q", exceptionType).Write(w)
		return
	}
	exceptions, err := a.db.BillingExceptions(db.ExceptionType(exceptionType))
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, &apicommon.ExceptionsResponse{Exceptions: exceptions})
}

// adminDeleteExceptionsHandler godoc
// @Summary Bulk delete billing exceptions
// @Description Delete every billing exception of the given type, or all of them when no type is given
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param type query string false "Exception type (payment, deployment or storefront)"
// @Success 200 {object} apicommon.DeletedResponse
// @Failure 400 {object} errors.Error "Unknown exception type"
// @Router /admin/billing/exceptions [delete]
func (a *API) adminDeleteExceptionsHandler(w http.ResponseWriter, r *http.Request) {
	exceptionType := r.URL.Query().Get("type")
	if exceptionType != "" && !db.IsValidExceptionType(exceptionType) {
		errors.ErrInvalidData.Withf("unknown exception type %q", exceptionType).Write(w)
		return
	}
	deleted, err := a.db.DelBillingExceptions(db.ExceptionType(exceptionType))
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, &apicommon.DeletedResponse{Deleted: deleted})
}

// adminDeleteExceptionHandler godoc
// @Summary Resolve a billing exception
// @Description Delete one billing exception by ID
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param exceptionID path int true "Exception ID"
// @Success 200 {string} string "OK"
// @Failure 404 {object} errors.Error "Exception not found"
// @Router /admin/billing/exceptions/{exceptionID} [delete]
func (a *API) adminDeleteExceptionHandler(w http.ResponseWriter, r *http.Request) {
	exceptionID, err := strconv.ParseUint(chi.URLParam(r, "exceptionID"), 10, 64)
	if err != nil {
		errors.ErrMalformedURLParam.Write(w)
		return
	}
	if err := a.db.DelBillingException(exceptionID); err != nil {
		if err == db.ErrNotFound {
			errors.ErrExceptionNotFound.Write(w)
			return
		}
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteOK(w)
}

// adminRefreshRatesHandler godoc
// @Summary Force an exchange rate refresh
// @Description Drop the cached rates for a currency and fetch them again from the provider
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param currency path string true "ISO 4217 currency code"
// @Success 200 {object} exchange.Result
// @Failure 400 {object} errors.Error "Unsupported currency"
// @Router /admin/billing/rates/{currency}/refresh [post]
func (a *API) adminRefreshRatesHandler(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currency")
	if err := a.validator.ValidateVar(currency, "required,currency"); err != nil {
		errors.ErrInvalidCurrency.Withf("malformed currency code %q", currency).Write(w)
		return
	}
	rates, err := a.exchange.Refresh(r.Context(), currency)
	if err != nil {
		if stderrors.Is(err, exchange.ErrUnknownCurrency) {
			errors.ErrInvalidCurrency.WithErr(err).Write(w)
			return
		}
		errors.ErrExchangeRateUnavailable.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, rates)
}

// adminNodeSystemHandler godoc
// @Summary Read a node's daemon system info
// @Description Query the Wings daemon of a registered node for its system information
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param nodeID path int true "Node ID"
// @Success 200 {object} wings.SystemInfo
// @Failure 404 {object} errors.Error "Node not found"
// @Failure 500 {object} errors.Error "Daemon request failed"
// @Router /admin/nodes/{nodeID}/system [get]
func (a *API) adminNodeSystemHandler(w http.ResponseWriter, r *http.Request) {
	nodeID, err := strconv.ParseUint(chi.URLParam(r, "nodeID"), 10, 64)
	if err != nil {
		errors.ErrMalformedURLParam.Write(w)
		return
	}
	node, err := a.db.Node(nodeID)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrNodeNotFound.Write(w)
			return
		}
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	info, err := a.wings.SystemInfo(r.Context(), node)
	if err != nil {
		errors.ErrDaemonRequestFailed.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, info)
}
