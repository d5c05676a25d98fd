package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/stripe"
	"github.com/go-chi/chi/v5"
)

// maxWebhookBody bounds the webhook payload size accepted from Stripe.
const maxWebhookBody = 1 << 16

// writeServiceError writes the error as a coded API error when it is one,
// falling back to a generic internal error otherwise.
func writeServiceError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(errors.Error); ok {
		apiErr.Write(w)
		return
	}
	errors.ErrGenericInternalServerError.WithErr(err).Write(w)
}

// createIntentHandler godoc
// @Summary Create a payment intent
// @Description Create a Stripe payment intent and its pending order for a product purchase or a server renewal
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body apicommon.CreateIntentRequest true "Purchase data"
// @Success 200 {object} stripe.IntentResult
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error "Product or server not found"
// @Failure 409 {object} errors.Error "An order already exists for the intent"
// @Router /billing/intent [post]
func (a *API) createIntentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &apicommon.CreateIntentRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if err := a.validator.Validate(req); err != nil {
		errors.ErrInvalidData.WithErr(err).Write(w)
		return
	}
	res, err := a.stripe.CreateIntent(r.Context(), user, req.ProductID, req.IsRenewal, req.ServerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	apicommon.HTTPWriteJSON(w, res)
}

// updateIntentHandler godoc
// @Summary Update payment intent metadata
// @Description Patch Stripe-side metadata on the user's payment intent
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param intentID path string true "Payment intent ID"
// @Param request body apicommon.UpdateIntentRequest true "Metadata patch"
// @Success 200 {string} string "OK"
// @Failure 403 {object} errors.Error "Intent belongs to another user"
// @Failure 404 {object} errors.Error "No order for the intent"
// @Router /billing/intent/{intentID} [put]
func (a *API) updateIntentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	intentID := chi.URLParam(r, "intentID")
	if intentID == "" {
		errors.ErrMalformedURLParam.Write(w)
		return
	}
	req := &apicommon.UpdateIntentRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if err := a.validator.Validate(req); err != nil {
		errors.ErrInvalidData.WithErr(err).Write(w)
		return
	}
	if err := a.stripe.UpdateIntent(r.Context(), user, intentID, req.Metadata); err != nil {
		writeServiceError(w, err)
		return
	}
	apicommon.HTTPWriteOK(w)
}

// processOrderHandler godoc
// @Summary Process a paid order
// @Description Finalize the user's latest order once its payment intent succeeded, deploying a server or renewing one
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body apicommon.ProcessOrderRequest true "Payment intent reference"
// @Success 200 {object} stripe.ProcessResult
// @Failure 402 {object} errors.Error "Payment not succeeded"
// @Failure 404 {object} errors.Error "No matching pending order"
// @Failure 409 {object} errors.Error "Order already processed"
// @Router /billing/process [post]
func (a *API) processOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &apicommon.ProcessOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if err := a.validator.Validate(req); err != nil {
		errors.ErrInvalidData.WithErr(err).Write(w)
		return
	}
	res, err := a.stripe.ProcessOrder(r.Context(), user, req.IntentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	apicommon.HTTPWriteJSON(w, res)
}

// userOrdersHandler godoc
// @Summary List the user's orders
// @Description List the authenticated user's orders, newest first
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} apicommon.OrdersResponse
// @Failure 401 {object} errors.Error
// @Router /billing/orders [get]
func (a *API) userOrdersHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	page, perPage := apicommon.PaginationFromRequest(r)
	orders, total, err := a.db.Orders(db.OrdersFilter{
		UserID:   user.ID,
		Page:     page,
		PerPage:  perPage,
		SortDesc: true,
	})
	if err != nil {
		errors.ErrInternalStorageError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, &apicommon.OrdersResponse{
		Orders: orders,
		Pagination: apicommon.Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
		},
	})
}

// webhookHandler godoc
// @Summary Handle Stripe webhook events
// @Description Receive and process webhook events from Stripe
// @Tags billing
// @Accept json
// @Produce json
// @Success 200 {string} string "OK"
// @Failure 400 {object} errors.Error "Invalid payload or signature"
// @Router /billing/webhook [post]
func (a *API) webhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	if err := a.stripe.HandleWebhookEvent(r.Context(), payload, signature); err != nil {
		if stripeErr, ok := err.(*stripe.StripeError); ok {
			switch stripeErr.Code {
			case stripe.ErrEventAlreadyProcessed.Code:
				// Stripe expects a 200 on redeliveries or it keeps retrying
				apicommon.HTTPWriteOK(w)
				return
			case stripe.ErrWebhookValidation.Code, stripe.ErrInvalidEvent.Code:
				errors.ErrMalformedBody.WithErr(err).Write(w)
				return
			}
		}
		errors.ErrStripeWebhookError.WithErr(err).Write(w)
		return
	}
	apicommon.HTTPWriteOK(w)
}
