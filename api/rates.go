package api

import (
	stderrors "errors"
	"net/http"

	"github.com/everestpanel/billing-backend/api/apicommon"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/exchange"
	"github.com/go-chi/chi/v5"
)

// ratesHandler godoc
// @Summary Get conversion rates
// @Description Get the conversion rate table rebased on the given currency
// @Tags billing
// @Produce json
// @Param currency path string true "ISO 4217 currency code"
// @Success 200 {object} exchange.Result
// @Failure 400 {object} errors.Error "Unsupported currency"
// @Router /billing/rates/{currency} [get]
func (a *API) ratesHandler(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currency")
	if err := a.validator.ValidateVar(currency, "required,currency"); err != nil {
		errors.ErrInvalidCurrency.Withf("malformed currency code %q", currency).Write(w)
		return
	}
	rates, err := a.exchange.Rates(r.Context(), currency)
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
