// Package errors provides custom error types and definitions for the application.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the
// current last 4XXXX or 5XXXX. If you notice there's a gap, DON'T fill it in,
// that code was used in the past for some error and shouldn't be reused.
var (
	// Authentication errors (401/403)
	ErrUnauthorized = Error{Code: 40001, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("authentication required"), LogLevel: "info"}
	ErrForbidden    = Error{Code: 40002, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("insufficient permissions"), LogLevel: "info"}

	// Validation errors (400)
	ErrMalformedBody     = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid JSON request body")}
	ErrMalformedURLParam = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid URL parameter")}
	ErrInvalidData       = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid data provided")}
	ErrInvalidCurrency   = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unsupported currency code")}
	ErrInvalidFilter     = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("filter or sort field not allowed")}

	// Not found errors (404)
	ErrUserNotFound      = Error{Code: 40008, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("user not found")}
	ErrOrderNotFound     = Error{Code: 40009, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("order not found")}
	ErrProductNotFound   = Error{Code: 40010, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("product not found")}
	ErrCategoryNotFound  = Error{Code: 40011, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("category not found")}
	ErrServerNotFound    = Error{Code: 40012, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("server not found")}
	ErrNodeNotFound      = Error{Code: 40013, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("node not found")}
	ErrExceptionNotFound = Error{Code: 40014, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("billing exception not found")}

	// Conflict errors (409)
	ErrDuplicateConflict     = Error{Code: 40901, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("resource already exists")}
	ErrOrderAlreadyProcessed = Error{Code: 40902, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("this order has already been processed"), LogLevel: "info"}

	// Billing domain errors (400/402)
	ErrPaymentNotSucceeded = Error{Code: 40015, HTTPstatus: http.StatusPaymentRequired, Err: fmt.Errorf("payment intent has not succeeded"), LogLevel: "info"}
	ErrStorefrontEmpty     = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no visible categories or products available"), LogLevel: "info"}
	ErrNoDeployableNode    = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no deployable node satisfies the product requirements"), LogLevel: "info"}

	// Server errors (500) - These should be used sparingly and only for true internal errors
	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: failed to process response"), LogLevel: "error"}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: operation failed"), LogLevel: "error"}
	ErrStripeError                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: payment processing failed"), LogLevel: "error"}
	ErrStripeWebhookError         = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: stripe webhook failed"), LogLevel: "error"}
	ErrInternalStorageError       = Error{Code: 50005, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: storage operation failed"), LogLevel: "error"}
	ErrExchangeRateUnavailable    = Error{Code: 50006, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: exchange rates unavailable"), LogLevel: "error"}
	ErrDaemonRequestFailed        = Error{Code: 50007, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: daemon request failed"), LogLevel: "error"}
	ErrProvisioningFailed         = Error{Code: 50008, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: server provisioning failed"), LogLevel: "error"}
)
