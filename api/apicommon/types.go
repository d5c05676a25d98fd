package apicommon

import (
	"time"

	"github.com/everestpanel/billing-backend/db"
)

// LoginRequest is the payload to authenticate a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RegisterRequest is the payload to create a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse carries the JWT the frontend uses on subsequent requests.
type LoginResponse struct {
	Token    string    `json:"token"`
	Expirity time.Time `json:"expirity"`
}

// UserInfo is the authenticated user's own record.
type UserInfo struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// CreateIntentRequest starts a checkout: a payment intent plus its pending
// order.
type CreateIntentRequest struct {
	ProductID uint64 `json:"productID" validate:"required"`
	IsRenewal bool   `json:"isRenewal"`
	// ServerID names the server a renewal payment extends.
	ServerID uint64 `json:"serverID"`
}

// UpdateIntentRequest patches Stripe-side metadata on an intent.
type UpdateIntentRequest struct {
	Metadata map[string]string `json:"metadata" validate:"required"`
}

// ProcessOrderRequest finalizes a paid order.
type ProcessOrderRequest struct {
	IntentID string `json:"intentID" validate:"required"`
}

// Pagination describes one page of a listing response.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
	Total   int64 `json:"total"`
}

// OrdersResponse is a page of orders.
type OrdersResponse struct {
	Orders     []*db.Order `json:"orders"`
	Pagination Pagination  `json:"pagination"`
}

// CategoryWithProducts is a storefront category with its visible products.
type CategoryWithProducts struct {
	Category *db.Category  `json:"category"`
	Products []*db.Product `json:"products"`
}

// ExceptionsResponse lists billing exceptions for the admin panel.
type ExceptionsResponse struct {
	Exceptions []*db.BillingException `json:"exceptions"`
}

// DeletedResponse reports how many records a bulk delete removed.
type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// ServersResponse lists the user's servers.
type ServersResponse struct {
	Servers []*db.Server `json:"servers"`
}
