package db

import (
	"time"

	"github.com/everestpanel/billing-backend/internal"
)

// OrderStatus is the lifecycle state of an order. Transitions are monotonic:
// pending may move to processed, failed or expired, and the terminal states
// never change again.
type OrderStatus string

// ExceptionType classifies a billing exception record.
type ExceptionType string

// User is a panel account that can own orders and servers.
type User struct {
	ID        uint64    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email"`
	Password  string    `json:"-" bson:"password"`
	Admin     bool      `json:"admin" bson:"admin"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Order is a storefront purchase tied to a Stripe payment intent. The
// payment intent ID uniquely identifies at most one order.
type Order struct {
	ID          uint64          `json:"id" bson:"_id"`
	Name        string          `json:"name" bson:"name"`
	UserID      uint64          `json:"userID" bson:"userID"`
	Description string          `json:"description" bson:"description"`
	Total       internal.Amount `json:"total" bson:"total"`
	Currency    string          `json:"currency" bson:"currency"`
	Status      OrderStatus     `json:"status" bson:"status"`
	ProductID   uint64          `json:"productID" bson:"productID"`
	IsRenewal   bool            `json:"isRenewal" bson:"isRenewal"`
	// ServerID is only set on renewal orders and points at the server the
	// payment extends.
	ServerID uint64 `json:"serverID,omitempty" bson:"serverID,omitempty"`
	// Variables are the egg variable values chosen at checkout, applied by
	// the provisioner on deployment.
	Variables       map[string]string `json:"variables,omitempty" bson:"variables,omitempty"`
	ThreatIndex     int               `json:"threatIndex" bson:"threatIndex"`
	PaymentIntentID string            `json:"paymentIntentID" bson:"paymentIntentID"`
	CreatedAt       time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// ProductLimits are the resources a purchased server is entitled to.
type ProductLimits struct {
	CPU         int `json:"cpu" bson:"cpu"`
	Memory      int `json:"memory" bson:"memory"`
	Disk        int `json:"disk" bson:"disk"`
	Backups     int `json:"backups" bson:"backups"`
	Databases   int `json:"databases" bson:"databases"`
	Allocations int `json:"allocations" bson:"allocations"`
}

// Product is a storefront catalog entry.
type Product struct {
	ID           uint64          `json:"id" bson:"_id"`
	Name         string          `json:"name" bson:"name"`
	Description  string          `json:"description" bson:"description"`
	Price        internal.Amount `json:"price" bson:"price"`
	CategoryUUID string          `json:"categoryUUID" bson:"categoryUUID"`
	Limits       ProductLimits   `json:"limits" bson:"limits"`
	EggID        uint64          `json:"eggID" bson:"eggID"`
	Visible      bool            `json:"visible" bson:"visible"`
}

// Category groups products in the storefront. The UUID is the public
// identifier used by products and the API.
type Category struct {
	UUID    string `json:"uuid" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	NestID  uint64 `json:"nestID" bson:"nestID"`
	Visible bool   `json:"visible" bson:"visible"`
}

// BillingException records a storefront or deployment anomaly for admin
// review. There is no lifecycle beyond create and delete.
type BillingException struct {
	ID          uint64        `json:"id" bson:"_id"`
	Title       string        `json:"title" bson:"title"`
	Description string        `json:"description" bson:"description"`
	Type        ExceptionType `json:"type" bson:"type"`
	OrderID     uint64        `json:"orderID,omitempty" bson:"orderID,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
}

// ExchangeRate is the cached conversion table for one base currency. At most
// one live row exists per base (upserted).
type ExchangeRate struct {
	BaseCurrency  string             `json:"baseCurrency" bson:"_id"`
	Rates         map[string]float64 `json:"rates" bson:"rates"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt" bson:"lastUpdatedAt"`
}

// Server is a provisioned game server.
type Server struct {
	ID               uint64    `json:"id" bson:"_id"`
	UUID             string    `json:"uuid" bson:"uuid"`
	Name             string    `json:"name" bson:"name"`
	UserID           uint64    `json:"userID" bson:"userID"`
	ProductID        uint64    `json:"productID" bson:"productID"`
	NodeID           uint64    `json:"nodeID" bson:"nodeID"`
	DaysUntilRenewal int       `json:"daysUntilRenewal" bson:"daysUntilRenewal"`
	Suspended        bool      `json:"suspended" bson:"suspended"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}

// Node is a registered Wings host that servers can be deployed to.
type Node struct {
	ID         uint64 `json:"id" bson:"_id"`
	Name       string `json:"name" bson:"name"`
	FQDN       string `json:"fqdn" bson:"fqdn"`
	Scheme     string `json:"scheme" bson:"scheme"`
	Port       int    `json:"port" bson:"port"`
	Token      string `json:"-" bson:"token"`
	Deployable bool   `json:"deployable" bson:"deployable"`
	MemoryMB   int    `json:"memoryMB" bson:"memoryMB"`
	DiskMB     int    `json:"diskMB" bson:"diskMB"`
}
