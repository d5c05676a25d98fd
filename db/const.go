package db

const (
	// order statuses
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusProcessed OrderStatus = "processed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusExpired   OrderStatus = "expired"
	// billing exception types
	ExceptionTypePayment    ExceptionType = "payment"
	ExceptionTypeDeployment ExceptionType = "deployment"
	ExceptionTypeStorefront ExceptionType = "storefront"
)

// RenewalDays is how many days a successful renewal order adds to a server.
const RenewalDays = 30

// terminalOrderStatuses is a map that contains the order statuses that can
// never change again once reached.
var terminalOrderStatuses = map[OrderStatus]bool{
	OrderStatusProcessed: true,
	OrderStatusFailed:    true,
	OrderStatusExpired:   true,
}

// IsTerminalOrderStatus function checks if the order status is terminal.
func IsTerminalOrderStatus(status OrderStatus) bool {
	return terminalOrderStatuses[status]
}

// validOrderStatuses is a map that contains the valid order statuses.
var validOrderStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusProcessed: true,
	OrderStatusFailed:    true,
	OrderStatusExpired:   true,
}

// IsValidOrderStatus function checks if the order status is valid.
func IsValidOrderStatus(status OrderStatus) bool {
	return validOrderStatuses[status]
}

// validExceptionTypes is a map that contains the valid exception types.
var validExceptionTypes = map[ExceptionType]bool{
	ExceptionTypePayment:    true,
	ExceptionTypeDeployment: true,
	ExceptionTypeStorefront: true,
}

// IsValidExceptionType function checks if the exception type is valid.
func IsValidExceptionType(et string) bool {
	return validExceptionTypes[ExceptionType(et)]
}
