package api

const (
	// auth routes

	// POST /auth/login to login and get a JWT token
	authLoginEndpoint = "/auth/login"
	// POST /auth/refresh to refresh the JWT token
	authRefreshTokenEndpoint = "/auth/refresh"

	// user routes

	// POST /users to register a new user
	usersEndpoint = "/users"
	// GET /users/me to get the current user information
	usersMeEndpoint = "/users/me"
	// GET /users/me/servers to list the current user's servers
	usersMeServersEndpoint = "/users/me/servers"

	// billing routes (client)

	// POST /billing/intent to create a payment intent and its pending order
	billingIntentEndpoint = "/billing/intent"
	// PUT /billing/intent/{intentID} to patch intent metadata
	billingUpdateIntentEndpoint = "/billing/intent/{intentID}"
	// POST /billing/process to finalize a paid order
	billingProcessEndpoint = "/billing/process"
	// GET /billing/orders to list the current user's orders
	billingOrdersEndpoint = "/billing/orders"
	// GET /billing/rates/{currency} to get conversion rates for a base currency
	billingRatesEndpoint = "/billing/rates/{currency}"
	// POST /billing/webhook to receive Stripe webhook deliveries
	billingWebhookEndpoint = "/billing/webhook"

	// storefront routes

	// GET /store/categories to list visible categories
	storeCategoriesEndpoint = "/store/categories"
	// GET /store/categories/{categoryUUID}/products to list a category's products
	storeCategoryProductsEndpoint = "/store/categories/{categoryUUID}/products"

	// admin routes

	// GET /admin/billing/orders to list all orders with filters
	adminOrdersEndpoint = "/admin/billing/orders"
	// GET /admin/billing/exceptions to list billing exceptions
	adminExceptionsEndpoint = "/admin/billing/exceptions"
	// DELETE /admin/billing/exceptions/{exceptionID} to resolve one exception
	adminExceptionEndpoint = "/admin/billing/exceptions/{exceptionID}"
	// POST /admin/billing/rates/{currency}/refresh to force a rate refresh
	adminRefreshRatesEndpoint = "/admin/billing/rates/{currency}/refresh"
	// GET /admin/nodes/{nodeID}/system to read a node's daemon system info
	adminNodeSystemEndpoint = "/admin/nodes/{nodeID}/system"

	// observability routes

	// GET /metrics to scrape prometheus metrics
	metricsEndpoint = "/metrics"
)
