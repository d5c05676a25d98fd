// Package api provides the HTTP API for the Everest billing backend.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/exchange"
	"github.com/everestpanel/billing-backend/internal/log"
	"github.com/everestpanel/billing-backend/stripe"
	"github.com/everestpanel/billing-backend/validator"
	"github.com/everestpanel/billing-backend/wings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	jwtExpiration = 360 * time.Hour // 15 days
	passwordSalt  = "everest365"    // salt for password hashing
)

type Config struct {
	Host     string
	Port     int
	Secret   string
	DB       *db.MongoStorage
	Stripe   *stripe.Service
	Exchange *exchange.Service
	Wings    *wings.Client
}

// API type represents the API HTTP server with JWT authentication capabilities.
type API struct {
	db        *db.MongoStorage
	auth      *jwtauth.JWTAuth
	host      string
	port      int
	stripe    *stripe.Service
	exchange  *exchange.Service
	wings     *wings.Client
	validator *validator.Validator
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}

	return &API{
		db:        conf.DB,
		auth:      jwtauth.New("HS256", []byte(conf.Secret), nil),
		host:      conf.Host,
		port:      conf.Port,
		stripe:    conf.Stripe,
		exchange:  conf.Exchange,
		wings:     conf.Wings,
		validator: validator.New(),
	}
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", a.host, a.port), a.initRouter()); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() http.Handler {
	// Create the router with a basic middleware stack
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	r.Use(middleware.Timeout(45 * time.Second))

	// protected routes
	r.Group(func(r chi.Router) {
		// seek, verify and validate JWT tokens
		r.Use(jwtauth.Verifier(a.auth))
		// handle valid JWT tokens
		r.Use(a.authenticator)
		// refresh the token
		log.Infow("new route", "method", "POST", "path", authRefreshTokenEndpoint)
		r.Post(authRefreshTokenEndpoint, a.refreshTokenHandler)
		// get user information
		log.Infow("new route", "method", "GET", "path", usersMeEndpoint)
		r.Get(usersMeEndpoint, a.userInfoHandler)
		// list the user's servers
		log.Infow("new route", "method", "GET", "path", usersMeServersEndpoint)
		r.Get(usersMeServersEndpoint, a.userServersHandler)
		// create a payment intent and its pending order
		log.Infow("new route", "method", "POST", "path", billingIntentEndpoint)
		r.Post(billingIntentEndpoint, a.createIntentHandler)
		// patch intent metadata
		log.Infow("new route", "method", "PUT", "path", billingUpdateIntentEndpoint)
		r.Put(billingUpdateIntentEndpoint, a.updateIntentHandler)
		// finalize a paid order
		log.Infow("new route", "method", "POST", "path", billingProcessEndpoint)
		r.Post(billingProcessEndpoint, a.processOrderHandler)
		// list the user's orders
		log.Infow("new route", "method", "GET", "path", billingOrdersEndpoint)
		r.Get(billingOrdersEndpoint, a.userOrdersHandler)
	})

	// admin routes
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(a.auth))
		r.Use(a.authenticator)
		r.Use(a.adminOnly)
		// list all orders with filters
		log.Infow("new route", "method", "GET", "path", adminOrdersEndpoint)
		r.Get(adminOrdersEndpoint, a.adminOrdersHandler)
		// list billing exceptions
		log.Infow("new route", "method", "GET", "path", adminExceptionsEndpoint)
		r.Get(adminExceptionsEndpoint, a.adminExceptionsHandler)
		// bulk delete billing exceptions
		log.Infow("new route", "method", "DELETE", "path", adminExceptionsEndpoint)
		r.Delete(adminExceptionsEndpoint, a.adminDeleteExceptionsHandler)
		// resolve one billing exception
		log.Infow("new route", "method", "DELETE", "path", adminExceptionEndpoint)
		r.Delete(adminExceptionEndpoint, a.adminDeleteExceptionHandler)
		// force an exchange rate refresh
		log.Infow("new route", "method", "POST", "path", adminRefreshRatesEndpoint)
		r.Post(adminRefreshRatesEndpoint, a.adminRefreshRatesHandler)
		// read a node's daemon system info
		log.Infow("new route", "method", "GET", "path", adminNodeSystemEndpoint)
		r.Get(adminNodeSystemEndpoint, a.adminNodeSystemHandler)
	})

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			if _, err := w.Write([]byte(".")); err != nil {
				log.Warnw("failed to write ping response", "error", err)
			}
		})
		// login
		log.Infow("new route", "method", "POST", "path", authLoginEndpoint)
		r.Post(authLoginEndpoint, a.authLoginHandler)
		// register user
		log.Infow("new route", "method", "POST", "path", usersEndpoint)
		r.Post(usersEndpoint, a.registerHandler)
		// storefront categories
		log.Infow("new route", "method", "GET", "path", storeCategoriesEndpoint)
		r.Get(storeCategoriesEndpoint, a.storeCategoriesHandler)
		// storefront category products
		log.Infow("new route", "method", "GET", "path", storeCategoryProductsEndpoint)
		r.Get(storeCategoryProductsEndpoint, a.storeCategoryProductsHandler)
		// conversion rates
		log.Infow("new route", "method", "GET", "path", billingRatesEndpoint)
		r.Get(billingRatesEndpoint, a.ratesHandler)
		// handle stripe webhook
		log.Infow("new route", "method", "POST", "path", billingWebhookEndpoint)
		r.Post(billingWebhookEndpoint, a.webhookHandler)
		// prometheus metrics
		log.Infow("new route", "method", "GET", "path", metricsEndpoint)
		r.Get(metricsEndpoint, promhttp.Handler().ServeHTTP)
	})

	return r
}
