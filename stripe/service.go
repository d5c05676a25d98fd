// Package stripe provides integration with the Stripe payment service,
// handling the payment intent order lifecycle and webhook events.
package stripe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/errors"
	"github.com/everestpanel/billing-backend/internal/log"
	"github.com/everestpanel/billing-backend/provisioner"
	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v81"
)

// Provisioner deploys a paid order to a node. Implemented by the provisioner
// package; tests substitute a fake.
type Provisioner interface {
	Provision(ctx context.Context, order *db.Order, variables map[string]string) (*db.Server, error)
}

// Service provides the main business logic for Stripe operations
type Service struct {
	client      *Client
	db          *db.MongoStorage
	events      EventStore
	lockManager *LockManager
	provisioner Provisioner
	config      *Config
}

// IntentResult is returned by CreateIntent: the recorded order and the
// client secret the frontend needs to confirm the payment.
type IntentResult struct {
	OrderID      uint64 `json:"orderID"`
	IntentID     string `json:"intentID"`
	ClientSecret string `json:"clientSecret"`
}

// ProcessResult describes what processing a paid order produced.
type ProcessResult struct {
	Order *db.Order `json:"order"`
	// Server is the deployed or renewed server.
	Server  *db.Server `json:"server"`
	Renewed bool       `json:"renewed"`
}

// NewService creates a new Stripe service
func NewService(config *Config, database *db.MongoStorage, provisioner Provisioner, events EventStore) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if provisioner == nil {
		return nil, fmt.Errorf("provisioner is required")
	}
	if events == nil {
		events = NewMemoryEventStore(0)
	}

	return &Service{
		client:      NewClient(config),
		db:          database,
		events:      events,
		lockManager: NewLockManager(),
		provisioner: provisioner,
		config:      config,
	}, nil
}

// CreateIntent creates a Stripe payment intent for the product and records
// the matching pending order. The amount is the product price in minor
// currency units. For renewals serverID names the server the payment
// extends.
func (s *Service) CreateIntent(_ context.Context, user *db.User, productID uint64, isRenewal bool, serverID uint64) (*IntentResult, error) {
	product, err := s.db.Product(productID)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, errors.ErrProductNotFound
		}
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}
	if isRenewal {
		server, err := s.db.Server(serverID)
		if err != nil {
			if err == db.ErrNotFound {
				return nil, errors.ErrServerNotFound
			}
			return nil, errors.ErrInternalStorageError.WithErr(err)
		}
		if server.UserID != user.ID {
			return nil, errors.ErrForbidden
		}
	}

	metadata := map[string]string{
		"user_id":    strconv.FormatUint(user.ID, 10),
		"product_id": strconv.FormatUint(product.ID, 10),
		"renewal":    strconv.FormatBool(isRenewal),
	}
	if serverID > 0 {
		metadata["server_id"] = strconv.FormatUint(serverID, 10)
	}

	intent, err := s.client.CreatePaymentIntent(product.Price.MinorUnits(), s.config.Currency, metadata)
	if err != nil {
		return nil, errors.ErrStripeError.WithErr(err)
	}

	order := &db.Order{
		Name:            newOrderName(),
		UserID:          user.ID,
		Description:     fmt.Sprintf("1x %s", product.Name),
		Total:           product.Price,
		Currency:        s.config.Currency,
		Status:          db.OrderStatusPending,
		ProductID:       product.ID,
		IsRenewal:       isRenewal,
		ServerID:        serverID,
		PaymentIntentID: intent.ID,
	}
	orderID, err := s.db.SetOrder(order)
	if err != nil {
		if err == db.ErrDuplicateKey {
			return nil, errors.ErrDuplicateConflict.Withf("an order already exists for intent %s", intent.ID)
		}
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}
	intentsCreatedTotal.Inc()
	log.Infow("payment intent created",
		"intent", intent.ID,
		"order", orderID,
		"user", user.ID,
		"amount", product.Price.MinorUnits(),
		"currency", s.config.Currency)

	return &IntentResult{
		OrderID:      orderID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// UpdateIntent patches Stripe-side metadata on the user's intent. It is a
// passthrough write: no local state changes.
func (s *Service) UpdateIntent(_ context.Context, user *db.User, intentID string, metadata map[string]string) error {
	order, err := s.db.OrderByPaymentIntent(intentID)
	if err != nil {
		if err == db.ErrNotFound {
			return errors.ErrOrderNotFound
		}
		return errors.ErrInternalStorageError.WithErr(err)
	}
	if order.UserID != user.ID {
		return errors.ErrForbidden
	}
	if _, err := s.client.UpdatePaymentIntentMetadata(intentID, metadata); err != nil {
		return errors.ErrStripeError.WithErr(err)
	}
	return nil
}

// ProcessOrder finalizes the user's latest order once its payment intent
// succeeded: renewals extend the server, new purchases are deployed via the
// provisioner. The order only becomes processed after that work succeeds.
// Calls for the same user are serialized through the lock manager so a
// double submit cannot process one order twice.
func (s *Service) ProcessOrder(ctx context.Context, user *db.User, intentID string) (*ProcessResult, error) {
	unlock := s.lockManager.LockUser(user.ID)
	defer unlock()

	order, err := s.db.LastOrderByUser(user.ID)
	if err != nil {
		if err == db.ErrNotFound {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}
	if order.PaymentIntentID != intentID {
		return nil, errors.ErrOrderNotFound.Withf("intent %s does not match the latest order", intentID)
	}
	if db.IsTerminalOrderStatus(order.Status) {
		ordersProcessedTotal.WithLabelValues("already_processed").Inc()
		return nil, errors.ErrOrderAlreadyProcessed
	}

	intent, err := s.awaitIntent(ctx, intentID)
	if err != nil {
		return nil, errors.ErrStripeError.WithErr(err)
	}
	if intent.Status != stripeapi.PaymentIntentStatusSucceeded {
		s.failOrder(order, fmt.Sprintf("payment intent %s finished with status %s", intent.ID, intent.Status))
		ordersProcessedTotal.WithLabelValues("payment_failed").Inc()
		return nil, errors.ErrPaymentNotSucceeded
	}

	if order.IsRenewal {
		return s.processRenewal(order, intent)
	}
	return s.processNewServer(ctx, order, intent)
}

// processRenewal extends the paid server's renewal window and clears any
// suspension.
func (s *Service) processRenewal(order *db.Order, intent *stripeapi.PaymentIntent) (*ProcessResult, error) {
	serverID := order.ServerID
	if raw, ok := intent.Metadata["server_id"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			serverID = id
		}
	}
	if serverID == 0 {
		s.failOrder(order, fmt.Sprintf("renewal order %d has no server reference", order.ID))
		ordersProcessedTotal.WithLabelValues("error").Inc()
		return nil, errors.ErrServerNotFound
	}
	server, err := s.db.RenewServer(serverID, db.RenewalDays)
	if err != nil {
		if err == db.ErrNotFound {
			s.failOrder(order, fmt.Sprintf("renewal order %d references missing server %d", order.ID, serverID))
			ordersProcessedTotal.WithLabelValues("error").Inc()
			return nil, errors.ErrServerNotFound
		}
		return nil, errors.ErrInternalStorageError.WithErr(err)
	}
	if err := s.markProcessed(order); err != nil {
		return nil, err
	}
	ordersProcessedTotal.WithLabelValues("renewed").Inc()
	log.Infow("server renewed",
		"server", server.ID,
		"order", order.ID,
		"daysUntilRenewal", server.DaysUntilRenewal)
	return &ProcessResult{Order: order, Server: server, Renewed: true}, nil
}

// processNewServer deploys the purchased server. The order is marked
// processed only after the provisioner succeeds; a deployment failure marks
// it failed instead.
func (s *Service) processNewServer(ctx context.Context, order *db.Order, intent *stripeapi.PaymentIntent) (*ProcessResult, error) {
	variables := make(map[string]string, len(order.Variables))
	for key, value := range order.Variables {
		variables[key] = value
	}
	if raw, ok := intent.Metadata["variables"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &variables); err != nil {
			log.Warnw("could not decode intent variables metadata",
				"intent", intent.ID,
				"error", err)
		}
	}

	server, err := s.provisioner.Provision(ctx, order, variables)
	if err != nil {
		// the provisioner records its own deployment exception
		if err := s.db.SetOrderStatus(order.ID, db.OrderStatusFailed); err != nil && err != db.ErrTerminalStatus {
			log.Warnw("failed to mark order as failed", "order", order.ID, "error", err)
		} else {
			order.Status = db.OrderStatusFailed
		}
		ordersProcessedTotal.WithLabelValues("deploy_failed").Inc()
		if stderrors.Is(err, provisioner.ErrNoDeployableNode) {
			return nil, errors.ErrNoDeployableNode.WithErr(err)
		}
		return nil, errors.ErrProvisioningFailed.WithErr(err)
	}
	if err := s.markProcessed(order); err != nil {
		return nil, err
	}
	ordersProcessedTotal.WithLabelValues("deployed").Inc()
	log.Infow("server deployed",
		"server", server.ID,
		"order", order.ID,
		"node", server.NodeID)
	return &ProcessResult{Order: order, Server: server}, nil
}

// awaitIntent fetches the payment intent, re-polling a bounded number of
// times while it has not reached a final status. This replaces waiting a
// fixed delay for Stripe's eventual consistency.
func (s *Service) awaitIntent(ctx context.Context, intentID string) (*stripeapi.PaymentIntent, error) {
	attempts := s.config.IntentRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := s.config.IntentRetryInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	var intent *stripeapi.PaymentIntent
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}
		intent, err = s.client.GetPaymentIntent(intentID)
		if err != nil {
			if IsRetryableError(err) {
				continue
			}
			return nil, err
		}
		switch intent.Status {
		case stripeapi.PaymentIntentStatusSucceeded, stripeapi.PaymentIntentStatusCanceled:
			return intent, nil
		}
	}
	if intent == nil {
		return nil, err
	}
	return intent, nil
}

// markProcessed flips the order to processed, tolerating nothing: a terminal
// status at this point means a concurrent writer won despite the lock.
func (s *Service) markProcessed(order *db.Order) error {
	if err := s.db.SetOrderStatus(order.ID, db.OrderStatusProcessed); err != nil {
		if err == db.ErrTerminalStatus {
			return errors.ErrOrderAlreadyProcessed
		}
		return errors.ErrInternalStorageError.WithErr(err)
	}
	order.Status = db.OrderStatusProcessed
	return nil
}

// failOrder moves the order to failed and records a payment exception for
// admin review. Both writes are best effort on an already failing path.
func (s *Service) failOrder(order *db.Order, description string) {
	if err := s.db.SetOrderStatus(order.ID, db.OrderStatusFailed); err != nil && err != db.ErrTerminalStatus {
		log.Warnw("failed to mark order as failed", "order", order.ID, "error", err)
	} else {
		order.Status = db.OrderStatusFailed
	}
	if _, err := s.db.SetBillingException(&db.BillingException{
		Title:       "Failed to process order",
		Description: description,
		Type:        db.ExceptionTypePayment,
		OrderID:     order.ID,
	}); err != nil {
		log.Warnw("failed to record billing exception", "order", order.ID, "error", err)
	}
}

// newOrderName returns a short random label for a new order.
func newOrderName() string {
	return "order-" + uuid.NewString()[:8]
}
