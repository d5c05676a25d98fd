package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/everestpanel/billing-backend/db"
	"github.com/everestpanel/billing-backend/internal/log"
	stripeapi "github.com/stripe/stripe-go/v81"
)

// HandleWebhookEvent validates a webhook delivery and processes it with
// idempotency. A redelivered event ID yields ErrEventAlreadyProcessed.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.client.ValidateWebhookEvent(payload, signatureHeader)
	if err != nil {
		return err
	}
	return s.processEvent(ctx, event)
}

// processEvent dispatches an already validated event exactly once, marking
// it processed in the event store.
func (s *Service) processEvent(ctx context.Context, event *stripeapi.Event) error {
	webhookEventsTotal.WithLabelValues(string(event.Type)).Inc()

	exists, err := s.events.EventExists(ctx, event.ID)
	if err != nil {
		return NewStripeError("event_store_failed", "could not check event idempotency", err)
	}
	if exists {
		log.Debugf("stripe webhook: event %s already processed, skipping", event.ID)
		return ErrEventAlreadyProcessed
	}

	if err := s.handleEvent(ctx, event); err != nil {
		return err
	}

	return s.events.MarkProcessed(ctx, event.ID)
}

func (s *Service) handleEvent(_ context.Context, event *stripeapi.Event) error {
	switch event.Type {
	case stripeapi.EventTypePaymentIntentPaymentFailed,
		stripeapi.EventTypePaymentIntentCanceled:
		return s.handleIntentFailure(event)
	case stripeapi.EventTypePaymentIntentSucceeded:
		// provisioning runs through the client's process call; the webhook
		// only confirms delivery
		log.Debugf("stripe webhook: intent succeeded event %s received", event.ID)
		return nil
	default:
		log.Debugf("stripe webhook: received unhandled event type %s (id %s)", event.Type, event.ID)
		return nil
	}
}

// handleIntentFailure marks the order of a failed or canceled intent as
// failed and records a payment exception, so abandoned checkouts do not stay
// pending forever.
func (s *Service) handleIntentFailure(event *stripeapi.Event) error {
	intent, err := parseIntentFromEvent(event)
	if err != nil {
		return err
	}
	order, err := s.db.OrderByPaymentIntent(intent.ID)
	if err != nil {
		if err == db.ErrNotFound {
			log.Debugf("stripe webhook: no order for intent %s", intent.ID)
			return nil
		}
		return fmt.Errorf("could not look up order for intent %s: %w", intent.ID, err)
	}
	if db.IsTerminalOrderStatus(order.Status) {
		return nil
	}
	s.failOrder(order, fmt.Sprintf("payment intent %s reported %s by webhook", intent.ID, event.Type))
	log.Infow("order failed by webhook",
		"order", order.ID,
		"intent", intent.ID,
		"event", string(event.Type))
	return nil
}

// parseIntentFromEvent decodes the payment intent carried in the event
// payload.
func parseIntentFromEvent(event *stripeapi.Event) (*stripeapi.PaymentIntent, error) {
	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, ErrInvalidEvent.wrap(err)
	}
	if intent.ID == "" {
		return nil, ErrInvalidEvent
	}
	return &intent, nil
}
