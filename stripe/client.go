package stripe

import (
	stderrors "errors"
	"net/http"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v81"
	stripeintent "github.com/stripe/stripe-go/v81/paymentintent"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
)

// intentAPI is the minimal payment intent surface the client needs. The live
// implementation calls the Stripe SDK; tests substitute a fake.
type intentAPI interface {
	New(params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
	Get(id string, params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
	Update(id string, params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
}

type liveIntentAPI struct{}

func (liveIntentAPI) New(params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error) {
	return stripeintent.New(params)
}

func (liveIntentAPI) Get(id string, params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error) {
	return stripeintent.Get(id, params)
}

func (liveIntentAPI) Update(id string, params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error) {
	return stripeintent.Update(id, params)
}

// Client wraps the Stripe API client with additional functionality
type Client struct {
	config  *Config
	intents intentAPI
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config *Config) *Client {
	stripeapi.Key = config.APIKey

	return &Client{
		config:  config,
		intents: liveIntentAPI{},
	}
}

// ValidateWebhookEvent validates and parses a webhook event
func (c *Client) ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	event, err := stripewebhook.ConstructEvent(payload, signatureHeader, c.config.WebhookSecret)
	if err != nil {
		return nil, ErrWebhookValidation.wrap(err)
	}
	return &event, nil
}

// CreatePaymentIntent creates a payment intent for the given amount in minor
// currency units with the configured payment method types.
func (c *Client) CreatePaymentIntent(amount int64, currency string, metadata map[string]string) (*stripeapi.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:             stripeapi.Int64(amount),
		Currency:           stripeapi.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripeapi.StringSlice(c.paymentMethodTypes()),
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}
	intent, err := c.intents.New(params)
	if err != nil {
		return nil, ErrAPICallFailed.wrap(err)
	}
	return intent, nil
}

// GetPaymentIntent retrieves a payment intent by ID
func (c *Client) GetPaymentIntent(intentID string) (*stripeapi.PaymentIntent, error) {
	intent, err := c.intents.Get(intentID, nil)
	if err != nil {
		var stripeErr *stripeapi.Error
		if stderrors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrIntentNotFound.wrap(err)
		}
		return nil, ErrAPICallFailed.wrap(err)
	}
	return intent, nil
}

// UpdatePaymentIntentMetadata patches the metadata of an existing intent
func (c *Client) UpdatePaymentIntentMetadata(intentID string, metadata map[string]string) (*stripeapi.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}
	intent, err := c.intents.Update(intentID, params)
	if err != nil {
		return nil, ErrAPICallFailed.wrap(err)
	}
	return intent, nil
}

// paymentMethodTypes returns the payment method types offered on new
// intents. Card is always available; paypal and link are gated by config.
func (c *Client) paymentMethodTypes() []string {
	types := []string{"card"}
	if c.config.PayPalEnabled {
		types = append(types, "paypal")
	}
	if c.config.LinkEnabled {
		types = append(types, "link")
	}
	return types
}
