package stripe

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the complete Stripe configuration
type Config struct {
	APIKey        string `yaml:"api_key" json:"api_key"`
	WebhookSecret string `yaml:"webhook_secret" json:"webhook_secret"`
	// Currency is the storefront billing currency for new payment intents.
	Currency string `yaml:"currency" json:"currency"`
	// PayPalEnabled and LinkEnabled gate the optional payment method types
	// offered alongside card payments.
	PayPalEnabled bool `yaml:"paypal_enabled" json:"paypal_enabled"`
	LinkEnabled   bool `yaml:"link_enabled" json:"link_enabled"`
	// IntentRetryAttempts and IntentRetryInterval bound how long an order
	// process call waits for a payment intent to settle.
	IntentRetryAttempts int           `yaml:"intent_retry_attempts" json:"intent_retry_attempts"`
	IntentRetryInterval time.Duration `yaml:"intent_retry_interval" json:"intent_retry_interval"`
}

// NewConfig creates a new Stripe configuration from environment variables
func NewConfig() (*Config, error) {
	apiKey := os.Getenv("EVEREST_STRIPEAPISECRET")
	if apiKey == "" {
		return nil, ErrInvalidConfiguration.wrap(fmt.Errorf("EVEREST_STRIPEAPISECRET environment variable is required"))
	}

	webhookSecret := os.Getenv("EVEREST_STRIPEWEBHOOKSECRET")
	if webhookSecret == "" {
		return nil, ErrInvalidConfiguration.wrap(fmt.Errorf("EVEREST_STRIPEWEBHOOKSECRET environment variable is required"))
	}

	attempts, err := strconv.Atoi(getEnvOrDefault("EVEREST_STRIPERETRYATTEMPTS", "3"))
	if err != nil || attempts < 1 {
		return nil, ErrInvalidConfiguration.wrap(fmt.Errorf("EVEREST_STRIPERETRYATTEMPTS must be a positive integer"))
	}

	return &Config{
		APIKey:              apiKey,
		WebhookSecret:       webhookSecret,
		Currency:            getEnvOrDefault("EVEREST_STRIPECURRENCY", "CAD"),
		PayPalEnabled:       getEnvOrDefault("EVEREST_STRIPEPAYPAL", "false") == "true",
		LinkEnabled:         getEnvOrDefault("EVEREST_STRIPELINK", "false") == "true",
		IntentRetryAttempts: attempts,
		IntentRetryInterval: 2 * time.Second,
	}, nil
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
