// Package gateway talks to Stripe: it creates payment intents and verifies
// webhook deliveries.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/codr1/Padelicious/internal/apperr"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// Event is a verified webhook delivery. Relevant is false for event types
// that do not settle a payment.
type Event struct {
	ID            string
	Type          string
	TransactionID string
	Outcome       Outcome
	Relevant      bool
}

type StripeClient struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
}

type StripeOption func(*stripe.BackendConfig)

// WithAPIURL points the client at a different API host, e.g. a local stub.
func WithAPIURL(url string) StripeOption {
	return func(cfg *stripe.BackendConfig) {
		cfg.URL = stripe.String(url)
	}
}

func NewStripeClient(secretKey, webhookSecret string, timeout time.Duration, opts ...StripeOption) (*StripeClient, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}

	return &StripeClient{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}, nil
}

// CreateIntent creates a PaymentIntent for amount. Failures, including
// timeouts, are returned as retryable upstream errors.
func (c *StripeClient) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	minor, err := ToMinorUnits(amount)
	if err != nil {
		return Intent{}, apperr.Validation("amount", "invalid_amount", err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		if isTimeout(ctx, err) {
			return Intent{}, apperr.Upstream("gateway_timeout", "payment gateway timed out", err)
		}
		return Intent{}, apperr.Upstream("gateway_error", "payment gateway rejected the request", err)
	}

	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// VerifyWebhookSignature checks the Stripe-Signature header against the
// configured secret and extracts the payment intent the event refers to.
func (c *StripeClient) VerifyWebhookSignature(payload []byte, signature string) (Event, error) {
	return VerifyWebhookSignature(payload, signature, c.webhookSecret)
}

func VerifyWebhookSignature(payload []byte, signature, secret string) (Event, error) {
	if secret == "" {
		return Event{}, apperr.Upstream("webhook_unconfigured", "webhook secret is not configured", nil)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, apperr.Upstream("invalid_signature", "webhook signature verification failed", err)
	}

	out := Event{ID: evt.ID, Type: string(evt.Type)}
	switch out.Type {
	case EventPaymentSucceeded:
		out.Outcome = OutcomeSucceeded
	case EventPaymentFailed:
		out.Outcome = OutcomeFailed
	default:
		return out, nil
	}

	if evt.Data == nil {
		return Event{}, apperr.Validation("data", "invalid_event", "webhook event has no data")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return Event{}, apperr.Validation("data", "invalid_event", "webhook event data is not a payment intent")
	}
	if pi.ID == "" {
		return Event{}, apperr.Validation("data", "invalid_event", "webhook payment intent has no id")
	}
	out.TransactionID = pi.ID
	out.Relevant = true
	return out, nil
}

// ToMinorUnits converts a 2-decimal amount to integer cents.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() || amount.IsZero() {
		return 0, fmt.Errorf("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return 0, fmt.Errorf("amount %s has more than 2 decimal places", amount)
	}
	return amount.Shift(2).IntPart(), nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
