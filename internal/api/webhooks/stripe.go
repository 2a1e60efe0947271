// Package webhooks receives payment gateway callbacks.
package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/apiutil"
	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/gateway"
	"github.com/codr1/Padelicious/internal/models"
)

const maxWebhookBody = 64 << 10

// Verifier is satisfied by *gateway.StripeClient.
type Verifier interface {
	VerifyWebhookSignature(payload []byte, signature string) (gateway.Event, error)
}

// Reconciler is satisfied by *payments.Engine.
type Reconciler interface {
	ReconcileGatewayCallback(ctx context.Context, externalTxnID string, outcome gateway.Outcome) (models.Payment, error)
}

var (
	verifier   Verifier
	reconciler Reconciler
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(v Verifier, r Reconciler) {
	verifier = v
	reconciler = r
}

// POST /api/v1/webhooks/stripe
// Non-2xx responses make Stripe redeliver, so only failures a retry could fix
// return one.
func HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if verifier == nil || reconciler == nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: "card payments are not configured"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "unreadable webhook body", Err: err})
		return
	}

	event, err := verifier.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn().Err(err).Str("code", apperr.CodeOf(err)).Msg("Rejected Stripe webhook")
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid webhook", Err: err})
		return
	}

	eventLogger := logger.With().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("transaction_id", event.TransactionID).
		Logger()

	if !event.Relevant {
		eventLogger.Debug().Msg("Ignoring Stripe event")
		w.WriteHeader(http.StatusOK)
		return
	}

	payment, err := reconciler.ReconcileGatewayCallback(r.Context(), event.TransactionID, event.Outcome)
	switch {
	case err == nil:
		eventLogger.Info().
			Int64("payment_id", payment.ID).
			Str("status", payment.Status.String()).
			Msg("Stripe event reconciled")
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, apperr.ErrConflict):
		// Redelivery cannot resolve a conflict; staff were notified.
		eventLogger.Warn().Err(err).Str("code", apperr.CodeOf(err)).Msg("Stripe event conflicts with payment state")
		w.WriteHeader(http.StatusOK)
	default:
		eventLogger.Warn().Err(err).Msg("Failed to reconcile Stripe event")
		apiutil.WriteError(w, r, err)
	}
}
