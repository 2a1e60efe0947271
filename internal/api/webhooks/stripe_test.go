package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/gateway"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/payments"
	"github.com/codr1/Padelicious/internal/testutil"
)

const webhookSecret = "whsec_webhook_test"

type secretVerifier string

func (s secretVerifier) VerifyWebhookSignature(payload []byte, signature string) (gateway.Event, error) {
	return gateway.VerifyWebhookSignature(payload, signature, string(s))
}

type fixedGateway struct{ id string }

func (g fixedGateway) CreateIntent(context.Context, decimal.Decimal, string, map[string]string) (gateway.Intent, error) {
	return gateway.Intent{ID: g.id, ClientSecret: g.id + "_secret"}, nil
}

type stubReconciler struct{ err error }

func (s stubReconciler) ReconcileGatewayCallback(context.Context, string, gateway.Outcome) (models.Payment, error) {
	return models.Payment{}, s.err
}

func sign(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func event(eventType, intentID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_%s","object":"event","type":%q,"api_version":"2020-08-27","data":{"object":{"id":%q,"object":"payment_intent"}}}`,
		intentID, eventType, intentID))
}

func post(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	HandleStripeWebhook(rec, req)
	return rec
}

func withHandlers(t *testing.T, v Verifier, r Reconciler) {
	t.Helper()
	prevV, prevR := verifier, reconciler
	t.Cleanup(func() { verifier, reconciler = prevV, prevR })
	InitHandlers(v, r)
}

func TestStripeWebhookConfirmsReservation(t *testing.T) {
	database := testutil.NewTestDB(t)
	owner := testutil.SeedUser(t, database, false)
	court := testutil.SeedCourt(t, database)
	res := testutil.SeedReservation(t, database, court.ID, owner.ID, "2030-03-05", "10:00", "11:00", "PENDING")

	engine, err := payments.NewEngine(database, payments.WithGateway(fixedGateway{id: "pi_hook_1"}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	_, err = engine.SubmitPayment(context.Background(), payments.SubmitParams{
		ReservationID: res.ID,
		Requester:     models.Actor{UserID: owner.ID},
		Channel:       models.ChannelGateway,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	withHandlers(t, secretVerifier(webhookSecret), engine)

	payload := event(gateway.EventPaymentSucceeded, "pi_hook_1")
	if rec := post(payload, sign(payload)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	row, err := database.Queries.GetReservation(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("reload reservation: %v", err)
	}
	if row.Status != string(models.ReservationConfirmed) {
		t.Fatalf("expected CONFIRMED, got %s", row.Status)
	}

	// Replays are acknowledged without changing anything.
	if rec := post(payload, sign(payload)); rec.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", rec.Code)
	}

	late := event(gateway.EventPaymentFailed, "pi_hook_1")
	if rec := post(late, sign(late)); rec.Code != http.StatusOK {
		t.Fatalf("late failure: expected 200, got %d", rec.Code)
	}

	unknown := event(gateway.EventPaymentSucceeded, "pi_unknown")
	if rec := post(unknown, sign(unknown)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown intent: expected 404 so Stripe retries, got %d", rec.Code)
	}
}

func TestStripeWebhookResponses(t *testing.T) {
	relevant := event(gateway.EventPaymentSucceeded, "pi_1")

	tests := []struct {
		name       string
		reconciler Reconciler
		payload    []byte
		signature  string
		status     int
	}{
		{"bad signature", stubReconciler{}, relevant, "t=1,v1=deadbeef", http.StatusBadRequest},
		{"ignored event type", stubReconciler{err: errors.New("must not be called")}, event("customer.created", "cus_1"), "", http.StatusOK},
		{"conflict acknowledged", stubReconciler{err: apperr.Conflict("already_paid", "reservation is already paid")}, relevant, "", http.StatusOK},
		{"internal error retried", stubReconciler{err: errors.New("database is locked")}, relevant, "", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withHandlers(t, secretVerifier(webhookSecret), tt.reconciler)
			sig := tt.signature
			if sig == "" {
				sig = sign(tt.payload)
			}
			if rec := post(tt.payload, sig); rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStripeWebhookUnconfigured(t *testing.T) {
	withHandlers(t, nil, nil)
	if rec := post([]byte(`{}`), "t=1,v1=00"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
