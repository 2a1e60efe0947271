package payments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/db"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/gateway"
	"github.com/codr1/Padelicious/internal/locks"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/notify"
	"github.com/codr1/Padelicious/internal/notify/notifytest"
	"github.com/codr1/Padelicious/internal/storage"
	"github.com/codr1/Padelicious/internal/testutil"
)

type fakeGateway struct {
	mu     sync.Mutex
	calls  int
	err    error
	block  bool
	amount decimal.Decimal
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (gateway.Intent, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.amount = amount
	err, block := g.err, g.block
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return gateway.Intent{}, ctx.Err()
	}
	if err != nil {
		return gateway.Intent{}, err
	}
	return gateway.Intent{
		ID:           fmt.Sprintf("pi_test_%d", n),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", n),
	}, nil
}

type fixture struct {
	db       *db.DB
	engine   *Engine
	gateway  *fakeGateway
	recorder *notifytest.Recorder
	owner    dbgen.User
	staff    dbgen.User
	court    dbgen.Court
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		db:       testutil.NewTestDB(t),
		gateway:  &fakeGateway{},
		recorder: &notifytest.Recorder{},
	}
	f.owner = testutil.SeedUser(t, f.db, false)
	f.staff = testutil.SeedUser(t, f.db, true)
	f.court = testutil.SeedCourt(t, f.db)
	f.engine = f.newEngine(t, opts...)
	return f
}

func (f *fixture) newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithGateway(f.gateway),
		WithNotifier(f.recorder),
		WithEvidenceValidator(NewEvidenceValidator("VE")),
	}
	engine, err := NewEngine(f.db, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func (f *fixture) reservation(t *testing.T, start, end string) dbgen.Reservation {
	t.Helper()
	return testutil.SeedReservation(t, f.db, f.court.ID, f.owner.ID, "2030-03-04", start, end, "PENDING")
}

func (f *fixture) ownerActor() models.Actor { return models.Actor{UserID: f.owner.ID} }
func (f *fixture) staffActor() models.Actor { return models.Actor{UserID: f.staff.ID, IsStaff: true} }

func (f *fixture) submit(t *testing.T, reservationID int64, channel models.Channel, ev models.Evidence) Submission {
	t.Helper()
	sub, err := f.engine.SubmitPayment(context.Background(), SubmitParams{
		ReservationID: reservationID,
		Requester:     f.ownerActor(),
		Channel:       channel,
		Evidence:      ev,
	})
	if err != nil {
		t.Fatalf("submit %s: %v", channel, err)
	}
	return sub
}

func reservationStatus(t *testing.T, database *db.DB, id int64) string {
	t.Helper()
	row, err := database.Queries.GetReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	return row.Status
}

var mobileEvidence = models.Evidence{ReferenceDigits: "1234", Phone: "04141234567", Bank: "Banesco"}

func TestManualApprovalScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:00")

	_, err := f.engine.SubmitPayment(ctx, SubmitParams{
		ReservationID: r.ID,
		Requester:     f.ownerActor(),
		Channel:       models.ChannelMobileTransfer,
		Evidence:      models.Evidence{ReferenceDigits: "1234", Phone: "04141234567"},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for missing bank, got %v", err)
	}

	first := f.submit(t, r.ID, models.ChannelMobileTransfer, mobileEvidence)
	second := f.submit(t, r.ID, models.ChannelCash, models.Evidence{})
	if first.Payment.Status != models.PaymentPendingValidation {
		t.Fatalf("expected PENDING_VALIDATION, got %s", first.Payment.Status)
	}
	if !first.Payment.Amount.Equal(r.TotalAmount) {
		t.Fatalf("expected amount %s, got %s", r.TotalAmount, first.Payment.Amount)
	}
	if f.recorder.Count(notify.KindPaymentSubmitted) != 2 {
		t.Fatalf("expected staff notifications for both manual submissions")
	}

	approved, err := f.engine.ValidateManualPayment(ctx, first.Payment.ID, f.staffActor(), DecisionApprove, "matched statement")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.PaymentCompleted {
		t.Fatalf("expected COMPLETED, got %s", approved.Status)
	}
	if approved.ValidatedBy == nil || *approved.ValidatedBy != f.staff.ID {
		t.Fatalf("expected validated_by %d, got %v", f.staff.ID, approved.ValidatedBy)
	}
	if approved.CompletedAt == nil || approved.ValidationNotes != "matched statement" {
		t.Fatalf("expected completion details, got %+v", approved)
	}
	if got := reservationStatus(t, f.db, r.ID); got != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED reservation, got %s", got)
	}

	_, err = f.engine.ValidateManualPayment(ctx, second.Payment.ID, f.staffActor(), DecisionApprove, "")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on second approval, got %v", err)
	}

	state, err := f.engine.FundingState(ctx, r.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("funding state: %v", err)
	}
	if state != FundingPaid {
		t.Fatalf("expected PAID, got %s", state)
	}
}

func TestConcurrentApprovalsCompleteAtMostOne(t *testing.T) {
	f := newFixture(t)
	r := f.reservation(t, "10:00", "11:00")

	const attempts = 6
	ids := make([]int64, attempts)
	for i := range ids {
		ids[i] = f.submit(t, r.ID, models.ChannelCash, models.Evidence{}).Payment.ID
	}

	// Each engine has its own in-process locker, as separate servers would.
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i, id := range ids {
		engine := f.newEngine(t, WithLocker(locks.NewLocalLocker()))
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, err := engine.ValidateManualPayment(context.Background(), id, f.staffActor(), DecisionApprove, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrConflict):
			default:
				t.Errorf("approval %d: unexpected error %v", i, err)
			}
		}(i, id)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one approval, got %d", successes)
	}
	completed, err := f.db.Queries.ListPaymentsByStatus(context.Background(), "COMPLETED")
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("expected 1 COMPLETED payment, got %d", len(completed))
	}
}

func TestSubmitPaymentRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := testutil.SeedUser(t, f.db, false)

	_, err := f.engine.SubmitPayment(ctx, SubmitParams{ReservationID: 9999, Requester: f.ownerActor(), Channel: models.ChannelCash})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	r := f.reservation(t, "10:00", "11:00")
	_, err = f.engine.SubmitPayment(ctx, SubmitParams{ReservationID: r.ID, Requester: models.Actor{UserID: stranger.ID}, Channel: models.ChannelCash})
	if !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	cancelled := testutil.SeedReservation(t, f.db, f.court.ID, f.owner.ID, "2030-03-04", "12:00", "13:00", "CANCELLED")
	_, err = f.engine.SubmitPayment(ctx, SubmitParams{ReservationID: cancelled.ID, Requester: f.ownerActor(), Channel: models.ChannelCash})
	if apperr.CodeOf(err) != CodeReservationNotPayable {
		t.Fatalf("expected reservation_not_payable, got %v", err)
	}

	// Staff may record a payment on the owner's behalf.
	sub, err := f.engine.SubmitPayment(ctx, SubmitParams{ReservationID: r.ID, Requester: f.staffActor(), Channel: models.ChannelCash})
	if err != nil {
		t.Fatalf("staff submit: %v", err)
	}
	if sub.Payment.SubmittedBy != f.owner.ID {
		t.Fatalf("expected payment owned by reservation owner, got %d", sub.Payment.SubmittedBy)
	}
}

func TestPeerTransferProofMustBeUploaded(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	f := newFixture(t, WithProofStore(store))
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:00")

	peer := func(key string) SubmitParams {
		return SubmitParams{
			ReservationID: r.ID,
			Requester:     f.ownerActor(),
			Channel:       models.ChannelPeerTransfer,
			Evidence:      models.Evidence{ProofImageKey: key, CounterpartyEmail: "payer@example.com", HolderName: "Ana"},
		}
	}

	tests := []struct {
		name     string
		key      string
		wantCode string
	}{
		{"path traversal", "../../etc/passwd", "proofkey"},
		{"absolute path", "/etc/passwd", "proofkey"},
		{"never uploaded", "proofs/2030/03/missing.png", CodeProofMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.SubmitPayment(ctx, peer(tt.key))
			if !errors.Is(err, apperr.ErrValidation) || apperr.CodeOf(err) != tt.wantCode {
				t.Fatalf("expected validation %s, got %v", tt.wantCode, err)
			}
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Field != "proof_image_key" {
				t.Fatalf("expected proof_image_key field, got %v", err)
			}
		})
	}

	key, err := store.Put(ctx, "image/png", bytes.NewReader([]byte("\x89PNG\r\n\x1a\nproof")))
	if err != nil {
		t.Fatalf("put proof: %v", err)
	}
	sub, err := f.engine.SubmitPayment(ctx, peer(key))
	if err != nil {
		t.Fatalf("submit with uploaded proof: %v", err)
	}
	if sub.Payment.Status != models.PaymentPendingValidation || sub.Payment.Evidence.ProofImageKey != key {
		t.Fatalf("unexpected payment: %+v", sub.Payment)
	}
}

func TestGatewayReconciliation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:30")

	sub := f.submit(t, r.ID, models.ChannelGateway, models.Evidence{})
	if sub.Payment.Status != models.PaymentPending {
		t.Fatalf("expected PENDING, got %s", sub.Payment.Status)
	}
	if sub.ClientSecret == "" || sub.Payment.Evidence.ExternalTransactionID == "" {
		t.Fatalf("expected intent details, got %+v", sub)
	}
	if !f.gateway.amount.Equal(r.TotalAmount) {
		t.Fatalf("gateway charged %s, expected %s", f.gateway.amount, r.TotalAmount)
	}
	if f.recorder.Count(notify.KindPaymentSubmitted) != 0 {
		t.Fatalf("gateway payments should not notify staff")
	}

	txID := sub.Payment.Evidence.ExternalTransactionID
	paid, err := f.engine.ReconcileGatewayCallback(ctx, txID, gateway.OutcomeSucceeded)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if paid.Status != models.PaymentCompleted {
		t.Fatalf("expected COMPLETED, got %s", paid.Status)
	}
	if got := reservationStatus(t, f.db, r.ID); got != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED, got %s", got)
	}

	// Replays and late failures leave the completed payment alone.
	for _, outcome := range []gateway.Outcome{gateway.OutcomeSucceeded, gateway.OutcomeFailed} {
		again, err := f.engine.ReconcileGatewayCallback(ctx, txID, outcome)
		if err != nil {
			t.Fatalf("replay %s: %v", outcome, err)
		}
		if again.Status != models.PaymentCompleted {
			t.Fatalf("replay %s changed status to %s", outcome, again.Status)
		}
	}
	if f.recorder.Count(notify.KindPaymentStatus) != 1 {
		t.Fatalf("expected one status notification, got %d", f.recorder.Count(notify.KindPaymentStatus))
	}

	if _, err := f.engine.ReconcileGatewayCallback(ctx, "pi_unknown", gateway.OutcomeSucceeded); !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected not found for unknown transaction, got %v", err)
	}
}

func TestGatewayFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:00")

	first := f.submit(t, r.ID, models.ChannelGateway, models.Evidence{})
	failed, err := f.engine.ReconcileGatewayCallback(ctx, first.Payment.Evidence.ExternalTransactionID, gateway.OutcomeFailed)
	if err != nil {
		t.Fatalf("reconcile failure: %v", err)
	}
	if failed.Status != models.PaymentFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}
	if got := reservationStatus(t, f.db, r.ID); got != "PENDING" {
		t.Fatalf("reservation should stay PENDING, got %s", got)
	}
	if state, _ := f.engine.FundingState(ctx, r.ID, f.ownerActor()); state != FundingFailedRetryable {
		t.Fatalf("expected FAILED_RETRYABLE, got %s", state)
	}

	retry, err := f.engine.RetryPayment(ctx, r.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retry.Payment.Status != models.PaymentPending || retry.ClientSecret == "" {
		t.Fatalf("expected a fresh PENDING intent, got %+v", retry)
	}
	if retry.Payment.RetryOfPaymentID == nil || *retry.Payment.RetryOfPaymentID != first.Payment.ID {
		t.Fatalf("expected retry link to %d, got %v", first.Payment.ID, retry.Payment.RetryOfPaymentID)
	}
	if retry.Payment.Evidence.ExternalTransactionID == first.Payment.Evidence.ExternalTransactionID {
		t.Fatalf("retry must use a new transaction id")
	}

	// A success for a payment that already failed cannot be applied.
	_, err = f.engine.ReconcileGatewayCallback(ctx, first.Payment.Evidence.ExternalTransactionID, gateway.OutcomeSucceeded)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.recorder.Count(notify.KindPaymentConflict) != 1 {
		t.Fatalf("expected staff to be told about the conflicting callback")
	}

	payments, err := f.engine.ListPayments(ctx, r.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(payments) != 2 || payments[0].Status != models.PaymentFailed {
		t.Fatalf("failed payment must be preserved, got %+v", payments)
	}
}

func TestGatewayTimeoutIsRetryable(t *testing.T) {
	f := newFixture(t, WithGatewayTimeout(20*time.Millisecond))
	f.gateway.block = true
	r := f.reservation(t, "10:00", "11:00")

	start := time.Now()
	_, err := f.engine.SubmitPayment(context.Background(), SubmitParams{
		ReservationID: r.ID,
		Requester:     f.ownerActor(),
		Channel:       models.ChannelGateway,
	})
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || !appErr.Retryable() || appErr.Code != "gateway_timeout" {
		t.Fatalf("expected retryable gateway_timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("gateway call was not bounded: %s", elapsed)
	}

	payments, err := f.engine.ListPayments(context.Background(), r.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("no payment should be stored on timeout, got %d", len(payments))
	}
}

func TestGatewayErrorPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = apperr.Upstream("gateway_error", "card declined upstream", errors.New("boom"))
	r := f.reservation(t, "10:00", "11:00")

	_, err := f.engine.SubmitPayment(context.Background(), SubmitParams{
		ReservationID: r.ID,
		Requester:     f.ownerActor(),
		Channel:       models.ChannelGateway,
	})
	if apperr.CodeOf(err) != "gateway_error" {
		t.Fatalf("expected gateway_error, got %v", err)
	}
}

func TestRetryPaymentRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:00")

	if _, err := f.engine.RetryPayment(ctx, r.ID, f.ownerActor()); apperr.CodeOf(err) != CodeRetryNotAllowed {
		t.Fatalf("expected conflict with no payments, got %v", err)
	}

	sub := f.submit(t, r.ID, models.ChannelMobileTransfer, mobileEvidence)
	if _, err := f.engine.RetryPayment(ctx, r.ID, f.ownerActor()); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict while awaiting validation, got %v", err)
	}

	if _, err := f.engine.ValidateManualPayment(ctx, sub.Payment.ID, f.staffActor(), DecisionReject, "reference not found"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	stranger := testutil.SeedUser(t, f.db, false)
	if _, err := f.engine.RetryPayment(ctx, r.ID, models.Actor{UserID: stranger.ID}); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.engine.RetryPayment(ctx, 9999, f.ownerActor()); !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	retry, err := f.engine.RetryPayment(ctx, r.ID, f.ownerActor())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retry.Payment.Status != models.PaymentPendingValidation {
		t.Fatalf("expected PENDING_VALIDATION, got %s", retry.Payment.Status)
	}
	if retry.Payment.Channel != models.ChannelMobileTransfer || retry.Payment.Evidence.Bank != "Banesco" {
		t.Fatalf("retry should clone channel and evidence, got %+v", retry.Payment)
	}

	if _, err := f.engine.ValidateManualPayment(ctx, retry.Payment.ID, f.staffActor(), DecisionApprove, ""); err != nil {
		t.Fatalf("approve retry: %v", err)
	}
	if _, err := f.engine.RetryPayment(ctx, r.ID, f.ownerActor()); apperr.CodeOf(err) != CodeAlreadyPaid {
		t.Fatalf("expected already_paid after completion, got %v", err)
	}
}

func TestValidateManualPaymentRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.ValidateManualPayment(ctx, 9999, f.ownerActor(), DecisionApprove, ""); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected forbidden before lookup, got %v", err)
	}
	if _, err := f.engine.ValidateManualPayment(ctx, 9999, f.staffActor(), DecisionApprove, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	r := f.reservation(t, "10:00", "11:00")
	gw := f.submit(t, r.ID, models.ChannelGateway, models.Evidence{})
	if _, err := f.engine.ValidateManualPayment(ctx, gw.Payment.ID, f.staffActor(), DecisionApprove, ""); apperr.CodeOf(err) != CodeNotAwaitingValidation {
		t.Fatalf("gateway payments cannot be staff validated, got %v", err)
	}

	cash := f.submit(t, r.ID, models.ChannelCash, models.Evidence{})
	rejected, err := f.engine.ValidateManualPayment(ctx, cash.Payment.ID, f.staffActor(), DecisionReject, "no cash received")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.PaymentFailed || rejected.ValidationNotes != "no cash received" {
		t.Fatalf("unexpected rejected payment %+v", rejected)
	}
	if rejected.ValidatedBy == nil || rejected.CompletedAt != nil {
		t.Fatalf("rejection should record the validator only, got %+v", rejected)
	}
	if got := reservationStatus(t, f.db, r.ID); got != "PENDING" {
		t.Fatalf("rejection must not touch the reservation, got %s", got)
	}

	if _, err := f.engine.ValidateManualPayment(ctx, cash.Payment.ID, f.staffActor(), DecisionApprove, ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict validating twice, got %v", err)
	}
}

func TestDeletePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:00")
	stranger := testutil.SeedUser(t, f.db, false)

	pending := f.submit(t, r.ID, models.ChannelCash, models.Evidence{})
	if err := f.engine.DeletePayment(ctx, pending.Payment.ID, models.Actor{UserID: stranger.ID}); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.engine.DeletePayment(ctx, pending.Payment.ID, f.ownerActor()); err != nil {
		t.Fatalf("delete pending validation: %v", err)
	}
	if err := f.engine.DeletePayment(ctx, pending.Payment.ID, f.ownerActor()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	gw := f.submit(t, r.ID, models.ChannelGateway, models.Evidence{})
	if err := f.engine.DeletePayment(ctx, gw.Payment.ID, f.staffActor()); apperr.CodeOf(err) != CodeNotDeletable {
		t.Fatalf("in-flight gateway payment must not be deletable, got %v", err)
	}
	if _, err := f.engine.ReconcileGatewayCallback(ctx, gw.Payment.Evidence.ExternalTransactionID, gateway.OutcomeSucceeded); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if err := f.engine.DeletePayment(ctx, gw.Payment.ID, f.staffActor()); apperr.CodeOf(err) != CodeNotDeletable {
		t.Fatalf("completed payment must not be deletable, got %v", err)
	}
}

func TestDeleteFailedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:00")
	failed := testutil.SeedPayment(t, f.db, r.ID, f.owner.ID, "MOBILE_TRANSFER", "FAILED")

	if err := f.engine.DeletePayment(ctx, failed.ID, f.staffActor()); err != nil {
		t.Fatalf("delete failed payment: %v", err)
	}
}

func TestListAwaitingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reservation(t, "10:00", "11:00")
	f.submit(t, r.ID, models.ChannelCash, models.Evidence{})
	f.submit(t, r.ID, models.ChannelGateway, models.Evidence{})

	if _, err := f.engine.ListAwaitingValidation(ctx, f.ownerActor()); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected forbidden for members, got %v", err)
	}
	queue, err := f.engine.ListAwaitingValidation(ctx, f.staffActor())
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 1 || queue[0].Channel != models.ChannelCash {
		t.Fatalf("expected only the cash payment, got %+v", queue)
	}
}
