// Package payments reconciles a reservation's confirmation against payments
// arriving from the card gateway and from manually validated transfers.
package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/db"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/gateway"
	"github.com/codr1/Padelicious/internal/locks"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/notify"
	"github.com/codr1/Padelicious/internal/storage"
)

const (
	CodeAlreadyPaid           = "already_paid"
	CodeProofMissing          = "proof_missing"
	CodeReservationNotPayable = "reservation_not_payable"
	CodeNotAwaitingValidation = "not_awaiting_validation"
	CodeRetryNotAllowed       = "retry_not_allowed"
	CodeNotDeletable          = "not_deletable"
	CodeInvalidTransition     = "invalid_transition"
)

// Gateway creates card payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (gateway.Intent, error)
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionApprove, DecisionReject:
		return d, nil
	}
	return "", apperr.Validation("decision", "invalid_decision", "decision must be approve or reject")
}

type SubmitParams struct {
	ReservationID int64
	Requester     models.Actor
	Channel       models.Channel
	Evidence      models.Evidence
}

// Submission is a stored payment plus, for gateway payments, the client
// secret the payer needs to complete the intent.
type Submission struct {
	Payment      models.Payment `json:"payment"`
	ClientSecret string         `json:"client_secret,omitempty"`
}

type Engine struct {
	db             *db.DB
	locker         locks.Locker
	notifier       notify.Dispatcher
	gateway        Gateway
	evidence       *EvidenceValidator
	proofs         storage.ProofStore
	currency       string
	gatewayTimeout time.Duration
	now            func() time.Time
	logger         zerolog.Logger
}

type Option func(*Engine)

func WithLocker(l locks.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithNotifier(n notify.Dispatcher) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithGateway(g Gateway) Option {
	return func(e *Engine) { e.gateway = g }
}

func WithEvidenceValidator(v *EvidenceValidator) Option {
	return func(e *Engine) { e.evidence = v }
}

// WithProofStore makes peer-transfer submissions check that the proof image
// exists in store.
func WithProofStore(store storage.ProofStore) Option {
	return func(e *Engine) { e.proofs = store }
}

func WithCurrency(currency string) Option {
	return func(e *Engine) { e.currency = strings.ToUpper(currency) }
}

func WithGatewayTimeout(d time.Duration) Option {
	return func(e *Engine) { e.gatewayTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(database *db.DB, opts ...Option) (*Engine, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	e := &Engine{
		db:             database,
		locker:         locks.NewLocalLocker(),
		notifier:       notify.Nop{},
		currency:       "USD",
		gatewayTimeout: 10 * time.Second,
		now:            time.Now,
		logger:         log.With().Str("component", "payments").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.evidence == nil {
		e.evidence = NewEvidenceValidator("")
	}
	return e, nil
}

// SubmitPayment records a payment attempt for a PENDING reservation. Gateway
// payments create a payment intent and wait for the webhook; manual channels
// wait for staff validation.
func (e *Engine) SubmitPayment(ctx context.Context, params SubmitParams) (Submission, error) {
	evidence, err := e.evidence.Validate(params.Channel, params.Evidence)
	if err != nil {
		return Submission{}, err
	}
	if evidence.ProofImageKey != "" {
		if err := e.checkProof(ctx, evidence.ProofImageKey); err != nil {
			return Submission{}, err
		}
	}

	reservation, err := loadReservation(ctx, e.db.Queries, params.ReservationID)
	if err != nil {
		return Submission{}, err
	}
	if !params.Requester.CanAccess(reservation.UserID) {
		return Submission{}, apperr.Forbidden("only the owner or staff may pay for this reservation")
	}

	unlock, err := e.locker.Lock(ctx, locks.ReservationKey(reservation.ID))
	if err != nil {
		return Submission{}, fmt.Errorf("acquire reservation lock: %w", err)
	}
	defer unlock()

	// Re-read under the lock; approvals and webhooks hold the same key.
	reservation, err = loadReservation(ctx, e.db.Queries, reservation.ID)
	if err != nil {
		return Submission{}, err
	}
	if err := e.checkPayable(ctx, e.db.Queries, reservation); err != nil {
		return Submission{}, err
	}

	submission, err := e.createAttempt(ctx, attempt{
		reservation: reservation,
		submittedBy: reservation.UserID,
		channel:     params.Channel,
		evidence:    evidence,
	})
	if err != nil {
		return Submission{}, err
	}

	e.logger.Info().
		Int64("payment_id", submission.Payment.ID).
		Int64("reservation_id", reservation.ID).
		Str("channel", params.Channel.String()).
		Str("status", submission.Payment.Status.String()).
		Msg("Payment submitted")

	return submission, nil
}

func (e *Engine) checkProof(ctx context.Context, key string) error {
	if e.proofs == nil {
		return nil
	}
	rc, err := e.proofs.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.Validation("proof_image_key", CodeProofMissing, "proof image was not found; upload it first")
	}
	if err != nil {
		return fmt.Errorf("open proof image: %w", err)
	}
	return rc.Close()
}

// ReconcileGatewayCallback applies a gateway outcome to the payment holding
// externalTxnID. Replays and late failures of a completed payment are no-ops.
func (e *Engine) ReconcileGatewayCallback(ctx context.Context, externalTxnID string, outcome gateway.Outcome) (models.Payment, error) {
	if externalTxnID == "" {
		return models.Payment{}, apperr.Validation("transaction_id", "required", "transaction id is required")
	}
	if outcome != gateway.OutcomeSucceeded && outcome != gateway.OutcomeFailed {
		return models.Payment{}, apperr.Validation("outcome", "invalid_outcome", fmt.Sprintf("unknown outcome %q", outcome))
	}

	row, err := e.db.Queries.GetPaymentByExternalTransactionID(ctx, externalTxnID)
	switch err = db.NotFound(err); {
	case errors.Is(err, db.ErrNotFound):
		return models.Payment{}, apperr.NotFoundCause("payment", err)
	case err != nil:
		return models.Payment{}, fmt.Errorf("load payment: %w", err)
	}

	unlock, err := e.locker.Lock(ctx, locks.ReservationKey(row.ReservationID))
	if err != nil {
		return models.Payment{}, fmt.Errorf("acquire reservation lock: %w", err)
	}
	defer unlock()

	logger := e.logger.With().
		Int64("payment_id", row.ID).
		Int64("reservation_id", row.ReservationID).
		Str("transaction_id", externalTxnID).
		Str("outcome", string(outcome)).
		Logger()

	var (
		result  models.Payment
		changed bool
	)
	err = e.db.RunInTx(ctx, func(tx *db.DB) error {
		payment, err := loadPayment(ctx, tx.Queries, row.ID)
		if err != nil {
			return err
		}
		result = payment

		switch {
		case payment.Status == models.PaymentCompleted || payment.Status == models.PaymentRefunded:
			return nil
		case payment.Status == models.PaymentFailed && outcome == gateway.OutcomeFailed:
			return nil
		case payment.Status != models.PaymentPending:
			return apperr.Conflict(CodeInvalidTransition,
				fmt.Sprintf("payment is %s and cannot take a %s outcome", payment.Status, outcome))
		}

		now := e.now().UTC()
		if outcome == gateway.OutcomeFailed {
			result, err = transitionPayment(ctx, tx.Queries, payment, models.PaymentFailed, statusUpdate{at: now})
			changed = err == nil
			return err
		}

		result, err = e.complete(ctx, tx.Queries, payment, statusUpdate{at: now})
		changed = err == nil
		return err
	})
	if err != nil {
		if apperr.CodeOf(err) == CodeAlreadyPaid || apperr.CodeOf(err) == CodeInvalidTransition {
			logger.Warn().Err(err).Msg("Gateway outcome conflicts with payment state")
			e.notifier.NotifyStaff(ctx, notify.KindPaymentConflict,
				"Gateway payment needs review",
				fmt.Sprintf("Gateway transaction %s for reservation %d reported %s but could not be applied: %v. A refund may be required.",
					externalTxnID, row.ReservationID, outcome, err),
			)
		}
		return models.Payment{}, err
	}

	if !changed {
		logger.Info().Str("status", result.Status.String()).Msg("Gateway callback already applied")
		return result, nil
	}

	logger.Info().Str("status", result.Status.String()).Msg("Gateway callback reconciled")
	e.notifyStatus(ctx, result)
	return result, nil
}

// ValidateManualPayment lets staff approve or reject a PENDING_VALIDATION
// payment. Approval confirms the reservation in the same transaction.
func (e *Engine) ValidateManualPayment(ctx context.Context, paymentID int64, staff models.Actor, decision Decision, notes string) (models.Payment, error) {
	if !staff.IsStaff {
		return models.Payment{}, apperr.Forbidden("only staff may validate payments")
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return models.Payment{}, apperr.Validation("decision", "invalid_decision", "decision must be approve or reject")
	}

	payment, err := loadPayment(ctx, e.db.Queries, paymentID)
	if err != nil {
		return models.Payment{}, err
	}
	if payment.Status != models.PaymentPendingValidation {
		return models.Payment{}, apperr.Conflict(CodeNotAwaitingValidation,
			fmt.Sprintf("payment is %s, not awaiting validation", payment.Status))
	}

	unlock, err := e.locker.Lock(ctx, locks.ReservationKey(payment.ReservationID))
	if err != nil {
		return models.Payment{}, fmt.Errorf("acquire reservation lock: %w", err)
	}
	defer unlock()

	var result models.Payment
	err = e.db.RunInTx(ctx, func(tx *db.DB) error {
		current, err := loadPayment(ctx, tx.Queries, paymentID)
		if err != nil {
			return err
		}
		if current.Status != models.PaymentPendingValidation {
			return apperr.Conflict(CodeNotAwaitingValidation,
				fmt.Sprintf("payment is %s, not awaiting validation", current.Status))
		}

		update := statusUpdate{
			at:          e.now().UTC(),
			validatedBy: staff.UserID,
			notes:       strings.TrimSpace(notes),
			validated:   true,
		}
		if decision == DecisionReject {
			result, err = transitionPayment(ctx, tx.Queries, current, models.PaymentFailed, update)
			return err
		}
		result, err = e.complete(ctx, tx.Queries, current, update)
		return err
	})
	if err != nil {
		return models.Payment{}, err
	}

	e.logger.Info().
		Int64("payment_id", result.ID).
		Int64("reservation_id", result.ReservationID).
		Int64("staff_id", staff.UserID).
		Str("decision", string(decision)).
		Msg("Manual payment validated")

	e.notifyStatus(ctx, result)
	return result, nil
}

// RetryPayment supersedes the requester's latest FAILED payment with a new
// attempt on the same channel and evidence. The failed row is kept.
func (e *Engine) RetryPayment(ctx context.Context, reservationID int64, requester models.Actor) (Submission, error) {
	reservation, err := loadReservation(ctx, e.db.Queries, reservationID)
	if err != nil {
		return Submission{}, err
	}
	if !requester.CanAccess(reservation.UserID) {
		return Submission{}, apperr.Forbidden("only the owner or staff may retry this payment")
	}

	unlock, err := e.locker.Lock(ctx, locks.ReservationKey(reservation.ID))
	if err != nil {
		return Submission{}, fmt.Errorf("acquire reservation lock: %w", err)
	}
	defer unlock()

	reservation, err = loadReservation(ctx, e.db.Queries, reservationID)
	if err != nil {
		return Submission{}, err
	}
	payments, err := listPayments(ctx, e.db.Queries, reservation.ID)
	if err != nil {
		return Submission{}, err
	}
	if hasCompleted(payments) {
		return Submission{}, apperr.Conflict(CodeAlreadyPaid, "reservation is already paid")
	}

	owned := payments
	if !requester.IsStaff {
		owned = paymentsSubmittedBy(payments, requester.UserID)
	}
	latest, ok := latestPayment(owned)
	if !ok {
		return Submission{}, apperr.Conflict(CodeRetryNotAllowed, "there is no failed payment to retry")
	}
	if latest.Status != models.PaymentFailed {
		return Submission{}, apperr.Conflict(CodeRetryNotAllowed,
			fmt.Sprintf("latest payment is %s; only a failed payment can be retried", latest.Status))
	}
	if reservation.Status != models.ReservationPending {
		return Submission{}, apperr.Conflict(CodeReservationNotPayable,
			fmt.Sprintf("reservation is %s", reservation.Status))
	}

	evidence := latest.Evidence
	evidence.ExternalTransactionID = ""
	submission, err := e.createAttempt(ctx, attempt{
		reservation: reservation,
		submittedBy: latest.SubmittedBy,
		channel:     latest.Channel,
		evidence:    evidence,
		retryOf:     latest.ID,
	})
	if err != nil {
		return Submission{}, err
	}

	e.logger.Info().
		Int64("payment_id", submission.Payment.ID).
		Int64("retry_of", latest.ID).
		Int64("reservation_id", reservation.ID).
		Msg("Payment retried")

	return submission, nil
}

// DeletePayment removes a FAILED or PENDING_VALIDATION payment.
func (e *Engine) DeletePayment(ctx context.Context, paymentID int64, requester models.Actor) error {
	payment, err := loadPayment(ctx, e.db.Queries, paymentID)
	if err != nil {
		return err
	}
	reservation, err := loadReservation(ctx, e.db.Queries, payment.ReservationID)
	if err != nil {
		return err
	}
	if !requester.CanAccess(reservation.UserID) && !requester.CanAccess(payment.SubmittedBy) {
		return apperr.Forbidden("only the owner or staff may delete this payment")
	}
	if !payment.Status.Deletable() {
		return apperr.Conflict(CodeNotDeletable,
			fmt.Sprintf("a %s payment cannot be deleted", payment.Status))
	}

	unlock, err := e.locker.Lock(ctx, locks.ReservationKey(payment.ReservationID))
	if err != nil {
		return fmt.Errorf("acquire reservation lock: %w", err)
	}
	defer unlock()

	n, err := e.db.Queries.DeletePayment(ctx, payment.ID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if n == 0 {
		return apperr.Conflict(CodeNotDeletable, "payment changed and can no longer be deleted")
	}

	e.logger.Info().
		Int64("payment_id", payment.ID).
		Int64("reservation_id", payment.ReservationID).
		Int64("actor_id", requester.UserID).
		Msg("Payment deleted")
	return nil
}

func (e *Engine) GetPayment(ctx context.Context, paymentID int64, actor models.Actor) (models.Payment, error) {
	payment, err := loadPayment(ctx, e.db.Queries, paymentID)
	if err != nil {
		return models.Payment{}, err
	}
	if actor.IsStaff || actor.CanAccess(payment.SubmittedBy) {
		return payment, nil
	}
	reservation, err := loadReservation(ctx, e.db.Queries, payment.ReservationID)
	if err != nil {
		return models.Payment{}, err
	}
	if !actor.CanAccess(reservation.UserID) {
		return models.Payment{}, apperr.Forbidden("payment belongs to another user")
	}
	return payment, nil
}

func (e *Engine) ListPayments(ctx context.Context, reservationID int64, actor models.Actor) ([]models.Payment, error) {
	reservation, err := loadReservation(ctx, e.db.Queries, reservationID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(reservation.UserID) {
		return nil, apperr.Forbidden("reservation belongs to another user")
	}
	return listPayments(ctx, e.db.Queries, reservation.ID)
}

// ListAwaitingValidation is the staff queue of manual payments, oldest first.
func (e *Engine) ListAwaitingValidation(ctx context.Context, actor models.Actor) ([]models.Payment, error) {
	if !actor.IsStaff {
		return nil, apperr.Forbidden("only staff may view the validation queue")
	}
	rows, err := e.db.Queries.ListPaymentsByStatus(ctx, string(models.PaymentPendingValidation))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return models.PaymentsFromRows(rows)
}

func (e *Engine) FundingState(ctx context.Context, reservationID int64, actor models.Actor) (FundingState, error) {
	payments, err := e.ListPayments(ctx, reservationID, actor)
	if err != nil {
		return "", err
	}
	return FundingStateOf(payments), nil
}

type attempt struct {
	reservation models.Reservation
	submittedBy int64
	channel     models.Channel
	evidence    models.Evidence
	retryOf     int64
}

// createAttempt stores a new payment. Callers hold the reservation lock and
// have checked that the reservation is payable.
func (e *Engine) createAttempt(ctx context.Context, a attempt) (Submission, error) {
	var clientSecret string
	if a.channel == models.ChannelGateway {
		intent, err := e.createIntent(ctx, a.reservation, a.retryOf)
		if err != nil {
			return Submission{}, err
		}
		a.evidence = models.Evidence{ExternalTransactionID: intent.ID}
		clientSecret = intent.ClientSecret
	}

	now := e.now().UTC()
	params := dbgen.CreatePaymentParams{
		ReservationID:         a.reservation.ID,
		SubmittedBy:           a.submittedBy,
		Amount:                a.reservation.TotalAmount,
		Currency:              e.currency,
		Channel:               string(a.channel),
		Status:                string(a.channel.InitialStatus()),
		ExternalTransactionID: models.NullString(a.evidence.ExternalTransactionID),
		ReferenceDigits:       models.NullString(a.evidence.ReferenceDigits),
		Phone:                 models.NullString(a.evidence.Phone),
		Bank:                  models.NullString(a.evidence.Bank),
		CounterpartyEmail:     models.NullString(a.evidence.CounterpartyEmail),
		HolderName:            models.NullString(a.evidence.HolderName),
		ProofImageKey:         models.NullString(a.evidence.ProofImageKey),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if a.retryOf > 0 {
		params.RetryOfPaymentID = sql.NullInt64{Int64: a.retryOf, Valid: true}
	}

	var payment models.Payment
	err := e.db.RunInTx(ctx, func(tx *db.DB) error {
		if err := e.checkPayable(ctx, tx.Queries, a.reservation); err != nil {
			return err
		}
		row, err := tx.Queries.CreatePayment(ctx, params)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Conflict("duplicate_transaction", "payment transaction already recorded")
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		payment, err = models.PaymentFromRow(row)
		return err
	})
	if err != nil {
		return Submission{}, err
	}

	if a.channel.IsManual() {
		e.notifier.NotifyStaff(ctx, notify.KindPaymentSubmitted,
			"Payment awaiting validation",
			fmt.Sprintf("A %s payment of %s %s for reservation %d on %s is waiting for validation.",
				strings.ToLower(strings.ReplaceAll(a.channel.String(), "_", " ")),
				payment.Amount.StringFixed(2), payment.Currency, a.reservation.ID, a.reservation.Date),
		)
	}
	return Submission{Payment: payment, ClientSecret: clientSecret}, nil
}

func (e *Engine) createIntent(ctx context.Context, reservation models.Reservation, retryOf int64) (gateway.Intent, error) {
	if e.gateway == nil {
		return gateway.Intent{}, apperr.Validation("channel", "channel_unavailable", "card payments are not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	defer cancel()

	metadata := map[string]string{
		"reservation_id": strconv.FormatInt(reservation.ID, 10),
		"user_id":        strconv.FormatInt(reservation.UserID, 10),
	}
	if retryOf > 0 {
		metadata["retry_of_payment_id"] = strconv.FormatInt(retryOf, 10)
	}

	intent, err := e.gateway.CreateIntent(ctx, reservation.TotalAmount, e.currency, metadata)
	if err != nil {
		e.logger.Warn().Err(err).Int64("reservation_id", reservation.ID).Msg("Payment intent creation failed")
		if kind := apperr.KindOf(err); kind == apperr.KindUpstream || kind == apperr.KindValidation {
			return gateway.Intent{}, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return gateway.Intent{}, apperr.Upstream("gateway_timeout", "payment gateway timed out", err)
		}
		return gateway.Intent{}, apperr.Upstream("gateway_error", "payment gateway request failed", err)
	}
	if intent.ID == "" {
		return gateway.Intent{}, apperr.Upstream("gateway_error", "payment gateway returned no intent id", nil)
	}
	return intent, nil
}

// checkPayable requires a PENDING reservation with no COMPLETED payment.
func (e *Engine) checkPayable(ctx context.Context, q dbgen.Querier, reservation models.Reservation) error {
	current, err := loadReservation(ctx, q, reservation.ID)
	if err != nil {
		return err
	}
	if current.Status != models.ReservationPending {
		return apperr.Conflict(CodeReservationNotPayable,
			fmt.Sprintf("reservation is %s and cannot take payments", current.Status))
	}
	completed, err := q.CountOtherCompletedPayments(ctx, dbgen.CountOtherCompletedPaymentsParams{
		ReservationID: reservation.ID,
	})
	if err != nil {
		return fmt.Errorf("count completed payments: %w", err)
	}
	if completed > 0 {
		return apperr.Conflict(CodeAlreadyPaid, "reservation is already paid")
	}
	return nil
}

// complete moves payment to COMPLETED and its reservation to CONFIRMED.
func (e *Engine) complete(ctx context.Context, q dbgen.Querier, payment models.Payment, update statusUpdate) (models.Payment, error) {
	others, err := q.CountOtherCompletedPayments(ctx, dbgen.CountOtherCompletedPaymentsParams{
		ReservationID: payment.ReservationID,
		ExcludeID:     payment.ID,
	})
	if err != nil {
		return models.Payment{}, fmt.Errorf("count completed payments: %w", err)
	}
	if others > 0 {
		return models.Payment{}, apperr.Conflict(CodeAlreadyPaid, "another payment already completed this reservation")
	}

	reservation, err := loadReservation(ctx, q, payment.ReservationID)
	if err != nil {
		return models.Payment{}, err
	}
	if !reservation.Status.CanTransitionTo(models.ReservationConfirmed) {
		return models.Payment{}, apperr.Conflict(CodeReservationNotPayable,
			fmt.Sprintf("reservation is %s and cannot be confirmed", reservation.Status))
	}

	update.completed = true
	completed, err := transitionPayment(ctx, q, payment, models.PaymentCompleted, update)
	if err != nil {
		return models.Payment{}, err
	}

	n, err := q.UpdateReservationStatus(ctx, dbgen.UpdateReservationStatusParams{
		ToStatus:   string(models.ReservationConfirmed),
		UpdatedAt:  update.at,
		ID:         reservation.ID,
		FromStatus: string(reservation.Status),
	})
	if err != nil {
		return models.Payment{}, fmt.Errorf("confirm reservation: %w", err)
	}
	if n == 0 {
		return models.Payment{}, apperr.Conflict(CodeReservationNotPayable, "reservation changed concurrently")
	}
	return completed, nil
}

type statusUpdate struct {
	at          time.Time
	validatedBy int64
	notes       string
	validated   bool
	completed   bool
}

// transitionPayment writes a status change guarded by the current status.
func transitionPayment(ctx context.Context, q dbgen.Querier, payment models.Payment, to models.PaymentStatus, update statusUpdate) (models.Payment, error) {
	if !payment.Status.CanTransitionTo(to) {
		return models.Payment{}, apperr.Conflict(CodeInvalidTransition,
			fmt.Sprintf("payment cannot move from %s to %s", payment.Status, to))
	}

	params := dbgen.UpdatePaymentStatusParams{
		ToStatus:   string(to),
		UpdatedAt:  update.at,
		ID:         payment.ID,
		FromStatus: string(payment.Status),
	}
	if update.validated {
		params.ValidatedBy = sql.NullInt64{Int64: update.validatedBy, Valid: update.validatedBy > 0}
		params.ValidationNotes = sql.NullString{String: update.notes, Valid: true}
		params.ValidatedAt = sql.NullTime{Time: update.at, Valid: true}
	}
	if update.completed {
		params.CompletedAt = sql.NullTime{Time: update.at, Valid: true}
	}

	n, err := q.UpdatePaymentStatus(ctx, params)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Payment{}, apperr.Conflict(CodeAlreadyPaid, "another payment already completed this reservation")
		}
		return models.Payment{}, fmt.Errorf("update payment status: %w", err)
	}
	if n == 0 {
		return models.Payment{}, apperr.Conflict(CodeInvalidTransition, "payment changed concurrently")
	}
	return loadPayment(ctx, q, payment.ID)
}

func (e *Engine) notifyStatus(ctx context.Context, payment models.Payment) {
	var title, message string
	switch payment.Status {
	case models.PaymentCompleted:
		title = "Payment confirmed"
		message = fmt.Sprintf("Your payment of %s %s was confirmed and your reservation is booked.",
			payment.Amount.StringFixed(2), payment.Currency)
	case models.PaymentFailed:
		title = "Payment failed"
		message = fmt.Sprintf("Your payment of %s %s could not be confirmed. You can retry it from your reservation.",
			payment.Amount.StringFixed(2), payment.Currency)
		if payment.ValidationNotes != "" {
			message += " Notes: " + payment.ValidationNotes
		}
	default:
		return
	}
	e.notifier.Notify(ctx, payment.SubmittedBy, notify.KindPaymentStatus, title, message)
}

func paymentsSubmittedBy(payments []models.Payment, userID int64) []models.Payment {
	var out []models.Payment
	for _, p := range payments {
		if p.SubmittedBy == userID {
			out = append(out, p)
		}
	}
	return out
}

func loadReservation(ctx context.Context, q dbgen.Querier, reservationID int64) (models.Reservation, error) {
	row, err := q.GetReservation(ctx, reservationID)
	switch err = db.NotFound(err); {
	case errors.Is(err, db.ErrNotFound):
		return models.Reservation{}, apperr.NotFoundCause("reservation", err)
	case err != nil:
		return models.Reservation{}, fmt.Errorf("load reservation: %w", err)
	}
	return models.ReservationFromRow(row)
}

func loadPayment(ctx context.Context, q dbgen.Querier, paymentID int64) (models.Payment, error) {
	row, err := q.GetPayment(ctx, paymentID)
	switch err = db.NotFound(err); {
	case errors.Is(err, db.ErrNotFound):
		return models.Payment{}, apperr.NotFoundCause("payment", err)
	case err != nil:
		return models.Payment{}, fmt.Errorf("load payment: %w", err)
	}
	return models.PaymentFromRow(row)
}

func listPayments(ctx context.Context, q dbgen.Querier, reservationID int64) ([]models.Payment, error) {
	rows, err := q.ListPaymentsForReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return models.PaymentsFromRows(rows)
}
