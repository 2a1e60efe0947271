// Package availability decides whether a court slot can be booked and
// creates reservations without overlaps.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/db"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/locks"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/notify"
)

type Engine struct {
	db       *db.DB
	locker   locks.Locker
	notifier notify.Dispatcher
	policy   Policy
	now      func() time.Time
	loc      *time.Location
	logger   zerolog.Logger
}

type Option func(*Engine)

func WithLocker(l locks.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithNotifier(n notify.Dispatcher) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the club timezone used to decide "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func NewEngine(database *db.DB, opts ...Option) (*Engine, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	e := &Engine{
		db:       database,
		locker:   locks.NewLocalLocker(),
		notifier: notify.Nop{},
		policy:   DefaultPolicy(),
		now:      time.Now,
		loc:      time.UTC,
		logger:   log.With().Str("component", "availability").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy.DefaultSlot <= 0 {
		e.policy.DefaultSlot = DefaultSlotDuration
	}
	return e, nil
}

func (e *Engine) localNow() time.Time {
	return e.now().In(e.loc)
}

func (e *Engine) moment() Moment {
	now := e.localNow()
	return Moment{Date: models.DateOf(now, e.loc), Time: models.TimeOfDayOf(now)}
}

// CheckAvailability validates a prospective booking against the court's
// calendar and its PENDING/CONFIRMED reservations.
func (e *Engine) CheckAvailability(ctx context.Context, courtID int64, date models.Date, start, end models.TimeOfDay) error {
	court, err := loadCourt(ctx, e.db.Queries, courtID)
	if err != nil {
		return err
	}
	req := Request{Date: date, Start: start, End: end}
	if err := ValidateRequest(court, req, e.moment(), e.policy); err != nil {
		return err
	}
	existing, err := activeReservations(ctx, e.db.Queries, courtID, date)
	if err != nil {
		return err
	}
	return CheckConflict(req, existing)
}

// ListAvailableSlots returns the court's slots for date. A non-positive
// slotDuration uses the policy default.
func (e *Engine) ListAvailableSlots(ctx context.Context, courtID int64, date models.Date, slotDuration time.Duration) ([]Slot, error) {
	court, err := loadCourt(ctx, e.db.Queries, courtID)
	if err != nil {
		return nil, err
	}
	now := e.moment()
	if date.Before(now.Date) {
		return nil, apperr.Validation("date", CodePastDate, "date is in the past")
	}
	if slotDuration <= 0 {
		slotDuration = e.policy.DefaultSlot
	}
	if !court.IsActive || !court.OperatesOn(date) {
		return []Slot{}, nil
	}

	existing, err := activeReservations(ctx, e.db.Queries, courtID, date)
	if err != nil {
		return nil, err
	}

	notBefore := models.Midnight
	if date.Equal(now.Date) {
		notBefore = now.Time
	}
	slots := BuildSlots(court, date, slotDuration, existing, notBefore)
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}

type CreateReservationParams struct {
	CourtID int64
	UserID  int64
	Date    models.Date
	Start   models.TimeOfDay
	End     models.TimeOfDay
}

// CreateReservation books the slot as PENDING. The check and the insert run
// under the court/date lock inside one write transaction.
func (e *Engine) CreateReservation(ctx context.Context, params CreateReservationParams) (models.Reservation, error) {
	if params.UserID <= 0 {
		return models.Reservation{}, apperr.Validation("user_id", "required", "user is required")
	}
	req := Request{Date: params.Date, Start: params.Start, End: params.End}

	unlock, err := e.locker.Lock(ctx, locks.CourtDateKey(params.CourtID, params.Date.String()))
	if err != nil {
		return models.Reservation{}, fmt.Errorf("acquire booking lock: %w", err)
	}
	defer unlock()

	var (
		created models.Reservation
		court   models.Court
	)
	err = e.db.RunInTx(ctx, func(tx *db.DB) error {
		var err error
		court, err = loadCourt(ctx, tx.Queries, params.CourtID)
		if err != nil {
			return err
		}
		if err := ValidateRequest(court, req, e.moment(), e.policy); err != nil {
			return err
		}
		existing, err := activeReservations(ctx, tx.Queries, court.ID, params.Date)
		if err != nil {
			return err
		}
		if err := CheckConflict(req, existing); err != nil {
			return err
		}

		row, err := tx.Queries.CreateReservation(ctx, dbgen.CreateReservationParams{
			CourtID:     court.ID,
			UserID:      params.UserID,
			Date:        params.Date.String(),
			StartTime:   params.Start.String(),
			EndTime:     params.End.String(),
			Status:      string(models.ReservationPending),
			TotalAmount: PriceFor(court, params.Start, params.End),
		})
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		created, err = models.ReservationFromRow(row)
		return err
	})
	if err != nil {
		return models.Reservation{}, err
	}

	e.logger.Info().
		Int64("reservation_id", created.ID).
		Int64("court_id", created.CourtID).
		Int64("user_id", created.UserID).
		Str("date", created.Date.String()).
		Str("start", created.StartTime.String()).
		Str("end", created.EndTime.String()).
		Msg("Reservation created")

	e.notifier.Notify(ctx, created.UserID, notify.KindReservationCreated,
		"Reservation created",
		fmt.Sprintf("%s on %s from %s to %s is held for you. Total %s. Complete the payment to confirm it.",
			court.Name, created.Date, created.StartTime, created.EndTime, created.TotalAmount.StringFixed(2)),
	)

	return created, nil
}

// CancelReservation cancels a reservation on behalf of its owner or staff.
// Paid reservations need a refund and are rejected.
func (e *Engine) CancelReservation(ctx context.Context, reservationID int64, actor models.Actor) (models.Reservation, error) {
	unlock, err := e.locker.Lock(ctx, locks.ReservationKey(reservationID))
	if err != nil {
		return models.Reservation{}, fmt.Errorf("acquire reservation lock: %w", err)
	}
	defer unlock()

	var cancelled models.Reservation
	err = e.db.RunInTx(ctx, func(tx *db.DB) error {
		reservation, err := loadReservation(ctx, tx.Queries, reservationID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(reservation.UserID) {
			return apperr.Forbidden("only the owner or staff may cancel this reservation")
		}
		if !reservation.Status.CanTransitionTo(models.ReservationCancelled) {
			return apperr.Conflict("invalid_transition",
				fmt.Sprintf("reservation is %s and cannot be cancelled", reservation.Status))
		}

		payments, err := tx.Queries.ListPaymentsForReservation(ctx, reservation.ID)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		for _, p := range payments {
			switch models.PaymentStatus(p.Status) {
			case models.PaymentCompleted:
				return apperr.Conflict("refund_required", "reservation is paid; cancellation requires a refund")
			case models.PaymentPending:
				return apperr.Conflict("payment_in_flight", "a gateway payment is still in progress")
			}
		}

		now := e.now().UTC()
		n, err := tx.Queries.UpdateReservationStatus(ctx, dbgen.UpdateReservationStatusParams{
			ToStatus:   string(models.ReservationCancelled),
			UpdatedAt:  now,
			ID:         reservation.ID,
			FromStatus: string(reservation.Status),
		})
		if err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		if n == 0 {
			return apperr.Conflict("stale_status", "reservation changed concurrently")
		}
		reservation.Status = models.ReservationCancelled
		reservation.UpdatedAt = now
		cancelled = reservation
		return nil
	})
	if err != nil {
		return models.Reservation{}, err
	}

	e.logger.Info().
		Int64("reservation_id", cancelled.ID).
		Int64("actor_id", actor.UserID).
		Bool("by_staff", actor.IsStaff).
		Msg("Reservation cancelled")

	e.notifier.Notify(ctx, cancelled.UserID, notify.KindReservationCancelled,
		"Reservation cancelled",
		fmt.Sprintf("Your reservation on %s from %s to %s was cancelled.", cancelled.Date, cancelled.StartTime, cancelled.EndTime),
	)
	return cancelled, nil
}

// CompleteElapsed marks CONFIRMED reservations whose slot has ended as
// COMPLETED. It is safe to run repeatedly.
func (e *Engine) CompleteElapsed(ctx context.Context) (int, error) {
	now := e.localNow()
	rows, err := e.db.Queries.ListElapsedConfirmedReservations(ctx, dbgen.ListElapsedConfirmedReservationsParams{
		Date: models.DateOf(now, e.loc).String(),
		Time: models.TimeOfDayOf(now).String(),
	})
	if err != nil {
		return 0, fmt.Errorf("list elapsed reservations: %w", err)
	}

	completed := 0
	for _, row := range rows {
		n, err := e.db.Queries.UpdateReservationStatus(ctx, dbgen.UpdateReservationStatusParams{
			ToStatus:   string(models.ReservationCompleted),
			UpdatedAt:  now.UTC(),
			ID:         row.ID,
			FromStatus: string(models.ReservationConfirmed),
		})
		if err != nil {
			return completed, fmt.Errorf("complete reservation %d: %w", row.ID, err)
		}
		completed += int(n)
	}
	return completed, nil
}

// Reservation returns a reservation visible to actor.
func (e *Engine) Reservation(ctx context.Context, reservationID int64, actor models.Actor) (models.Reservation, error) {
	reservation, err := loadReservation(ctx, e.db.Queries, reservationID)
	if err != nil {
		return models.Reservation{}, err
	}
	if !actor.CanAccess(reservation.UserID) {
		return models.Reservation{}, apperr.Forbidden("reservation belongs to another user")
	}
	return reservation, nil
}

func (e *Engine) UserReservations(ctx context.Context, userID int64) ([]models.Reservation, error) {
	rows, err := e.db.Queries.ListReservationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return models.ReservationsFromRows(rows)
}

func loadCourt(ctx context.Context, q dbgen.Querier, courtID int64) (models.Court, error) {
	row, err := q.GetCourt(ctx, courtID)
	switch err = db.NotFound(err); {
	case errors.Is(err, db.ErrNotFound):
		return models.Court{}, apperr.NotFoundCause("court", err)
	case err != nil:
		return models.Court{}, fmt.Errorf("load court: %w", err)
	}
	return models.CourtFromRow(row)
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

func activeReservations(ctx context.Context, q dbgen.Querier, courtID int64, date models.Date) ([]models.Reservation, error) {
	rows, err := q.ListActiveReservationsForCourtDate(ctx, dbgen.ListActiveReservationsForCourtDateParams{
		CourtID: courtID,
		Date:    date.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	return models.ReservationsFromRows(rows)
}
