package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/config"
	"github.com/codr1/Padelicious/internal/db"
	dbgen "github.com/codr1/Padelicious/internal/db/generated"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/notify"
)

const jobTimeout = 2 * time.Minute

// Completer moves elapsed reservations to COMPLETED. Satisfied by
// *availability.Engine.
type Completer interface {
	CompleteElapsed(ctx context.Context) (int, error)
}

// Jobs holds the dependencies of the background sweeps.
type Jobs struct {
	DB        *db.DB
	Notifier  notify.Dispatcher
	Completer Completer
	Location  *time.Location
	Now       func() time.Time
}

func (j *Jobs) today() models.Date {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	return models.DateOf(now(), j.Location)
}

// SendReservationReminders notifies owners of tomorrow's CONFIRMED
// reservations and returns how many were sent.
func (j *Jobs) SendReservationReminders(ctx context.Context) (int, error) {
	tomorrow := j.today().AddDays(1)
	rows, err := j.DB.Queries.ListReservationDetailsByStatusOnDate(ctx, dbgen.ListReservationDetailsByStatusOnDateParams{
		Status: string(models.ReservationConfirmed),
		Date:   tomorrow.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("list confirmed reservations: %w", err)
	}
	for _, row := range rows {
		j.Notifier.Notify(ctx, row.UserID, notify.KindReservationReminder,
			"Reservation tomorrow",
			fmt.Sprintf("Your booking on %s is tomorrow, %s from %s to %s.", row.CourtName, row.Date, row.StartTime, row.EndTime))
	}
	return len(rows), nil
}

// SendPaymentReminders nudges owners of upcoming PENDING reservations that
// have no payment on file or in progress.
func (j *Jobs) SendPaymentReminders(ctx context.Context) (int, error) {
	rows, err := j.DB.Queries.ListUnpaidPendingReservationDetailsFrom(ctx, j.today().String())
	if err != nil {
		return 0, fmt.Errorf("list unpaid reservations: %w", err)
	}
	for _, row := range rows {
		j.Notifier.Notify(ctx, row.UserID, notify.KindPaymentReminder,
			"Payment pending",
			fmt.Sprintf("Your booking on %s for %s at %s is awaiting payment of %s.", row.CourtName, row.Date, row.StartTime, row.TotalAmount.StringFixed(2)))
	}
	return len(rows), nil
}

// Register adds the reminder and completion sweeps to svc using the crons
// from cfg. Each job runs in singleton mode.
func (j *Jobs) Register(svc *Service, cfg config.SchedulerConfig) error {
	if j.DB == nil {
		return fmt.Errorf("scheduler jobs require database")
	}
	if j.Notifier == nil {
		j.Notifier = notify.Nop{}
	}

	jobs := []struct {
		name string
		cron string
		run  func(context.Context) (int, error)
	}{
		{"reservation_reminders", cfg.ReservationReminderCron, j.SendReservationReminders},
		{"payment_reminders", cfg.PaymentReminderCron, j.SendPaymentReminders},
	}
	if j.Completer != nil {
		jobs = append(jobs, struct {
			name string
			cron string
			run  func(context.Context) (int, error)
		}{"reservation_completion", cfg.CompletionCron, j.Completer.CompleteElapsed})
	}

	for _, job := range jobs {
		name, run := job.name, job.run
		jobLogger := log.With().Str("component", "scheduler").Str("job_name", name).Logger()
		_, err := svc.AddJob(name, job.cron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			ctx = jobLogger.WithContext(ctx)

			n, err := run(ctx)
			if err != nil {
				jobLogger.Error().Err(err).Msg("Scheduler job failed")
				return
			}
			if n > 0 {
				jobLogger.Info().Int("count", n).Msg("Scheduler job processed rows")
			}
		}, gocron.WithSingletonMode(gocron.LimitModeReschedule))
		if err != nil {
			return fmt.Errorf("add %s job: %w", name, err)
		}
	}
	return nil
}
