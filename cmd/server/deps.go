// cmd/server/deps.go
package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/api/auth"
	courtsapi "github.com/codr1/Padelicious/internal/api/courts"
	membershipsapi "github.com/codr1/Padelicious/internal/api/memberships"
	"github.com/codr1/Padelicious/internal/api/notifications"
	paymentsapi "github.com/codr1/Padelicious/internal/api/payments"
	"github.com/codr1/Padelicious/internal/api/reservations"
	"github.com/codr1/Padelicious/internal/api/webhooks"
	"github.com/codr1/Padelicious/internal/availability"
	"github.com/codr1/Padelicious/internal/config"
	"github.com/codr1/Padelicious/internal/db"
	"github.com/codr1/Padelicious/internal/email"
	"github.com/codr1/Padelicious/internal/gateway"
	"github.com/codr1/Padelicious/internal/locks"
	"github.com/codr1/Padelicious/internal/memberships"
	"github.com/codr1/Padelicious/internal/mq"
	"github.com/codr1/Padelicious/internal/notify"
	"github.com/codr1/Padelicious/internal/payments"
	"github.com/codr1/Padelicious/internal/ratelimit"
	"github.com/codr1/Padelicious/internal/scheduler"
	"github.com/codr1/Padelicious/internal/storage"
)

// dependencies owns everything the server opens at startup.
type dependencies struct {
	db           *db.DB
	redis        *redis.Client
	publisher    *mq.Publisher
	notifier     *notify.Service
	bookings     *availability.Engine
	ledger       *payments.Engine
	loginLimiter *ratelimit.Limiter
	payLimiter   *ratelimit.Limiter
}

func buildDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}
	ok := false
	defer func() {
		if !ok {
			deps.Close()
		}
	}()

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	deps.db = database

	var locker locks.Locker = locks.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		client, err := locks.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		deps.redis = client
		locker = locks.NewRedisLocker(client, cfg.LockTTL())
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis booking locks")
	}

	notifyOpts := []notify.Option{notify.WithClubName(cfg.App.Name)}
	if cfg.Notifications.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.Notifications.AMQPURL, cfg.Notifications.Exchange)
		if err != nil {
			return nil, fmt.Errorf("connect notification broker: %w", err)
		}
		deps.publisher = publisher
		notifyOpts = append(notifyOpts, notify.WithPublisher(publisher))
	} else if cfg.Notifications.Sender != "" && cfg.Notifications.AWSRegion != "" {
		// Without a broker the server sends email itself.
		sender, err := email.NewSESClient(ctx, cfg.Notifications.AWSRegion, cfg.Notifications.Sender, "", "")
		if err != nil {
			log.Warn().Err(err).Msg("Email delivery disabled")
		} else {
			notifyOpts = append(notifyOpts, notify.WithEmailSender(sender))
		}
	}
	deps.notifier = notify.NewService(database.Queries, notifyOpts...)

	deps.bookings, err = availability.NewEngine(database,
		availability.WithLocker(locker),
		availability.WithNotifier(deps.notifier),
		availability.WithLocation(cfg.Location()),
		availability.WithPolicy(availability.Policy{
			AllowEndPastClosing: cfg.Booking.AllowEndPastClosing,
			DefaultSlot:         cfg.DefaultSlot(),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("availability engine: %w", err)
	}

	proofs, err := newProofStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	paymentOpts := []payments.Option{
		payments.WithProofStore(proofs),
		payments.WithLocker(locker),
		payments.WithNotifier(deps.notifier),
		payments.WithEvidenceValidator(payments.NewEvidenceValidator(cfg.Payments.PhoneRegion)),
		payments.WithCurrency(cfg.Payments.Currency),
		payments.WithGatewayTimeout(cfg.GatewayTimeout()),
	}
	var stripeClient *gateway.StripeClient
	if cfg.Payments.StripeSecretKey != "" {
		stripeClient, err = gateway.NewStripeClient(cfg.Payments.StripeSecretKey, cfg.Payments.StripeWebhookSecret, cfg.GatewayTimeout())
		if err != nil {
			return nil, fmt.Errorf("stripe client: %w", err)
		}
		paymentOpts = append(paymentOpts, payments.WithGateway(stripeClient))
	} else {
		log.Warn().Msg("Stripe not configured; GATEWAY payments disabled")
	}
	deps.ledger, err = payments.NewEngine(database, paymentOpts...)
	if err != nil {
		return nil, fmt.Errorf("payments engine: %w", err)
	}

	deps.loginLimiter = ratelimit.New(ratelimit.LoginConfig(cfg.Auth.MaxLoginAttempts, cfg.LoginWindow()))
	deps.payLimiter = ratelimit.New(ratelimit.PaymentConfig())

	auth.InitClerk(cfg.Auth.ClerkSecretKey)
	auth.InitHandlers(database.Queries, cfg, deps.loginLimiter)
	courtsapi.InitHandlers(deps.bookings)
	reservations.InitHandlers(deps.bookings, deps.ledger)
	paymentsapi.InitHandlers(deps.ledger, database.Queries, proofs, deps.payLimiter, cfg)
	notifications.InitHandlers(database.Queries)
	membershipsapi.InitHandlers(memberships.NewService(database.Queries), cfg.Location())
	if stripeClient != nil {
		webhooks.InitHandlers(stripeClient, deps.ledger)
	}

	ok = true
	return deps, nil
}

func newProofStore(ctx context.Context, cfg config.StorageConfig) (storage.ProofStore, error) {
	switch cfg.Driver {
	case "s3":
		store, err := storage.NewS3Store(ctx, cfg.Region, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, fmt.Errorf("s3 proof store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("local proof store: %w", err)
		}
		return store, nil
	}
}

func startScheduler(cfg *config.Config, deps *dependencies) error {
	if err := scheduler.Init(cfg.Location()); err != nil {
		return err
	}
	svc, err := scheduler.ServiceInstance()
	if err != nil {
		return err
	}
	jobs := &scheduler.Jobs{
		DB:        deps.db,
		Notifier:  deps.notifier,
		Completer: deps.bookings,
		Location:  cfg.Location(),
	}
	if err := jobs.Register(svc, cfg.Scheduler); err != nil {
		return err
	}
	svc.Start()
	return nil
}

func stopScheduler() {
	if err := scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}
}

// Close releases everything buildDependencies opened. Safe on a partial build.
func (d *dependencies) Close() {
	if d.loginLimiter != nil {
		d.loginLimiter.Close()
	}
	if d.payLimiter != nil {
		d.payLimiter.Close()
	}
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close notification publisher")
		}
	}
	if d.redis != nil {
		d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
	*d = dependencies{}
}
