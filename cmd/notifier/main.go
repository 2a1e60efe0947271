// cmd/notifier/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Padelicious/internal/config"
	"github.com/codr1/Padelicious/internal/email"
	"github.com/codr1/Padelicious/internal/mq"
	"github.com/codr1/Padelicious/internal/notify"
)

// Email delivery worker: consumes notification events published by the
// server and sends them through SES.
func main() {
	configPath := flag.String("config", "config/app.yaml", "path to the yaml configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	n := cfg.Notifications
	if n.AMQPURL == "" {
		log.Fatal().Msg("notifications.amqp_url is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := email.NewSESClient(ctx, n.AWSRegion, n.Sender, os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize SES client")
	}

	worker := notify.NewEmailWorker(sender, cfg.App.Name)
	consumer := mq.NewConsumer(n.AMQPURL, n.Exchange, n.Queue, []string{"notification.#"})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("queue", n.Queue).Str("exchange", n.Exchange).Msg("Starting notifier")
		return consumer.Run(ctx, worker.Handle)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Notifier terminated with error")
		os.Exit(1)
	}
	log.Info().Msg("Notifier stopped")
}
