// Command expense-events consumes expense mutation events from AMQP and logs them.
package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
)

func main() {
	// Load .env file for local development (ignore a missing file in production/docker)
	envErr := cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger := cli.SetupLogger("info", nil)
		logger.Error("Configuration validation failed",
			applog.FieldError, err,
			"error_type", applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg.LogLevel, nil).WithComponent(applog.ComponentAMQP)
	if envErr != nil {
		logger.Warn("Ignoring unreadable .env file", applog.FieldError, envErr)
	}
	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required",
			"error_type", applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	logger.Info("Starting expense-events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeExpenseEvents(gctx, func(ctx context.Context, ev *amqp.ExpenseEvent) error {
			logger.InfoContext(ctx, "Expense event",
				"type", ev.Type,
				applog.FieldIndex, ev.Index,
				applog.FieldTitle, ev.Title,
				applog.FieldAmountCents, ev.AmountCents,
				applog.FieldDate, ev.Date)
			return nil
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("expense-events stopped")
}
