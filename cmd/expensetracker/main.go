package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/services"
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

	logger := cli.SetupLogger(cfg.LogLevel, nil)
	if envErr != nil {
		logger.Warn("Ignoring unreadable .env file", applog.FieldError, envErr)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	app := logger.WithComponent(applog.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			app.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	recorder := metrics.New()
	opts := []services.Option{
		services.WithMetrics(recorder),
		services.WithLogger(logger),
	}
	if result.Publisher != nil {
		opts = append(opts, services.WithPublisher(result.Publisher))
	}
	tracker := services.NewTracker(result.Store, opts...)

	srv := apphttp.NewServer(tracker, apphttp.Options{
		Addr:               cfg.Addr(),
		CurrencyLabel:      cfg.CurrencyLabel,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Metrics:            recorder,
		Ready:              result.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Info("Server starting",
			"addr", cfg.Addr(),
			applog.FieldBackend, cfg.DataBackend,
			"events_enabled", result.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.Info("Shutting down server", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
