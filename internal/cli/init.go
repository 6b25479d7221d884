// Package cli provides common CLI initialization utilities shared by
// cmd/expensetracker and cmd/expense-events.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
)

// SetupLogger builds the process logger at level and makes it the slog default.
func SetupLogger(level string, out io.Writer) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	if out != nil {
		cfg.Output = out
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error; production sets the environment directly.
func LoadEnvFile(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
