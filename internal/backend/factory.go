package backend

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/store"
	"expensetracker/internal/store/memory"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// BackendResult contains the store and what the process needs around it.
type BackendResult struct {
	Store store.Store
	// Publisher is nil when events are disabled or the broker is unreachable.
	Publisher services.EventPublisher
	// Ready reports whether the store can serve requests.
	Ready   func(context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// dialer opens the event publisher; tests replace it.
type dialer func(url, exchange, queue string) (eventClient, error)

type eventClient interface {
	services.EventPublisher
	Close() error
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	dial   dialer
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dial: func(url, exchange, queue string) (eventClient, error) {
			c, err := amqp.NewClient(url, exchange, queue)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	var (
		result *BackendResult
		err    error
	)

	switch config.Type {
	case MemoryBackend:
		result = f.createMemoryBackend()
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx)
	default:
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(result, config)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend", applog.FieldBackend, MemoryBackend)
	return &BackendResult{
		Store: memory.New(),
		Ready: func(context.Context) error { return nil },
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context) (*BackendResult, error) {
	s, err := storage.NewSQLiteStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", applog.FieldBackend, SQLiteBackend)
	return &BackendResult{
		Store:   s,
		Ready:   s.Ping,
		Cleanup: s.Close,
	}, nil
}

// attachPublisher connects the event client when configured. A broker that
// cannot be reached is logged and the tracker runs without events.
func (f *DefaultFactory) attachPublisher(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}

	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = client
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
		if storeCleanup != nil {
			if err := storeCleanup(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
