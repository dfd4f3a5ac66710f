// Package backend builds the remote store and event publisher selected by
// configuration.
package backend

import (
	"context"
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/remote"
	"fintrack/internal/remote/memory"
	"fintrack/internal/remote/postgres"
	"fintrack/internal/remote/sheets"
	"fintrack/internal/remote/sqlite"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// Result contains the assembled backend and an optional cleanup function
type Result struct {
	Client    remote.Client
	Publisher events.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *Factory {
	return &Factory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// Create assembles the remote store and event publisher named by cfg.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	client, clientCleanup, err := f.createClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := f.createPublisher(cfg)
	if err != nil {
		if clientCleanup != nil {
			_ = clientCleanup()
		}
		return nil, err
	}

	cleanup := func() error {
		var firstErr error
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				firstErr = err
			}
		}
		if clientCleanup != nil {
			if err := clientCleanup(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	return &Result{Client: client, Publisher: publisher, Cleanup: cleanup}, nil
}

func (f *Factory) createClient(ctx context.Context, cfg *config.Config) (remote.Client, CleanupFunc, error) {
	switch cfg.DataBackend {
	case "memory":
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil, nil

	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return store, store.Close, nil

	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize postgres backend: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL backend")
		return store, store.Close, nil

	case "sheets":
		client, err := sheets.NewFromEnv(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize sheets backend: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
		return client, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

func (f *Factory) createPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case "", "none":
		return nil, nil

	case "amqp":
		client, err := events.NewAMQPClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
		f.logger.Info("Initialized AMQP publisher",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		return client, nil

	case "kafka":
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		f.logger.Info("Initialized Kafka publisher",
			"brokers", cfg.KafkaBrokers,
			"topic", cfg.KafkaTopic)
		return publisher, nil

	default:
		return nil, fmt.Errorf("unsupported events backend: %s", cfg.EventsBackend)
	}
}
