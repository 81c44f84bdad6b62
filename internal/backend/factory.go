package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"organize/internal/amqp"
	"organize/internal/core"
	"organize/internal/seed"
	"organize/internal/storage"
	"organize/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	initial, err := f.initialState(config.SeedFile)
	if err != nil {
		return nil, err
	}

	var res *BackendResult
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config, initial)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config, initial)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(res, config)
	return res, nil
}

func (f *DefaultFactory) initialState(path string) (core.Snapshot, error) {
	if path == "" {
		return core.Snapshot{Cards: core.DefaultCards(), Settings: core.DefaultSettings()}, nil
	}
	snap, err := seed.Load(path)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("load seed: %w", err)
	}
	f.logger.Info("Loaded seed file",
		"component", "backend",
		"path", path,
		"cards", len(snap.Cards),
		"adjustments", len(snap.Transactions))
	return snap, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config, initial core.Snapshot) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	seeded, err := repo.Seed(ctx, initial)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("seed ledger: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"component", "backend",
		"db_path", config.SQLiteDBPath,
		"user_id", config.UserID,
		"seeded", seeded)

	return &BackendResult{Repository: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config, initial core.Snapshot) (*BackendResult, error) {
	for _, t := range initial.Transactions {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("seed transaction %s: %w", t.ID, err)
		}
	}
	st := memory.New(initial)
	f.logger.Info("Initialized memory backend", "component", "backend", "user_id", config.UserID)
	return &BackendResult{Repository: st, Cleanup: st.Close}, nil
}

// attachPublisher connects to the broker when one is configured. A broker
// that cannot be reached leaves the ledger running without change events.
func (f *DefaultFactory) attachPublisher(res *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events",
			"component", "backend", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"component", "backend",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	repoCleanup := res.Cleanup
	res.Publisher = client
	res.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
		if repoCleanup != nil {
			if err := repoCleanup(); err != nil {
				errs = append(errs, fmt.Errorf("repository: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
