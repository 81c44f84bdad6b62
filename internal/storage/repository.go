// Package storage persists ledgers in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"organize/internal/core"
	"organize/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the store.Repository of one user backed by SQLite.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	userID  string
	hub     store.Hub
}

var _ store.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath, userID string) (*SQLiteRepository, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps batches serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db, userID),
		userID:  userID,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Seed stores the initial cards, settings and records when the user has no
// settings yet. It reports whether anything was written.
func (r *SQLiteRepository) Seed(ctx context.Context, initial core.Snapshot) (bool, error) {
	_, found, err := r.queries.GetSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("read settings: %w", err)
	}
	if found {
		return false, nil
	}
	err = r.inTx(ctx, func(q *Queries) error {
		for _, c := range initial.Cards {
			if err := c.Validate(); err != nil {
				return err
			}
			if err := q.UpsertCard(ctx, c); err != nil {
				return fmt.Errorf("seed card %s: %w", c.ID, err)
			}
		}
		if err := q.SaveSettings(ctx, initial.Settings); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
		for _, t := range initial.Transactions {
			if err := t.Validate(); err != nil {
				return err
			}
			if err := q.UpsertTransaction(ctx, t); err != nil {
				return fmt.Errorf("seed transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
	return err == nil, err
}

func (r *SQLiteRepository) Snapshot(ctx context.Context) (core.Snapshot, error) {
	return r.snapshot(ctx, r.queries)
}

func (r *SQLiteRepository) snapshot(ctx context.Context, q *Queries) (core.Snapshot, error) {
	rev, err := q.GetRevision(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("get revision: %w", err)
	}
	txs, err := q.ListTransactions(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list transactions: %w", err)
	}
	cards, err := q.ListCards(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list cards: %w", err)
	}
	settings, found, err := q.GetSettings(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("get settings: %w", err)
	}
	if !found {
		settings = core.DefaultSettings()
	}
	return core.Snapshot{
		Revision:     rev,
		Transactions: txs,
		Cards:        cards,
		Settings:     settings,
	}, nil
}

func (r *SQLiteRepository) Subscribe(ctx context.Context, fn func(core.Snapshot)) (*store.Subscription, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return r.hub.Add(ctx, snap, fn), nil
}

func (r *SQLiteRepository) Put(ctx context.Context, t core.Transaction) error {
	return r.Apply(ctx, store.Single(core.Op{Kind: core.OpPut, ID: t.ID, Transaction: t}))
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p core.Patch) error {
	return r.Apply(ctx, store.Single(core.Op{Kind: core.OpUpdate, ID: id, Patch: p}))
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return r.Apply(ctx, store.Single(core.Op{Kind: core.OpDelete, ID: id}))
}

// Apply runs the batch inside one SQL transaction.
func (r *SQLiteRepository) Apply(ctx context.Context, b core.Batch) error {
	if b.Empty() {
		return nil
	}
	for _, op := range b.Ops {
		if op.Kind == core.OpPut {
			if err := op.Transaction.Validate(); err != nil {
				return err
			}
		}
	}
	err := r.inTx(ctx, func(q *Queries) error {
		for _, op := range b.Ops {
			if err := applyOp(ctx, q, op); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	slog.DebugContext(ctx, "Batch committed", "user_id", r.userID, "ops", len(b.Ops))
	return nil
}

func applyOp(ctx context.Context, q *Queries, op core.Op) error {
	switch op.Kind {
	case core.OpPut:
		return q.UpsertTransaction(ctx, op.Transaction)
	case core.OpUpdate:
		current, err := q.GetTransaction(ctx, op.ID)
		if err != nil {
			return err
		}
		next := op.Patch.ApplyTo(current)
		if err := next.Validate(); err != nil {
			return err
		}
		return q.UpsertTransaction(ctx, next)
	case core.OpDelete:
		return q.DeleteTransaction(ctx, op.ID)
	default:
		return fmt.Errorf("unknown batch op %v", op.Kind)
	}
}

func (r *SQLiteRepository) SaveCard(ctx context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		return q.UpsertCard(ctx, c)
	})
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id string) error {
	return r.inTx(ctx, func(q *Queries) error {
		n, err := q.CountCardReferences(ctx, id)
		if err != nil {
			return fmt.Errorf("count card references: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("card %s: %w", id, core.ErrCardInUse)
		}
		return q.DeleteCard(ctx, id)
	})
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.UserSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		return q.SaveSettings(ctx, s)
	})
}

// inTx runs fn in a transaction, bumps the revision and, after commit,
// publishes the new snapshot to subscribers.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := fn(q); err != nil {
		return err
	}
	if _, err := q.BumpRevision(ctx); err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}
	snap, err := r.snapshot(ctx, q)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.hub.Publish(snap)
	return nil
}
