// Package store defines the persistence port of a user's ledger and the
// subscription plumbing shared by its implementations.
package store

import (
	"context"

	"organize/internal/core"
)

// Repository persists one user's ledger. Every write that succeeds bumps
// the snapshot revision and notifies subscribers.
type Repository interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
	// Subscribe calls fn with the current snapshot right away and again
	// after every committed write, until the subscription is cancelled or
	// ctx is done.
	Subscribe(ctx context.Context, fn func(core.Snapshot)) (*Subscription, error)

	Put(ctx context.Context, t core.Transaction) error
	Update(ctx context.Context, id string, p core.Patch) error
	Delete(ctx context.Context, id string) error
	// Apply commits every op of b or none of them.
	Apply(ctx context.Context, b core.Batch) error

	SaveCard(ctx context.Context, c core.Card) error
	// DeleteCard fails with core.ErrCardInUse while records reference the card.
	DeleteCard(ctx context.Context, id string) error
	SaveSettings(ctx context.Context, s core.UserSettings) error

	Close() error
}

// Single wraps one op in a batch.
func Single(op core.Op) core.Batch {
	return core.Batch{Ops: []core.Op{op}}
}
