// Package memory keeps a user's ledger in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"organize/internal/core"
	"organize/internal/store"
)

type Store struct {
	mu       sync.Mutex
	rev      int64
	txs      []core.Transaction
	cards    []core.Card
	settings core.UserSettings
	hub      store.Hub
}

var _ store.Repository = (*Store)(nil)

// New returns a store holding a copy of initial.
func New(initial core.Snapshot) *Store {
	c := initial.Clone()
	return &Store{
		rev:      c.Revision,
		txs:      c.Transactions,
		cards:    c.Cards,
		settings: c.Settings,
	}
}

// NewDefault returns an empty ledger with the default cards and settings.
func NewDefault() *Store {
	return New(core.Snapshot{Cards: core.DefaultCards(), Settings: core.DefaultSettings()})
}

func (s *Store) snapshotLocked() core.Snapshot {
	return core.Snapshot{
		Revision:     s.rev,
		Transactions: s.txs,
		Cards:        s.cards,
		Settings:     s.settings,
	}.Clone()
}

func (s *Store) Snapshot(_ context.Context) (core.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

func (s *Store) Subscribe(ctx context.Context, fn func(core.Snapshot)) (*store.Subscription, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.hub.Add(ctx, snap, fn), nil
}

func (s *Store) Put(ctx context.Context, t core.Transaction) error {
	return s.Apply(ctx, store.Single(core.Op{Kind: core.OpPut, ID: t.ID, Transaction: t}))
}

func (s *Store) Update(ctx context.Context, id string, p core.Patch) error {
	return s.Apply(ctx, store.Single(core.Op{Kind: core.OpUpdate, ID: id, Patch: p}))
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.Apply(ctx, store.Single(core.Op{Kind: core.OpDelete, ID: id}))
}

// Apply validates the whole batch against a copy and swaps it in on success.
func (s *Store) Apply(ctx context.Context, b core.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Empty() {
		return nil
	}
	s.mu.Lock()
	next, err := b.Apply(s.txs)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("apply batch: %w", err)
	}
	s.txs = next
	s.commitLocked()
	return nil
}

// commitLocked bumps the revision, releases the lock and notifies subscribers.
func (s *Store) commitLocked() {
	s.rev++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(snap)
}

func (s *Store) SaveCard(ctx context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	replaced := false
	for i := range s.cards {
		if s.cards[i].ID == c.ID {
			s.cards[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		s.cards = append(s.cards, c)
	}
	s.commitLocked()
	return nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, c := range s.cards {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	for _, t := range s.txs {
		if t.CardID == id {
			s.mu.Unlock()
			return fmt.Errorf("card %s: %w", id, core.ErrCardInUse)
		}
	}
	s.cards = append(s.cards[:idx:idx], s.cards[idx+1:]...)
	s.commitLocked()
	return nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.UserSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings.Clone()
	s.commitLocked()
	return nil
}

func (s *Store) Close() error {
	return nil
}
