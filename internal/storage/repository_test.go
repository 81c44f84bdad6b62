package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"organize/internal/core"
)

func newTestRepo(t *testing.T, userID string) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path, userID)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func cardRecord(id string, cents int64, n, current int) core.Transaction {
	d := core.NewDate(2024, 2+current, 15)
	t := core.Transaction{
		ID:            id,
		Description:   core.InstallmentDescription("TV", current, n),
		Amount:        core.Cents(cents),
		Type:          core.Expense,
		Category:      "Shopping",
		Date:          d,
		Month:         core.MonthKeyOf(d),
		PaymentMethod: core.PayCard,
		CardID:        "card-1",
		ParentID:      "parent",
		Installment:   &core.Installment{Current: current, Total: n},
	}
	return t
}

func TestRoundTripPreservesRecords(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, "u1")
	if _, err := repo.Seed(ctx, core.Snapshot{Cards: core.DefaultCards(), Settings: core.DefaultSettings()}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	in := cardRecord("a", 3334, 3, 3)
	in.IsAdjustment = true
	in.AnticipationOf = "older-group"
	if err := repo.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Transactions) != 1 {
		t.Fatalf("expected 1 record, got %d", len(snap.Transactions))
	}
	got := snap.Transactions[0]
	if got.Installment == nil || *got.Installment != *in.Installment {
		t.Fatalf("installment lost: %+v", got.Installment)
	}
	if !got.Date.Equal(in.Date.Time) || got.Month != in.Month || got.Amount != in.Amount || !got.IsAdjustment ||
		got.AnticipationOf != "older-group" {
		t.Fatalf("record changed in storage: %+v", got)
	}
	if len(snap.Cards) != 2 {
		t.Fatalf("expected seeded cards, got %d", len(snap.Cards))
	}
	if len(snap.Settings.ExpenseCategories) == 0 {
		t.Fatalf("expected seeded settings")
	}
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, "u1")

	var ok core.Batch
	ok.Put(cardRecord("a", 100, 2, 1))
	ok.Put(cardRecord("b", 100, 2, 2))
	if err := repo.Apply(ctx, ok); err != nil {
		t.Fatalf("apply: %v", err)
	}
	before, _ := repo.Snapshot(ctx)

	var bad core.Batch
	bad.Delete("a")
	bad.Delete("b")
	bad.Delete("missing")
	if err := repo.Apply(ctx, bad); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after, _ := repo.Snapshot(ctx)
	if len(after.Transactions) != 2 {
		t.Fatalf("partial batch applied: %d records left", len(after.Transactions))
	}
	if after.Revision != before.Revision {
		t.Fatalf("revision moved on a failed batch: %d -> %d", before.Revision, after.Revision)
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, "u1")
	if err := repo.Put(ctx, cardRecord("a", 100, 2, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}

	cat := "Electronics"
	amount := core.Cents(250)
	if err := repo.Update(ctx, "a", core.Patch{Category: &cat, Amount: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ := repo.Snapshot(ctx)
	got := snap.Transactions[0]
	if got.Category != "Electronics" || got.Amount.Cents != 250 || got.ParentID != "parent" {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := repo.Update(ctx, "missing", core.Patch{Category: &cat}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	alice, err := NewSQLiteRepository(path, "alice")
	if err != nil {
		t.Fatalf("open alice: %v", err)
	}
	defer alice.Close()
	bob, err := NewSQLiteRepository(path, "bob")
	if err != nil {
		t.Fatalf("open bob: %v", err)
	}
	defer bob.Close()

	if err := alice.Put(ctx, cardRecord("a", 100, 2, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	snap, _ := bob.Snapshot(ctx)
	if len(snap.Transactions) != 0 {
		t.Fatalf("bob sees alice's records")
	}
}

func TestDeleteCardGuard(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, "u1")
	if _, err := repo.Seed(ctx, core.Snapshot{Cards: core.DefaultCards(), Settings: core.DefaultSettings()}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.Put(ctx, cardRecord("a", 100, 2, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.DeleteCard(ctx, "card-1"); !errors.Is(err, core.ErrCardInUse) {
		t.Fatalf("expected ErrCardInUse, got %v", err)
	}
	if err := repo.DeleteCard(ctx, "card-2"); err != nil {
		t.Fatalf("delete unused card: %v", err)
	}
	if err := repo.DeleteCard(ctx, "card-2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscribeSeesCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := newTestRepo(t, "u1")

	var counts []int
	sub, err := repo.Subscribe(ctx, func(s core.Snapshot) {
		counts = append(counts, len(s.Transactions))
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	if err := repo.Put(ctx, cardRecord("a", 100, 2, 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	settings := core.DefaultSettings()
	settings.MonthlyIncome = core.Cents(100000)
	if err := repo.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	if len(counts) != 3 || counts[0] != 0 || counts[1] != 1 || counts[2] != 1 {
		t.Fatalf("unexpected deliveries: %v", counts)
	}
	snap, _ := repo.Snapshot(ctx)
	if snap.Settings.MonthlyIncome.Cents != 100000 {
		t.Fatalf("settings not persisted: %+v", snap.Settings)
	}
}

func TestSeedRunsOnce(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, "u1")
	initial := core.Snapshot{
		Cards:        core.DefaultCards(),
		Settings:     core.DefaultSettings(),
		Transactions: []core.Transaction{cardRecord("opening", 500, 1, 1)},
	}

	seeded, err := repo.Seed(ctx, initial)
	if err != nil || !seeded {
		t.Fatalf("first seed = %v, %v; want true, nil", seeded, err)
	}
	if err := repo.Delete(ctx, "opening"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	seeded, err = repo.Seed(ctx, initial)
	if err != nil || seeded {
		t.Fatalf("second seed = %v, %v; want false, nil", seeded, err)
	}
	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Transactions) != 0 {
		t.Errorf("deleted seed record came back: %+v", snap.Transactions)
	}
}
