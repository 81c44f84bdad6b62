package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"organize/internal/core"
)

type countingTarget struct {
	calls atomic.Int32
	err   error
}

func (c *countingTarget) CatchUp(context.Context) (bool, error) {
	c.calls.Add(1)
	return c.err == nil, c.err
}

func TestDefaultPollerConfig(t *testing.T) {
	config := DefaultPollerConfig()
	if config.PollInterval != 5*time.Minute {
		t.Errorf("expected PollInterval 5m, got %v", config.PollInterval)
	}

	p := NewPoller(&countingTarget{}, PollerConfig{})
	if p.config.PollInterval != 5*time.Minute {
		t.Errorf("zero interval should fall back to default, got %v", p.config.PollInterval)
	}
}

func TestPoller_IsRunning(t *testing.T) {
	p := NewPoller(&countingTarget{}, DefaultPollerConfig())
	if p.IsRunning() {
		t.Error("poller should not be running initially")
	}
}

func TestPoller_StartTwice(t *testing.T) {
	p := NewPoller(&countingTarget{}, PollerConfig{PollInterval: time.Hour})
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error when starting already running poller")
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("poller should not be running after stop")
	}
}

func TestPoller_StopNotRunning(t *testing.T) {
	p := NewPoller(&countingTarget{}, DefaultPollerConfig())
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("stopping an idle poller should succeed, got %v", err)
	}
}

func TestPoller_PollsUntilStopped(t *testing.T) {
	target := &countingTarget{err: errors.New("sheets unavailable")}
	p := NewPoller(target, PollerConfig{PollInterval: 10 * time.Millisecond})
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for target.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := target.calls.Load(); got < 3 {
		t.Fatalf("expected at least 3 polls despite errors, got %d", got)
	}

	after := target.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if target.calls.Load() != after {
		t.Error("poller kept running after stop")
	}
}

func TestCatchUpRewritesOnlyChangedMonths(t *testing.T) {
	rec := newRecorder()
	s := seededStore(t)
	w := NewExportWorker(s, rec, "u1", 0)
	w.now = func() time.Time { return time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	ran, err := w.CatchUp(ctx)
	if err != nil || !ran {
		t.Fatalf("first catch-up: ran=%v err=%v", ran, err)
	}
	if w.Checked() != 1 || rec.months["2024-03"] != 1 || len(rec.writes) != 4 {
		t.Fatalf("checked revision %d, writes %v", w.Checked(), rec.writes)
	}

	ran, err = w.CatchUp(ctx)
	if err != nil || ran {
		t.Fatalf("up-to-date catch-up: ran=%v err=%v", ran, err)
	}

	d := core.NewDate(2024, 3, 20)
	if err := s.Put(ctx, core.Transaction{
		ID: "b", Description: "Pharmacy", Amount: core.Cents(4500), Type: core.Expense,
		Category: "Health", Date: d, Month: core.MonthKeyOf(d), PaymentMethod: core.PayCash,
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ran, err = w.CatchUp(ctx)
	if err != nil || !ran {
		t.Fatalf("catch-up after change: ran=%v err=%v", ran, err)
	}
	if w.Checked() != 2 || rec.months["2024-03"] != 2 {
		t.Fatalf("checked revision %d, months %v", w.Checked(), rec.months)
	}
	if rec.writes["2024-03"] != 2 || rec.writes["2024-04"] != 1 {
		t.Fatalf("only the changed month should be rewritten: %v", rec.writes)
	}
}
