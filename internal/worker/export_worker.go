package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"organize/internal/amqp"
	"organize/internal/core"
	"organize/internal/ledger"
	"organize/internal/sheets"
)

// SnapshotReader is the read side of a ledger store.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

// ExportWorker mirrors changed months of a ledger into a spreadsheet.
type ExportWorker struct {
	ledger      SnapshotReader
	exporter    sheets.MonthExporter
	userID      string
	monthsBack  int
	concurrency int
	now         func() time.Time

	mu sync.Mutex
	// written holds the digest of what each month's tab last received.
	written map[core.MonthKey]uint64
	// checked is the last revision a full window pass compared against.
	checked int64
}

func NewExportWorker(ledger SnapshotReader, exporter sheets.MonthExporter, userID string, monthsBack int) *ExportWorker {
	if monthsBack < 0 {
		monthsBack = 0
	}
	return &ExportWorker{
		ledger:      ledger,
		exporter:    exporter,
		userID:      userID,
		monthsBack:  monthsBack,
		concurrency: 2,
		now:         time.Now,
		written:     map[core.MonthKey]uint64{},
	}
}

// HandleLedgerChanged exports the months named in msg whose content differs
// from what the sheet last received. Messages for other users are
// acknowledged and skipped.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if msg.UserID != w.userID {
		slog.DebugContext(ctx, "Ignoring change for another ledger", "user_id", msg.UserID)
		return nil
	}

	slog.InfoContext(ctx, "Processing ledger change",
		"revision", msg.Revision,
		"operation", msg.Operation,
		"months", msg.Months)

	months := make([]core.MonthKey, 0, len(msg.Months))
	for _, m := range msg.Months {
		key, err := core.ParseMonthKey(m)
		if err != nil {
			slog.WarnContext(ctx, "Dropping invalid month from message", "month", m, "error", err)
			continue
		}
		months = append(months, key)
	}
	if len(months) == 0 {
		months = w.window()
	}
	_, err := w.export(ctx, months)
	return err
}

// StartupExport rewrites the recent months at worker startup, recovering
// from changes published while the worker was down.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	months := w.window()
	slog.InfoContext(ctx, "Running startup export", "from", months[0], "to", months[len(months)-1])
	rev, err := w.export(ctx, months)
	if err == nil {
		w.markChecked(rev)
	}
	return err
}

// CatchUp compares the recent window with what the sheet holds whenever the
// ledger revision moved since the last pass, and rewrites the months that
// differ. It reports whether a comparison ran.
func (w *ExportWorker) CatchUp(ctx context.Context) (bool, error) {
	snap, err := w.ledger.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("read ledger snapshot: %w", err)
	}
	w.mu.Lock()
	current := snap.Revision <= w.checked
	w.mu.Unlock()
	if current {
		return false, nil
	}
	slog.DebugContext(ctx, "Ledger moved since last check", "revision", snap.Revision)
	rev, err := w.export(ctx, w.window())
	if err != nil {
		return true, err
	}
	w.markChecked(rev)
	return true, nil
}

// Checked is the last revision a full window pass verified.
func (w *ExportWorker) Checked() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checked
}

func (w *ExportWorker) markChecked(rev int64) {
	w.mu.Lock()
	if rev > w.checked {
		w.checked = rev
	}
	w.mu.Unlock()
}

// window is the current month, monthsBack before it and the three upcoming
// invoice months.
func (w *ExportWorker) window() []core.MonthKey {
	current := core.MonthKeyOf(core.DateOf(w.now()))
	var out []core.MonthKey
	for i := -w.monthsBack; i <= 3; i++ {
		out = append(out, current.Add(i))
	}
	return out
}

// export writes every month in months whose records or totals changed since
// its last write, and returns the snapshot revision it read.
func (w *ExportWorker) export(ctx context.Context, months []core.MonthKey) (int64, error) {
	snap, err := w.ledger.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("read ledger snapshot: %w", err)
	}
	months = dedupeMonths(months)

	var written atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, m := range months {
		g.Go(func() error {
			txs := ledger.MonthTransactions(snap.Transactions, m)
			totals := ledger.MonthlyTotals(snap.Transactions, m)
			digest, err := monthDigest(txs, totals)
			if err != nil {
				return fmt.Errorf("digest %s: %w", m, err)
			}
			w.mu.Lock()
			prev, ok := w.written[m]
			w.mu.Unlock()
			if ok && prev == digest {
				return nil
			}
			if err := w.exporter.ExportMonth(gctx, m, txs, totals); err != nil {
				return fmt.Errorf("export %s: %w", m, err)
			}
			w.mu.Lock()
			w.written[m] = digest
			w.mu.Unlock()
			written.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Exported ledger months",
		"revision", snap.Revision,
		"checked", len(months),
		"written", written.Load())
	return snap.Revision, nil
}

func monthDigest(txs []core.Transaction, totals core.MonthTotals) (uint64, error) {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	if err := enc.Encode(txs); err != nil {
		return 0, err
	}
	if err := enc.Encode(totals); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func dedupeMonths(in []core.MonthKey) []core.MonthKey {
	seen := map[core.MonthKey]bool{}
	out := make([]core.MonthKey, 0, len(in))
	for _, m := range in {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
