package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"organize/internal/amqp"
	"organize/internal/cache"
	"organize/internal/core"
	"organize/internal/ledger"
	"organize/internal/log"
	"organize/internal/store"
)

// Publisher announces committed ledger changes.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// ConfirmationRequiredError is returned instead of saving when a write
// trips a budget or goal warning and the caller has not confirmed it.
type ConfirmationRequiredError struct {
	Warnings []ledger.Warning
}

func (e *ConfirmationRequiredError) Error() string {
	msgs := make([]string, 0, len(e.Warnings))
	for _, w := range e.Warnings {
		msgs = append(msgs, w.Message)
	}
	return "confirmation required: " + strings.Join(msgs, "; ")
}

// Result describes a committed write.
type Result struct {
	Revision     int64              `json:"revision"`
	Transactions []core.Transaction `json:"transactions,omitempty"`
	Deleted      []string           `json:"deleted,omitempty"`
	Warnings     []ledger.Warning   `json:"warnings,omitempty"`
	EditKind     string             `json:"editKind,omitempty"`
}

// MonthSummary is the dashboard view of one month.
type MonthSummary struct {
	Totals     core.MonthTotals      `json:"totals"`
	Categories []core.CategoryAmount `json:"categories"`
	Cards      []ledger.CardStatus   `json:"cards"`
}

type Option func(*LedgerService)

func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithIDs(ids ledger.IDGenerator) Option {
	return func(s *LedgerService) { s.ids = ids }
}

// WithQueryCache memoizes read queries per snapshot revision.
func WithQueryCache(c cache.Cache[any]) Option {
	return func(s *LedgerService) { s.queries = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// LedgerService runs the ledger operations of one user against a repository.
// Writes plan a batch from a fresh snapshot, apply it atomically and then
// announce the affected months.
type LedgerService struct {
	repo      store.Repository
	publisher Publisher
	userID    string
	now       func() time.Time
	ids       ledger.IDGenerator
	logger    *log.Logger
	queries   cache.Cache[any]

	latest atomic.Pointer[core.Snapshot]
}

func NewLedgerService(repo store.Repository, userID string, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:   repo,
		userID: userID,
		now:    time.Now,
		ids:    ledger.NewID,
		logger: log.FromSlog(slog.Default(), log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch keeps the latest committed snapshot in memory so queries skip the
// repository. It stops when ctx is done.
func (s *LedgerService) Watch(ctx context.Context) (*store.Subscription, error) {
	return s.repo.Subscribe(ctx, func(snap core.Snapshot) {
		s.latest.Store(&snap)
	})
}

// Snapshot returns the newest snapshot known to the service.
func (s *LedgerService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	if snap := s.latest.Load(); snap != nil {
		return *snap, nil
	}
	return s.repo.Snapshot(ctx)
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now())
}

// Submit expands a purchase and saves all of its records.
func (s *LedgerService) Submit(ctx context.Context, p ledger.Purchase, confirmed bool) (Result, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}
	b, err := ledger.PlanPurchase(snap, p, s.ids)
	if err != nil {
		return Result{}, err
	}
	check := func(snap core.Snapshot, b core.Batch) ([]ledger.Warning, error) {
		return ledger.CheckPurchase(snap, p, b)
	}
	return s.commit(ctx, log.OpSubmit, snap, b, confirmed, check)
}

// Edit applies e to the record with id, regenerating its group when the
// change is structural.
func (s *LedgerService) Edit(ctx context.Context, id string, e ledger.Edit, confirmed bool) (Result, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}
	b, kind, err := ledger.PlanEdit(snap, id, e, s.ids)
	if err != nil {
		return Result{}, err
	}
	var check budgetCheck
	if kind != ledger.EditTransfer {
		check = ledger.CheckBudget
	}
	res, err := s.commit(ctx, log.OpEdit, snap, b, confirmed, check)
	res.EditKind = kind.String()
	return res, err
}

// Anticipate settles the remaining installments of id's purchase today.
func (s *LedgerService) Anticipate(ctx context.Context, id string) (Result, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}
	b, err := ledger.PlanAnticipation(snap, id, s.today(), s.ids)
	if err != nil {
		return Result{}, err
	}
	return s.commit(ctx, log.OpAnticipate, snap, b, true, nil)
}

// DeleteGroup removes the record with id together with its installment
// siblings or its transfer counterpart.
func (s *LedgerService) DeleteGroup(ctx context.Context, id string) (Result, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}
	b, err := ledger.PlanDelete(snap, id)
	if err != nil {
		return Result{}, err
	}
	return s.commit(ctx, log.OpDelete, snap, b, true, nil)
}

// TransferBalance carries month's positive balance into the next month.
func (s *LedgerService) TransferBalance(ctx context.Context, month core.MonthKey) (Result, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}
	totals := ledger.MonthlyTotals(snap.Transactions, month)
	b, err := ledger.PlanTransfer(month, totals.Balance, s.ids)
	if err != nil {
		return Result{}, err
	}
	return s.commit(ctx, log.OpTransfer, snap, b, true, nil)
}

// budgetCheck returns the advisory warnings for applying b to snap.
type budgetCheck func(snap core.Snapshot, b core.Batch) ([]ledger.Warning, error)

func (s *LedgerService) commit(ctx context.Context, op string, snap core.Snapshot, b core.Batch, confirmed bool, check budgetCheck) (Result, error) {
	var res Result
	if check != nil {
		warnings, err := check(snap, b)
		if err != nil {
			return Result{}, err
		}
		if len(warnings) > 0 && !confirmed {
			s.logger.InfoContext(ctx, "Write held for confirmation",
				log.FieldOperation, op, log.FieldWarnings, len(warnings))
			return Result{Warnings: warnings}, &ConfirmationRequiredError{Warnings: warnings}
		}
		res.Warnings = warnings
	}

	if err := s.repo.Apply(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "Ledger write failed",
			log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	after, err := s.repo.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reload ledger: %w", err)
	}
	res.Revision = after.Revision
	for _, o := range b.Ops {
		if o.Kind == core.OpDelete {
			res.Deleted = append(res.Deleted, o.ID)
			continue
		}
		if t, ok := after.Transaction(o.ID); ok {
			res.Transactions = append(res.Transactions, t)
		}
	}

	months := AffectedMonths(snap, b)
	s.logger.InfoContext(ctx, "Ledger write committed",
		log.NewFields().
			WithOperation(op).
			WithCommit(s.userID, after.Revision, len(b.Ops)).
			ToSlice()...)
	s.publish(ctx, op, after.Revision, months)
	return res, nil
}

func (s *LedgerService) publish(ctx context.Context, op string, revision int64, months []core.MonthKey) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping change event")
		return
	}
	keys := make([]string, len(months))
	for i, m := range months {
		keys[i] = m.String()
	}
	msg := amqp.NewLedgerChangedMessage(s.userID, revision, op, keys)
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		// the write is already committed; the worker catches up on its next run
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldRevision, revision, log.FieldError, err.Error())
	}
}

// AffectedMonths lists, sorted, every month whose records b changes.
func AffectedMonths(snap core.Snapshot, b core.Batch) []core.MonthKey {
	set := map[core.MonthKey]bool{}
	for _, o := range b.Ops {
		if old, ok := snap.Transaction(o.ID); ok {
			set[old.Month] = true
			if o.Kind == core.OpUpdate {
				set[o.Patch.ApplyTo(old).Month] = true
			}
		}
		if o.Kind == core.OpPut {
			set[o.Transaction.Month] = true
		}
	}
	out := make([]core.MonthKey, 0, len(set))
	for m := range set {
		if m != "" {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SaveCard creates or replaces a card; an empty id gets a fresh one.
func (s *LedgerService) SaveCard(ctx context.Context, c core.Card) (core.Card, error) {
	if c.ID == "" {
		c.ID = s.ids()
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.repo.SaveCard(ctx, c); err != nil {
		return core.Card{}, fmt.Errorf("save card: %w", err)
	}
	s.logger.InfoContext(ctx, "Card saved", log.FieldCardID, c.ID)
	return c, nil
}

// DeleteCard removes a card no record references.
func (s *LedgerService) DeleteCard(ctx context.Context, id string) error {
	if err := s.repo.DeleteCard(ctx, id); err != nil {
		if errors.Is(err, core.ErrCardInUse) || errors.Is(err, core.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete card: %w", err)
	}
	s.logger.InfoContext(ctx, "Card deleted", log.FieldCardID, id)
	return nil
}

func (s *LedgerService) Settings(ctx context.Context) (core.UserSettings, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.UserSettings{}, err
	}
	return snap.Settings, nil
}

func (s *LedgerService) UpdateSettings(ctx context.Context, settings core.UserSettings) (core.UserSettings, error) {
	if settings.CategoryLimits == nil {
		settings.CategoryLimits = map[string]core.Money{}
	}
	if err := settings.Validate(); err != nil {
		return core.UserSettings{}, err
	}
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return core.UserSettings{}, fmt.Errorf("save settings: %w", err)
	}
	s.logger.InfoContext(ctx, "Settings updated", log.FieldOperation, log.OpSettings)
	return settings, nil
}

func cached[T any](s *LedgerService, snap core.Snapshot, query string, args []any, compute func() (T, error)) (T, error) {
	if s.queries == nil {
		return compute()
	}
	key := cache.Key(s.userID, snap.Revision, query, args...)
	v, err := cache.GetOrCompute(s.queries, key, func() (any, error) {
		return compute()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// MonthSummary returns the month's totals, its expense categories and the
// invoice of every card for that month.
func (s *LedgerService) MonthSummary(ctx context.Context, month core.MonthKey) (MonthSummary, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return MonthSummary{}, err
	}
	return cached(s, snap, "summary", []any{month}, func() (MonthSummary, error) {
		out := MonthSummary{
			Totals: ledger.MonthlyTotals(snap.Transactions, month),
			Categories: ledger.Breakdown(snap.Transactions, ledger.BreakdownFilter{
				Month: month,
				Type:  core.Expense,
			}).Slices,
			Cards: make([]ledger.CardStatus, 0, len(snap.Cards)),
		}
		for _, c := range snap.Cards {
			out.Cards = append(out.Cards, ledger.StatusOf(snap.Transactions, c, month))
		}
		return out, nil
	})
}

// MonthTransactions lists the month's records by date.
func (s *LedgerService) MonthTransactions(ctx context.Context, month core.MonthKey) ([]core.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return cached(s, snap, "transactions", []any{month}, func() ([]core.Transaction, error) {
		return ledger.MonthTransactions(snap.Transactions, month), nil
	})
}

// Cards returns every card with the invoice that is open today.
func (s *LedgerService) Cards(ctx context.Context) ([]ledger.CardStatus, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()
	return cached(s, snap, "cards", []any{today}, func() ([]ledger.CardStatus, error) {
		out := make([]ledger.CardStatus, 0, len(snap.Cards))
		for _, c := range snap.Cards {
			out = append(out, ledger.StatusOf(snap.Transactions, c, ledger.OpenInvoiceMonth(c, today)))
		}
		return out, nil
	})
}

// CardInvoices returns the card's invoice for month and the three after it.
// An empty month selects the invoice open today.
func (s *LedgerService) CardInvoices(ctx context.Context, cardID string, month core.MonthKey) (ledger.CardStatus, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ledger.CardStatus{}, err
	}
	card, ok := snap.Card(cardID)
	if !ok {
		return ledger.CardStatus{}, fmt.Errorf("card %s: %w", cardID, core.ErrNotFound)
	}
	if month == "" {
		month = ledger.OpenInvoiceMonth(card, s.today())
	}
	return cached(s, snap, "invoice", []any{cardID, month}, func() (ledger.CardStatus, error) {
		return ledger.StatusOf(snap.Transactions, card, month), nil
	})
}

func (s *LedgerService) Breakdown(ctx context.Context, f ledger.BreakdownFilter) (ledger.BreakdownResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ledger.BreakdownResult{}, err
	}
	if f.Type != "" && !f.Type.Valid() {
		return ledger.BreakdownResult{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
	}
	return cached(s, snap, "breakdown", []any{f.Month, f.Type, f.Category}, func() (ledger.BreakdownResult, error) {
		return ledger.Breakdown(snap.Transactions, f), nil
	})
}

// Series returns month totals for every month from..to inclusive.
func (s *LedgerService) Series(ctx context.Context, from, to core.MonthKey) ([]core.MonthTotals, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return cached(s, snap, "series", []any{from, to}, func() ([]core.MonthTotals, error) {
		return ledger.MonthlySeries(snap.Transactions, from, to)
	})
}

func (s *LedgerService) Integrity(ctx context.Context) ([]ledger.Violation, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return cached(s, snap, "integrity", nil, func() ([]ledger.Violation, error) {
		return ledger.CheckIntegrity(snap), nil
	})
}
