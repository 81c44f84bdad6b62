package ledger

import (
	"fmt"
	"sort"

	"organize/internal/core"
)

type WarningKind string

const (
	WarnCategoryLimit WarningKind = "category_limit"
	WarnPurchaseLimit WarningKind = "purchase_limit"
	WarnGoal          WarningKind = "goal"
)

// Warning is advisory: the write it refers to may still be confirmed.
type Warning struct {
	Kind      WarningKind   `json:"kind"`
	Month     core.MonthKey `json:"month"`
	Category  string        `json:"category,omitempty"`
	Goal      string        `json:"goal,omitempty"`
	Limit     core.Money    `json:"limit"`
	Projected core.Money    `json:"projected"`
	Message   string        `json:"message"`
}

// CheckBudget projects b onto the snapshot and reports every category limit
// the write would push a month over, and every goal that would no longer fit
// in a month's surplus. Only months whose expenses the write increases are
// checked.
func CheckBudget(s core.Snapshot, b core.Batch) ([]Warning, error) {
	after, err := b.Apply(s.Transactions)
	if err != nil {
		return nil, err
	}

	months := map[core.MonthKey]bool{}
	for _, t := range after {
		if t.Type == core.Expense {
			months[t.Month] = true
		}
	}
	keys := make([]core.MonthKey, 0, len(months))
	for m := range months {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var warnings []Warning
	for _, m := range keys {
		before := MonthlyTotals(s.Transactions, m)
		projected := MonthlyTotals(after, m)
		if projected.Expenses.Cents <= before.Expenses.Cents {
			continue
		}
		warnings = append(warnings, categoryWarnings(s, after, m)...)
		warnings = append(warnings, goalWarnings(s.Settings, projected)...)
	}
	return warnings, nil
}

// CheckPurchase is CheckBudget for a new purchase. It also warns when the
// purchase total alone is above its category limit, which installments can
// hide from the monthly check.
func CheckPurchase(s core.Snapshot, p Purchase, b core.Batch) ([]Warning, error) {
	warnings, err := CheckBudget(s, b)
	if err != nil {
		return nil, err
	}
	if p.Type != core.Expense || p.IsAdjustment {
		return warnings, nil
	}
	limit, ok := s.Settings.CategoryLimit(p.Category)
	if !ok || p.Total.Cents <= limit.Cents {
		return warnings, nil
	}
	for _, w := range warnings {
		if w.Kind == WarnCategoryLimit && w.Category == p.Category {
			return warnings, nil
		}
	}
	month := core.MonthKeyOf(p.Date)
	w := Warning{
		Kind:      WarnPurchaseLimit,
		Month:     month,
		Category:  p.Category,
		Limit:     limit,
		Projected: p.Total,
		Message: fmt.Sprintf("%s purchase of %s is above its limit of %s",
			p.Category, p.Total.BRL(), limit.BRL()),
	}
	return append([]Warning{w}, warnings...), nil
}

func categoryTotals(txs []core.Transaction, month core.MonthKey) map[string]core.Money {
	out := map[string]core.Money{}
	for _, t := range txs {
		if t.Month == month && t.Type == core.Expense && counts(t) {
			out[t.Category] = out[t.Category].Add(t.Amount)
		}
	}
	return out
}

func categoryWarnings(s core.Snapshot, after []core.Transaction, month core.MonthKey) []Warning {
	before := categoryTotals(s.Transactions, month)
	projected := categoryTotals(after, month)
	names := make([]string, 0, len(projected))
	for name := range projected {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Warning
	for _, name := range names {
		limit, ok := s.Settings.CategoryLimit(name)
		if !ok {
			continue
		}
		total := projected[name]
		if total.Cents <= limit.Cents || total.Cents <= before[name].Cents {
			continue
		}
		out = append(out, Warning{
			Kind:      WarnCategoryLimit,
			Month:     month,
			Category:  name,
			Limit:     limit,
			Projected: total,
			Message: fmt.Sprintf("%s would reach %s in %s, above its limit of %s",
				name, total.BRL(), month, limit.BRL()),
		})
	}
	return out
}

// goalWarnings walks the goals in order against the month's surplus; a goal
// is at risk when the surplus no longer covers it and every goal before it.
func goalWarnings(settings core.UserSettings, totals core.MonthTotals) []Warning {
	income := totals.Income
	if settings.MonthlyIncome.Cents > income.Cents {
		income = settings.MonthlyIncome
	}
	surplus := income.Sub(totals.Expenses)

	var (
		out    []Warning
		needed core.Money
	)
	for _, g := range settings.Goals {
		if g.Amount.Cents <= 0 {
			continue
		}
		needed = needed.Add(g.Amount)
		if surplus.Cents >= needed.Cents {
			continue
		}
		out = append(out, Warning{
			Kind:      WarnGoal,
			Month:     totals.Month,
			Goal:      g.Name,
			Limit:     needed,
			Projected: surplus,
			Message: fmt.Sprintf("goal %q needs %s but %s would leave %s",
				g.Name, needed.BRL(), totals.Month, surplus.BRL()),
		})
	}
	return out
}
