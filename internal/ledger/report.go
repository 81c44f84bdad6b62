package ledger

import (
	"sort"

	"organize/internal/core"
)

// BreakdownFilter selects the records of a report. Empty Month means all
// months, empty Type means all types and empty Category means all categories.
type BreakdownFilter struct {
	Month    core.MonthKey        `json:"month,omitempty"`
	Type     core.TransactionType `json:"type,omitempty"`
	Category string               `json:"category,omitempty"`
}

type BreakdownResult struct {
	Filter BreakdownFilter       `json:"filter"`
	Total  core.Money            `json:"total"`
	Slices []core.CategoryAmount `json:"slices"`
}

var typeLabels = []struct {
	t     core.TransactionType
	label string
}{
	{core.Income, "Income"},
	{core.Expense, "Expense"},
	{core.Investment, "Investment"},
}

// Breakdown groups the filtered records for a chart. Across all types it
// returns one slice per type as a percentage of income; for a single type it
// returns one slice per category as a percentage of that type's total.
func Breakdown(txs []core.Transaction, f BreakdownFilter) BreakdownResult {
	res := BreakdownResult{Filter: f}
	var selected []core.Transaction
	for _, t := range txs {
		if !counts(t) {
			continue
		}
		if f.Month != "" && t.Month != f.Month {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		selected = append(selected, t)
	}

	if f.Type == "" {
		byType := map[core.TransactionType]core.Money{}
		for _, t := range selected {
			byType[t.Type] = byType[t.Type].Add(t.Amount)
		}
		income := byType[core.Income]
		res.Total = income
		for _, tl := range typeLabels {
			res.Slices = append(res.Slices, core.CategoryAmount{
				Name:    tl.label,
				Amount:  byType[tl.t],
				Percent: core.PercentOf(byType[tl.t], income),
			})
		}
		return res
	}

	byCategory := map[string]core.Money{}
	for _, t := range selected {
		byCategory[t.Category] = byCategory[t.Category].Add(t.Amount)
		res.Total = res.Total.Add(t.Amount)
	}
	for name, amount := range byCategory {
		res.Slices = append(res.Slices, core.CategoryAmount{
			Name:    name,
			Amount:  amount,
			Percent: core.PercentOf(amount, res.Total),
		})
	}
	sort.Slice(res.Slices, func(i, j int) bool {
		a, b := res.Slices[i], res.Slices[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return res
}
