package ledger

import (
	"fmt"

	"organize/internal/core"
)

// MonthTransactions returns the records filed under month, sorted by date.
func MonthTransactions(txs []core.Transaction, month core.MonthKey) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if t.Month == month {
			out = append(out, t)
		}
	}
	core.SortTransactions(out)
	return out
}

// counts reports whether t contributes to the flow totals of its type.
// Adjustments never count as income or expense but do count as investment.
func counts(t core.Transaction) bool {
	return !t.IsAdjustment || t.Type == core.Investment
}

// MonthlyTotals sums the month's records per type.
func MonthlyTotals(txs []core.Transaction, month core.MonthKey) core.MonthTotals {
	totals := core.MonthTotals{Month: month}
	for _, t := range txs {
		if t.Month != month || !counts(t) {
			continue
		}
		switch t.Type {
		case core.Income:
			totals.Income = totals.Income.Add(t.Amount)
		case core.Expense:
			totals.Expenses = totals.Expenses.Add(t.Amount)
		case core.Investment:
			totals.Investments = totals.Investments.Add(t.Amount)
		}
	}
	totals.Balance = totals.Income.Sub(totals.Expenses)
	return totals
}

// MaxSeriesMonths bounds the span of one MonthlySeries call.
const MaxSeriesMonths = 120

// MonthlySeries returns MonthlyTotals for every month from..to inclusive.
func MonthlySeries(txs []core.Transaction, from, to core.MonthKey) ([]core.MonthTotals, error) {
	if _, err := core.ParseMonthKey(from.String()); err != nil {
		return nil, err
	}
	if _, err := core.ParseMonthKey(to.String()); err != nil {
		return nil, err
	}
	if to < from {
		return nil, fmt.Errorf("%w: range %s..%s is reversed", core.ErrInvalidMonthKey, from, to)
	}
	if n := from.MonthsUntil(to) + 1; n > MaxSeriesMonths {
		return nil, fmt.Errorf("%w: range %s..%s covers %d months, at most %d",
			core.ErrInvalidMonthKey, from, to, n, MaxSeriesMonths)
	}
	var out []core.MonthTotals
	for m := from; m <= to; m = m.Add(1) {
		out = append(out, MonthlyTotals(txs, m))
	}
	return out, nil
}

// CardInvoice is the sum of the card's expenses filed under month.
func CardInvoice(txs []core.Transaction, cardID string, month core.MonthKey) core.Money {
	var sum core.Money
	for _, t := range txs {
		if t.Type == core.Expense && t.CardID == cardID && t.Month == month {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

type Invoice struct {
	Month  core.MonthKey `json:"month"`
	Amount core.Money    `json:"amount"`
}

// FutureInvoices returns the card's invoices for the three months after month.
func FutureInvoices(txs []core.Transaction, cardID string, month core.MonthKey) []Invoice {
	out := make([]Invoice, 0, 3)
	for i := 1; i <= 3; i++ {
		m := month.Add(i)
		out = append(out, Invoice{Month: m, Amount: CardInvoice(txs, cardID, m)})
	}
	return out
}

// CardStatus is a card's invoice for one month with its limit usage.
type CardStatus struct {
	Card        core.Card  `json:"card"`
	Invoice     Invoice    `json:"invoice"`
	Available   core.Money `json:"available"`
	UsedPercent float64    `json:"usedPercent"`
	Future      []Invoice  `json:"future"`
}

func StatusOf(txs []core.Transaction, card core.Card, month core.MonthKey) CardStatus {
	amount := CardInvoice(txs, card.ID, month)
	used := core.PercentOf(amount, card.Limit)
	if used > 100 {
		used = 100
	}
	return CardStatus{
		Card:        card,
		Invoice:     Invoice{Month: month, Amount: amount},
		Available:   card.Limit.Sub(amount),
		UsedPercent: used,
		Future:      FutureInvoices(txs, card.ID, month),
	}
}

// OpenInvoiceMonth is the invoice a card purchase made today would land in.
func OpenInvoiceMonth(card core.Card, today core.Date) core.MonthKey {
	return core.MonthKeyOf(today.AddMonths(BillingShift(core.PayCard, &card, today)))
}
