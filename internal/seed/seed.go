// Package seed loads the starting state of a ledger from a TOML file.
//
// Amounts are written the way people type them ("1.234,56", "R$ 80",
// "12.50") and parsed into cents.
package seed

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"organize/internal/core"
	"organize/internal/ledger"
)

// File mirrors the TOML document.
type File struct {
	Settings    Settings     `toml:"settings"`
	Cards       []Card       `toml:"cards"`
	Goals       []Goal       `toml:"goals"`
	Limits      []Limit      `toml:"limits"`
	Adjustments []Adjustment `toml:"adjustments"`
}

type Settings struct {
	MonthlyIncome        string   `toml:"monthly_income"`
	DarkMode             bool     `toml:"dark_mode"`
	ExpenseCategories    []string `toml:"expense_categories"`
	IncomeCategories     []string `toml:"income_categories"`
	InvestmentCategories []string `toml:"investment_categories"`
}

type Card struct {
	ID         string `toml:"id"`
	Name       string `toml:"name"`
	Holder     string `toml:"holder"`
	Limit      string `toml:"limit"`
	ClosingDay int    `toml:"closing_day"`
	DueDay     int    `toml:"due_day"`
	Color      string `toml:"color"`
}

type Goal struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	Amount string `toml:"amount"`
}

type Limit struct {
	Category string `toml:"category"`
	Amount   string `toml:"amount"`
}

// Adjustment is an opening entry; it never counts as income or expense.
type Adjustment struct {
	ID          string `toml:"id"`
	Description string `toml:"description"`
	Amount      string `toml:"amount"`
	Type        string `toml:"type"`
	Category    string `toml:"category"`
	Date        string `toml:"date"`
}

// Load reads and converts the seed file at path.
func Load(path string) (core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document. Sections left out fall back to the
// default cards and settings.
func Decode(r io.Reader) (core.Snapshot, error) {
	var doc File
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("decode seed: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return core.Snapshot{}, fmt.Errorf("decode seed: unknown keys %s", strings.Join(keys, ", "))
	}
	return doc.Snapshot(md.IsDefined("cards"))
}

// Snapshot converts the document. hasCards tells an explicitly empty card
// list apart from a missing one.
func (doc File) Snapshot(hasCards bool) (core.Snapshot, error) {
	settings, err := doc.settings()
	if err != nil {
		return core.Snapshot{}, err
	}
	snap := core.Snapshot{Settings: settings, Cards: core.DefaultCards()}

	if hasCards {
		snap.Cards = make([]core.Card, 0, len(doc.Cards))
		for i, c := range doc.Cards {
			card, err := c.card(i)
			if err != nil {
				return core.Snapshot{}, err
			}
			snap.Cards = append(snap.Cards, card)
		}
	}

	for i, a := range doc.Adjustments {
		txs, err := a.expand(i)
		if err != nil {
			return core.Snapshot{}, err
		}
		snap.Transactions = append(snap.Transactions, txs...)
	}
	return snap, nil
}

func (doc File) settings() (core.UserSettings, error) {
	s := core.DefaultSettings()
	if doc.Settings.MonthlyIncome != "" {
		m, err := parseAmount(doc.Settings.MonthlyIncome)
		if err != nil {
			return s, fmt.Errorf("settings.monthly_income: %w", err)
		}
		s.MonthlyIncome = m
	}
	s.DarkMode = doc.Settings.DarkMode
	if len(doc.Settings.ExpenseCategories) > 0 {
		s.ExpenseCategories = doc.Settings.ExpenseCategories
	}
	if len(doc.Settings.IncomeCategories) > 0 {
		s.IncomeCategories = doc.Settings.IncomeCategories
	}
	if len(doc.Settings.InvestmentCategories) > 0 {
		s.InvestmentCategories = doc.Settings.InvestmentCategories
	}

	for i, g := range doc.Goals {
		amount, err := parseAmount(g.Amount)
		if err != nil {
			return s, fmt.Errorf("goals[%d].amount: %w", i, err)
		}
		id := g.ID
		if id == "" {
			id = fmt.Sprintf("goal-%d", i+1)
		}
		s.Goals = append(s.Goals, core.Goal{ID: id, Name: strings.TrimSpace(g.Name), Amount: amount})
	}
	for i, l := range doc.Limits {
		amount, err := parseAmount(l.Amount)
		if err != nil {
			return s, fmt.Errorf("limits[%d].amount: %w", i, err)
		}
		s.CategoryLimits[strings.TrimSpace(l.Category)] = amount
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

func (c Card) card(i int) (core.Card, error) {
	limit, err := parseAmount(c.Limit)
	if err != nil {
		return core.Card{}, fmt.Errorf("cards[%d].limit: %w", i, err)
	}
	id := c.ID
	if id == "" {
		id = fmt.Sprintf("card-%d", i+1)
	}
	card := core.Card{
		ID:         id,
		Name:       strings.TrimSpace(c.Name),
		Holder:     strings.TrimSpace(c.Holder),
		Limit:      limit,
		ClosingDay: c.ClosingDay,
		DueDay:     c.DueDay,
		Color:      c.Color,
	}
	if err := card.Validate(); err != nil {
		return core.Card{}, fmt.Errorf("cards[%d]: %w", i, err)
	}
	return card, nil
}

func (a Adjustment) expand(i int) ([]core.Transaction, error) {
	amount, err := core.ParseMoney(a.Amount)
	if err != nil {
		return nil, fmt.Errorf("adjustments[%d].amount: %w", i, err)
	}
	date, err := core.ParseDate(a.Date)
	if err != nil {
		return nil, fmt.Errorf("adjustments[%d].date: %w", i, err)
	}
	id := a.ID
	if id == "" {
		id = fmt.Sprintf("seed-adjustment-%d", i+1)
	}
	typ := core.TransactionType(strings.ToLower(strings.TrimSpace(a.Type)))
	if typ == "" {
		typ = core.Income
	}
	txs, err := ledger.Expand(ledger.Purchase{
		ID:            id,
		Description:   a.Description,
		Total:         amount,
		Type:          typ,
		Category:      a.Category,
		Date:          date,
		PaymentMethod: core.PayCash,
		IsAdjustment:  true,
	}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("adjustments[%d]: %w", i, err)
	}
	return txs, nil
}

// parseAmount accepts zero, which ParseMoney rejects, for limits and goals.
func parseAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return core.Money{}, nil
	}
	return core.ParseMoney(s)
}
