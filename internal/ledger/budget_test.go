package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organize/internal/core"
)

func budgetSnapshot() core.Snapshot {
	d := core.NewDate(2024, 4, 10)
	s := core.Snapshot{Settings: core.DefaultSettings()}
	s.Settings.MonthlyIncome = core.Cents(300000)
	s.Settings.CategoryLimits = map[string]core.Money{"Food": core.Cents(50000)}
	s.Settings.Goals = []core.Goal{
		{ID: "g1", Name: "Emergency fund", Amount: core.Cents(50000)},
		{ID: "g2", Name: "Trip", Amount: core.Cents(90000)},
	}
	s.Transactions = []core.Transaction{
		cashRecord("food", core.Expense, 40000, d),
		func() core.Transaction {
			t := cashRecord("rent", core.Expense, 100000, d)
			t.Category = "Housing"
			return t
		}(),
	}
	return s
}

func TestCheckBudgetCategoryLimit(t *testing.T) {
	s := budgetSnapshot()
	var b core.Batch
	b.Put(cashRecord("dinner", core.Expense, 15000, core.NewDate(2024, 4, 12)))

	warnings, err := CheckBudget(s, b)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	w := warnings[0]
	assert.Equal(t, WarnCategoryLimit, w.Kind)
	assert.Equal(t, "Food", w.Category)
	assert.Equal(t, int64(50000), w.Limit.Cents)
	assert.Equal(t, int64(55000), w.Projected.Cents)
	assert.Equal(t, core.MonthKey("2024-04"), w.Month)
}

func TestCheckBudgetWithinLimits(t *testing.T) {
	s := budgetSnapshot()
	var b core.Batch
	b.Put(cashRecord("snack", core.Expense, 5000, core.NewDate(2024, 4, 12)))

	warnings, err := CheckBudget(s, b)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCheckBudgetGoals(t *testing.T) {
	s := budgetSnapshot()
	big := cashRecord("car", core.Expense, 100000, core.NewDate(2024, 4, 15))
	big.Category = "Transport"
	var b core.Batch
	b.Put(big)

	// surplus: 300000 - 240000 = 60000 covers the first goal only
	warnings, err := CheckBudget(s, b)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnGoal, warnings[0].Kind)
	assert.Equal(t, "Trip", warnings[0].Goal)
	assert.Equal(t, int64(140000), warnings[0].Limit.Cents)
	assert.Equal(t, int64(60000), warnings[0].Projected.Cents)
}

func TestCheckBudgetIgnoresReductions(t *testing.T) {
	s := budgetSnapshot()
	s.Settings.CategoryLimits["Food"] = core.Cents(10000)
	var b core.Batch
	b.Delete("food")

	warnings, err := CheckBudget(s, b)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCheckBudgetRejectsBrokenBatch(t *testing.T) {
	var b core.Batch
	b.Delete("missing")
	_, err := CheckBudget(budgetSnapshot(), b)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCheckPurchaseWarnsOnSpreadTotal(t *testing.T) {
	card := testCard(10)
	s := snapshotWith(t, card)
	s.Settings.CategoryLimits = map[string]core.Money{"Shopping": core.Cents(50000)}

	p := cardPurchase("Laptop", 120000, core.NewDate(2024, 4, 2), 12)
	b, err := ExpandBatch(p, &card, seqIDs("lap"))
	require.NoError(t, err)

	monthly, err := CheckBudget(s, b)
	require.NoError(t, err)
	assert.Empty(t, monthly, "each 100.00 installment stays under the monthly limit")

	warnings, err := CheckPurchase(s, p, b)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	w := warnings[0]
	assert.Equal(t, WarnPurchaseLimit, w.Kind)
	assert.Equal(t, "Shopping", w.Category)
	assert.Equal(t, int64(50000), w.Limit.Cents)
	assert.Equal(t, int64(120000), w.Projected.Cents)
	assert.Equal(t, core.MonthKey("2024-04"), w.Month)
}

func TestCheckPurchaseDoesNotRepeatMonthlyWarning(t *testing.T) {
	s := budgetSnapshot()
	p := Purchase{
		Description:   "Party",
		Total:         core.Cents(60000),
		Type:          core.Expense,
		Category:      "Food",
		Date:          core.NewDate(2024, 4, 12),
		PaymentMethod: core.PayCash,
	}
	b, err := ExpandBatch(p, nil, seqIDs("party"))
	require.NoError(t, err)

	warnings, err := CheckPurchase(s, p, b)
	require.NoError(t, err)
	var kinds []WarningKind
	for _, w := range warnings {
		if w.Category == "Food" {
			kinds = append(kinds, w.Kind)
		}
	}
	assert.Equal(t, []WarningKind{WarnCategoryLimit}, kinds)

	p.Type = core.Income
	p.Category = "Salary"
	b, err = ExpandBatch(p, nil, seqIDs("pay"))
	require.NoError(t, err)
	warnings, err = CheckPurchase(s, p, b)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
