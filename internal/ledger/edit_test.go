package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organize/internal/core"
)

func TestClassifyEdit(t *testing.T) {
	old := core.Transaction{
		ID:            "a",
		Description:   "TV (1/3)",
		Amount:        core.Cents(3333),
		Type:          core.Expense,
		PaymentMethod: core.PayCard,
		CardID:        "card-1",
		ParentID:      "p",
		Installment:   &core.Installment{Current: 1, Total: 3},
	}
	cases := []struct {
		name string
		old  core.Transaction
		edit Edit
		want EditKind
	}{
		{"description only", old, Edit{Description: "Television", PaymentMethod: core.PayCard, CardID: "card-1", Installments: 3}, EditSimple},
		{"omitted fields keep values", old, Edit{Description: "Television"}, EditSimple},
		{"installment count", old, Edit{PaymentMethod: core.PayCard, CardID: "card-1", Installments: 5}, EditStructural},
		{"card changed", old, Edit{PaymentMethod: core.PayCard, CardID: "card-2", Installments: 3}, EditStructural},
		{"payment method", old, Edit{PaymentMethod: core.PayCash, Installments: 1}, EditStructural},
		{"transfer side", core.Transaction{ID: "x", TransferID: "tr"}, Edit{Description: "x"}, EditTransfer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyEdit(tc.old, tc.edit))
		})
	}
}

func TestPlanEditStructuralRegeneratesGroup(t *testing.T) {
	card := testCard(10)
	s := snapshotWith(t, card, cardPurchase("TV", 30000, core.NewDate(2024, 1, 5), 3))
	oldParent := s.Transactions[0].ParentID
	target := s.Transactions[1].ID

	b, kind, err := PlanEdit(s, target, Edit{
		Description:   "TV (2/3)",
		Amount:        core.Cents(30000),
		Category:      "Shopping",
		Date:          core.NewDate(2024, 1, 5),
		PaymentMethod: core.PayCard,
		CardID:        "card-1",
		Installments:  5,
	}, seqIDs("new"))
	require.NoError(t, err)
	assert.Equal(t, EditStructural, kind)

	s = apply(t, s, b)
	require.Len(t, s.Transactions, 5)
	newParent := s.Transactions[0].ParentID
	assert.NotEqual(t, oldParent, newParent)

	var sum int64
	for i, tx := range s.Transactions {
		assert.Equal(t, newParent, tx.ParentID)
		assert.Equal(t, core.InstallmentDescription("TV", i+1, 5), tx.Description)
		sum += tx.Amount.Cents
	}
	assert.Equal(t, int64(30000), sum)
	assert.Empty(t, CheckIntegrity(s))
}

func TestPlanEditStructuralToCash(t *testing.T) {
	card := testCard(10)
	s := snapshotWith(t, card, cardPurchase("TV", 30000, core.NewDate(2024, 1, 5), 3))

	b, kind, err := PlanEdit(s, s.Transactions[0].ID, Edit{
		Description:   "TV (1/3)",
		Amount:        core.Cents(30000),
		Category:      "Shopping",
		Date:          core.NewDate(2024, 1, 5),
		PaymentMethod: core.PayCash,
		Installments:  1,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, EditStructural, kind)

	s = apply(t, s, b)
	require.Len(t, s.Transactions, 1)
	tx := s.Transactions[0]
	assert.Equal(t, "TV", tx.Description)
	assert.Empty(t, tx.CardID)
	assert.Empty(t, tx.ParentID)
	assert.Equal(t, int64(30000), tx.Amount.Cents)
}

func TestPlanEditSimpleKeepsGroup(t *testing.T) {
	card := testCard(10)
	s := snapshotWith(t, card, cardPurchase("TV", 30000, core.NewDate(2024, 1, 5), 3))
	target := s.Transactions[1]

	b, kind, err := PlanEdit(s, target.ID, Edit{
		Description: "Television (2/3)",
		Amount:      core.Cents(30000),
		Category:    "Electronics",
		Date:        target.Date,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, EditSimple, kind)
	require.Len(t, b.Ops, 1)
	assert.Equal(t, core.OpUpdate, b.Ops[0].Kind)

	s = apply(t, s, b)
	require.Len(t, s.Transactions, 3)
	edited, ok := s.Transaction(target.ID)
	require.True(t, ok)
	assert.Equal(t, target.ParentID, edited.ParentID)
	assert.Equal(t, "Television (2/3)", edited.Description)
	assert.Equal(t, "Electronics", edited.Category)
	assert.Equal(t, int64(10000), edited.Amount.Cents)
}

func TestPlanEditSimpleRederivesMonth(t *testing.T) {
	rec := cashRecord("r1", core.Expense, 1500, core.NewDate(2024, 2, 10))
	s := core.Snapshot{Transactions: []core.Transaction{rec}}

	b, kind, err := PlanEdit(s, "r1", Edit{
		Description: "Lunch",
		Amount:      core.Cents(1800),
		Category:    "Food",
		Date:        core.NewDate(2024, 3, 1),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, EditSimple, kind)

	s = apply(t, s, b)
	assert.Equal(t, core.MonthKey("2024-03"), s.Transactions[0].Month)
	assert.Equal(t, int64(1800), s.Transactions[0].Amount.Cents)
}

func TestPlanEditRejectsInvalidValues(t *testing.T) {
	rec := cashRecord("r1", core.Expense, 1500, core.NewDate(2024, 2, 10))
	s := core.Snapshot{Transactions: []core.Transaction{rec}}

	_, _, err := PlanEdit(s, "r1", Edit{Description: "", Amount: core.Cents(10), Category: "Food", Date: rec.Date}, nil)
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	_, _, err = PlanEdit(s, "r1", Edit{Description: "x", Amount: core.Money{}, Category: "Food", Date: rec.Date}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, _, err = PlanEdit(s, "missing", Edit{}, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPlanEditTransferRebuildsPair(t *testing.T) {
	b, err := PlanTransfer("2024-05", core.Cents(30000), seqIDs("tr"))
	require.NoError(t, err)
	s := apply(t, core.Snapshot{}, b)
	income := s.Transactions[1]

	b, kind, err := PlanEdit(s, income.ID, Edit{Amount: core.Cents(25000)}, seqIDs("tr2"))
	require.NoError(t, err)
	assert.Equal(t, EditTransfer, kind)

	s = apply(t, s, b)
	require.Len(t, s.Transactions, 2)
	for _, tx := range s.Transactions {
		assert.Equal(t, int64(25000), tx.Amount.Cents)
		assert.NotEqual(t, income.TransferID, tx.TransferID)
	}
	assert.Empty(t, CheckIntegrity(s))

	b, _, err = PlanEdit(s, s.Transactions[0].ID, Edit{Amount: core.Money{}}, nil)
	require.NoError(t, err)
	s = apply(t, s, b)
	assert.Empty(t, s.Transactions)
}
