package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"organize/internal/core"
)

func seqIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func testCard(closingDay int) core.Card {
	return core.Card{
		ID:         "card-1",
		Name:       "Blue",
		Holder:     "Ana",
		Limit:      core.Cents(500000),
		ClosingDay: closingDay,
		DueDay:     17,
	}
}

func cardPurchase(desc string, total int64, date core.Date, n int) Purchase {
	return Purchase{
		Description:   desc,
		Total:         core.Cents(total),
		Type:          core.Expense,
		Category:      "Shopping",
		Date:          date,
		PaymentMethod: core.PayCard,
		CardID:        "card-1",
		Installments:  n,
	}
}

func cashRecord(id string, typ core.TransactionType, cents int64, date core.Date) core.Transaction {
	return core.Transaction{
		ID:            id,
		Description:   id,
		Amount:        core.Cents(cents),
		Type:          typ,
		Category:      "Food",
		Date:          date,
		Month:         core.MonthKeyOf(date),
		PaymentMethod: core.PayCash,
	}
}

// snapshotWith expands p against a one-card snapshot and returns the result.
func snapshotWith(t *testing.T, card core.Card, ps ...Purchase) core.Snapshot {
	t.Helper()
	s := core.Snapshot{Cards: []core.Card{card}, Settings: core.DefaultSettings()}
	ids := seqIDs("seed")
	for _, p := range ps {
		b, err := ExpandBatch(p, &card, ids)
		require.NoError(t, err)
		s.Transactions, err = b.Apply(s.Transactions)
		require.NoError(t, err)
	}
	return s
}

func apply(t *testing.T, s core.Snapshot, b core.Batch) core.Snapshot {
	t.Helper()
	txs, err := b.Apply(s.Transactions)
	require.NoError(t, err)
	s.Transactions = txs
	s.Revision++
	return s
}
