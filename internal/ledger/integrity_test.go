package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organize/internal/core"
)

func TestCheckIntegrityFindsBrokenGroups(t *testing.T) {
	card := testCard(10)
	s := snapshotWith(t, card, cardPurchase("TV", 30000, core.NewDate(2024, 1, 5), 3))
	require.Empty(t, CheckIntegrity(s))

	// lose the middle installment
	s.Transactions = append(s.Transactions[:1], s.Transactions[2:]...)
	got := CheckIntegrity(s)
	require.Len(t, got, 1)
	assert.Equal(t, BrokenInstallments, got[0].Kind)
	assert.Equal(t, s.Transactions[0].ParentID, got[0].ID)
}

func TestCheckIntegrityTransferAndCards(t *testing.T) {
	b, err := PlanTransfer("2024-05", core.Cents(100), seqIDs("tr"))
	require.NoError(t, err)
	s := apply(t, core.Snapshot{}, b)
	s.Transactions = s.Transactions[:1]

	orphan := cashRecord("orphan", core.Expense, 100, core.NewDate(2024, 5, 2))
	orphan.PaymentMethod = core.PayCard
	orphan.CardID = "gone"
	s.Transactions = append(s.Transactions, orphan)

	got := CheckIntegrity(s)
	require.Len(t, got, 2)
	assert.Equal(t, BrokenTransfer, got[0].Kind)
	assert.Equal(t, UnknownCardReference, got[1].Kind)
	assert.Equal(t, "orphan", got[1].ID)
}

func TestCheckIntegrityAcceptsAnticipatedGroup(t *testing.T) {
	card := testCard(10)
	s := snapshotWith(t, card, cardPurchase("Sofa", 30000, core.NewDate(2024, 1, 5), 6))
	parent := s.Transactions[0].ParentID

	b, err := PlanAnticipation(s, s.Transactions[2].ID, core.NewDate(2024, 3, 20), seqIDs("ant"))
	require.NoError(t, err)
	s = apply(t, s, b)
	require.Len(t, s.Transactions, 3)
	assert.Empty(t, CheckIntegrity(s))

	// the survivors must still be the leading installments
	var rest []core.Transaction
	for _, tx := range s.Transactions {
		if tx.Installment == nil || tx.Installment.Current != 1 {
			rest = append(rest, tx)
		}
	}
	s.Transactions = rest
	got := CheckIntegrity(s)
	require.Len(t, got, 1)
	assert.Equal(t, BrokenInstallments, got[0].Kind)
	assert.Equal(t, parent, got[0].ID)
	assert.Equal(t, "installment 1 is missing", got[0].Message)
}
