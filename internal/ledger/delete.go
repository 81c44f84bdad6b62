package ledger

import (
	"fmt"

	"organize/internal/core"
)

// GroupOf returns the records that live and die with t: its installment
// siblings, its transfer counterpart, or t alone. t itself is always included.
func GroupOf(txs []core.Transaction, t core.Transaction) []core.Transaction {
	var group []core.Transaction
	switch {
	case t.ParentID != "":
		for _, o := range txs {
			if o.ParentID == t.ParentID {
				group = append(group, o)
			}
		}
	case t.TransferID != "":
		for _, o := range txs {
			if o.TransferID == t.TransferID {
				group = append(group, o)
			}
		}
	}
	if len(group) == 0 {
		return []core.Transaction{t}
	}
	return group
}

// PlanDelete deletes the whole relationship group of the record with id.
func PlanDelete(s core.Snapshot, id string) (core.Batch, error) {
	t, ok := s.Transaction(id)
	if !ok {
		return core.Batch{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	var b core.Batch
	for _, o := range GroupOf(s.Transactions, t) {
		b.Delete(o.ID)
	}
	return b, nil
}
