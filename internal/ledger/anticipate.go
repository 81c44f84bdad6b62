package ledger

import (
	"errors"
	"fmt"

	"organize/internal/core"
)

const anticipationSuffix = " (Anticipation)"

var ErrNotInstallment = errors.New("record is not part of an installment purchase")

// PlanAnticipation settles the remaining installments of the record with
// id today: members k..N are replaced by one expense for their sum, dated
// today and filed in today's month. Members before k are untouched.
func PlanAnticipation(s core.Snapshot, id string, today core.Date, ids IDGenerator) (core.Batch, error) {
	t, ok := s.Transaction(id)
	if !ok {
		return core.Batch{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if !t.IsInstallment() {
		return core.Batch{}, ErrNotInstallment
	}
	ids = orDefault(ids)

	var (
		b   core.Batch
		sum core.Money
	)
	for _, o := range GroupOf(s.Transactions, t) {
		if o.Installment == nil || o.Installment.Current < t.Installment.Current {
			continue
		}
		sum = sum.Add(o.Amount)
		b.Delete(o.ID)
	}

	b.Put(core.Transaction{
		ID:            ids(),
		Description:   core.BaseDescription(t.Description) + anticipationSuffix,
		Amount:        sum,
		Type:          core.Expense,
		Category:      t.Category,
		Date:          today,
		Month:         core.MonthKeyOf(today),
		PaymentMethod: t.PaymentMethod,
		CardID:        t.CardID,
		// Links the settled group so its surviving members stay consistent.
		AnticipationOf: t.ParentID,
	})
	return b, nil
}
