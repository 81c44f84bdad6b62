package ledger

import (
	"errors"
	"fmt"

	"organize/internal/core"
)

const (
	TransferCategory        = "Transfer"
	PreviousBalanceCategory = "Previous Balance"
)

var ErrNothingToTransfer = errors.New("no positive balance to transfer")

// PlanTransfer carries balance from month into the next one: an expense on
// the last day of month and an income on the first day of the next, linked
// by a shared transfer id.
func PlanTransfer(month core.MonthKey, balance core.Money, ids IDGenerator) (core.Batch, error) {
	if _, err := core.ParseMonthKey(month.String()); err != nil {
		return core.Batch{}, err
	}
	if balance.Cents <= 0 {
		return core.Batch{}, ErrNothingToTransfer
	}
	ids = orDefault(ids)

	next := month.Add(1)
	transferID := ids()
	out := month.Last()
	in := next.First()

	var b core.Batch
	b.Put(core.Transaction{
		ID:            ids(),
		Description:   fmt.Sprintf("Balance transferred to %s", next),
		Amount:        balance,
		Type:          core.Expense,
		Category:      TransferCategory,
		Date:          out,
		Month:         month,
		PaymentMethod: core.PayCash,
		TransferID:    transferID,
	})
	b.Put(core.Transaction{
		ID:            ids(),
		Description:   fmt.Sprintf("Balance carried from %s", month),
		Amount:        balance,
		Type:          core.Income,
		Category:      PreviousBalanceCategory,
		Date:          in,
		Month:         next,
		PaymentMethod: core.PayCash,
		TransferID:    transferID,
	})
	return b, nil
}
