package ledger

import (
	"fmt"
	"strings"

	"organize/internal/core"
)

type EditKind int

const (
	// EditSimple patches one record in place.
	EditSimple EditKind = iota
	// EditStructural deletes the record's group and expands it afresh.
	EditStructural
	// EditTransfer rebuilds both sides of a balance transfer.
	EditTransfer
)

func (k EditKind) String() string {
	switch k {
	case EditSimple:
		return "simple"
	case EditStructural:
		return "structural"
	case EditTransfer:
		return "transfer"
	}
	return "unknown"
}

// Edit carries the form values for an existing record. Amount is the
// purchase total for installment members. Empty PaymentMethod and zero
// Installments keep the record's current values.
type Edit struct {
	Description   string             `json:"description"`
	Amount        core.Money         `json:"amount"`
	Category      string             `json:"category"`
	Date          core.Date          `json:"date"`
	PaymentMethod core.PaymentMethod `json:"paymentMethod,omitempty"`
	CardID        string             `json:"cardId,omitempty"`
	Installments  int                `json:"installments,omitempty"`
}

func (e Edit) resolve(old core.Transaction) Edit {
	if e.PaymentMethod == "" {
		e.PaymentMethod = old.PaymentMethod
		if e.CardID == "" {
			e.CardID = old.CardID
		}
	}
	if e.PaymentMethod == core.PayCash {
		e.CardID = ""
	}
	if e.Installments < 1 {
		e.Installments = old.InstallmentCount()
	}
	return e
}

// ClassifyEdit decides how an edit of old must be carried out. Changing the
// payment method, the card or the installment count is structural.
func ClassifyEdit(old core.Transaction, e Edit) EditKind {
	if old.IsTransfer() {
		return EditTransfer
	}
	e = e.resolve(old)
	if e.PaymentMethod != old.PaymentMethod ||
		e.CardID != old.CardID ||
		e.Installments != old.InstallmentCount() {
		return EditStructural
	}
	return EditSimple
}

// PlanEdit builds the batch that applies e to the record with id.
func PlanEdit(s core.Snapshot, id string, e Edit, ids IDGenerator) (core.Batch, EditKind, error) {
	old, ok := s.Transaction(id)
	if !ok {
		return core.Batch{}, EditSimple, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	kind := ClassifyEdit(old, e)
	e = e.resolve(old)

	var (
		b   core.Batch
		err error
	)
	switch kind {
	case EditTransfer:
		b, err = planTransferEdit(s, old, e, ids)
	case EditStructural:
		b, err = planStructuralEdit(s, old, e, ids)
	default:
		b, err = planSimpleEdit(old, e)
	}
	return b, kind, err
}

func planSimpleEdit(old core.Transaction, e Edit) (core.Batch, error) {
	desc := strings.TrimSpace(e.Description)
	amount := e.Amount
	if old.Installment != nil {
		if err := e.Amount.Validate(); err != nil {
			return core.Batch{}, &core.ValidationError{Field: "amount", Err: err}
		}
		n := old.Installment.Total
		if e.Amount.Cents < int64(n) {
			return core.Batch{}, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		}
		amount = e.Amount.Split(n)[old.Installment.Current-1]
		desc = core.InstallmentDescription(core.BaseDescription(desc), old.Installment.Current, n)
	}
	category := strings.TrimSpace(e.Category)
	p := core.Patch{
		Description: &desc,
		Amount:      &amount,
		Date:        &e.Date,
		Category:    &category,
	}
	if err := p.ApplyTo(old).Validate(); err != nil {
		return core.Batch{}, err
	}
	var b core.Batch
	b.Update(old.ID, p)
	return b, nil
}

func planStructuralEdit(s core.Snapshot, old core.Transaction, e Edit, ids IDGenerator) (core.Batch, error) {
	p := Purchase{
		Description:   core.BaseDescription(e.Description),
		Total:         e.Amount,
		Type:          old.Type,
		Category:      e.Category,
		Date:          e.Date,
		PaymentMethod: e.PaymentMethod,
		CardID:        e.CardID,
		Installments:  e.Installments,
		IsAdjustment:  old.IsAdjustment,
	}
	fresh, err := Expand(p, cardFor(s, p.PaymentMethod, p.CardID), ids)
	if err != nil {
		return core.Batch{}, err
	}
	var b core.Batch
	for _, o := range GroupOf(s.Transactions, old) {
		b.Delete(o.ID)
	}
	for _, t := range fresh {
		b.Put(t)
	}
	return b, nil
}

func planTransferEdit(s core.Snapshot, old core.Transaction, e Edit, ids IDGenerator) (core.Batch, error) {
	if e.Amount.Cents < 0 {
		return core.Batch{}, &core.ValidationError{Field: "amount", Err: core.ErrNegativeAmount}
	}
	pair := GroupOf(s.Transactions, old)
	source := old.Month
	for _, t := range pair {
		if t.Type == core.Expense {
			source = t.Month
		}
	}
	var b core.Batch
	for _, t := range pair {
		b.Delete(t.ID)
	}
	if e.Amount.IsZero() {
		return b, nil
	}
	fresh, err := PlanTransfer(source, e.Amount, ids)
	if err != nil {
		return core.Batch{}, err
	}
	b.Ops = append(b.Ops, fresh.Ops...)
	return b, nil
}
