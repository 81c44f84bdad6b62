package ledger

import (
	"strings"

	"organize/internal/core"
)

// Purchase is one user entry before expansion into ledger records.
// Total is the whole purchase amount; installments split it.
type Purchase struct {
	ID            string               `json:"id,omitempty"`
	Description   string               `json:"description"`
	Total         core.Money           `json:"amount"`
	Type          core.TransactionType `json:"type"`
	Category      string               `json:"category"`
	Date          core.Date            `json:"date"`
	PaymentMethod core.PaymentMethod   `json:"paymentMethod"`
	CardID        string               `json:"cardId,omitempty"`
	Installments  int                  `json:"installments,omitempty"`
	IsAdjustment  bool                 `json:"isAdjustment,omitempty"`
}

func (p Purchase) count() int {
	if p.Installments < 1 {
		return 1
	}
	return p.Installments
}

// Validate checks the entry against the card it references, if any.
func (p Purchase) Validate(card *core.Card) error {
	if err := p.Date.Validate(); err != nil {
		return &core.ValidationError{Field: "date", Err: err}
	}
	if strings.TrimSpace(p.Description) == "" {
		return &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
	}
	if err := p.Total.Validate(); err != nil {
		return &core.ValidationError{Field: "amount", Err: err}
	}
	if !p.Type.Valid() {
		return &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
	}
	if strings.TrimSpace(p.Category) == "" {
		return &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	switch p.PaymentMethod {
	case core.PayCard:
		if p.CardID == "" {
			return &core.ValidationError{Field: "cardId", Err: core.ErrMissingCard}
		}
		if card == nil || card.ID != p.CardID {
			return &core.ValidationError{Field: "cardId", Err: core.ErrUnknownCard}
		}
	case core.PayCash:
		if p.CardID != "" {
			return &core.ValidationError{Field: "cardId", Err: core.ErrUnexpectedCard}
		}
	default:
		return &core.ValidationError{Field: "paymentMethod", Err: core.ErrInvalidPayment}
	}
	n := p.count()
	if n > core.MaxInstallments {
		return &core.ValidationError{Field: "installments", Err: core.ErrInvalidInstallments}
	}
	if n > 1 {
		if p.PaymentMethod != core.PayCard || p.Type != core.Expense {
			return &core.ValidationError{Field: "installments", Err: core.ErrInstallmentsNotCard}
		}
		// every share must be at least one cent
		if p.Total.Cents < int64(n) {
			return &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		}
	}
	return nil
}

// BillingShift is 1 when a card purchase made on or after the closing day
// falls into the next invoice, 0 otherwise.
func BillingShift(method core.PaymentMethod, card *core.Card, purchase core.Date) int {
	if method != core.PayCard || card == nil {
		return 0
	}
	if purchase.Day() >= card.ClosingDay {
		return 1
	}
	return 0
}

// Expand turns a purchase into its ledger records. A purchase with N > 1
// installments yields N records sharing a fresh parent id, the i-th one
// dated i months after the purchase (plus the billing shift) and carrying
// the " (i/N)" suffix. Shares sum exactly to the total; the remainder cents
// go to the last installment.
func Expand(p Purchase, card *core.Card, ids IDGenerator) ([]core.Transaction, error) {
	if err := p.Validate(card); err != nil {
		return nil, err
	}
	ids = orDefault(ids)

	n := p.count()
	shift := BillingShift(p.PaymentMethod, card, p.Date)
	base := strings.TrimSpace(p.Description)

	var parentID string
	if n > 1 {
		parentID = ids()
	}
	shares := p.Total.Split(n)

	out := make([]core.Transaction, 0, n)
	for i := 0; i < n; i++ {
		date := p.Date.AddMonths(i + shift)
		t := core.Transaction{
			Description:   base,
			Amount:        shares[i],
			Type:          p.Type,
			Category:      strings.TrimSpace(p.Category),
			Date:          date,
			Month:         core.MonthKeyOf(date),
			PaymentMethod: p.PaymentMethod,
			CardID:        p.CardID,
			IsAdjustment:  p.IsAdjustment,
		}
		if i == 0 && p.ID != "" {
			t.ID = p.ID
		} else {
			t.ID = ids()
		}
		if n > 1 {
			t.Description = core.InstallmentDescription(base, i+1, n)
			t.Installment = &core.Installment{Current: i + 1, Total: n}
			t.ParentID = parentID
		}
		out = append(out, t)
	}
	return out, nil
}

// ExpandBatch is Expand returning the records as one batch of puts.
func ExpandBatch(p Purchase, card *core.Card, ids IDGenerator) (core.Batch, error) {
	txs, err := Expand(p, card, ids)
	if err != nil {
		return core.Batch{}, err
	}
	var b core.Batch
	for _, t := range txs {
		b.Put(t)
	}
	return b, nil
}

// PlanPurchase expands p against the cards known to s.
func PlanPurchase(s core.Snapshot, p Purchase, ids IDGenerator) (core.Batch, error) {
	return ExpandBatch(p, cardFor(s, p.PaymentMethod, p.CardID), ids)
}

func cardFor(s core.Snapshot, method core.PaymentMethod, id string) *core.Card {
	if method != core.PayCard || id == "" {
		return nil
	}
	c, ok := s.Card(id)
	if !ok {
		return nil
	}
	return &c
}
