package core

import (
	"fmt"
	"sort"
)

type OpKind int

const (
	OpPut OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Patch changes the editable fields of one record in place.
// Nil fields are left untouched; Month always follows Date.
type Patch struct {
	Description *string `json:"description,omitempty"`
	Amount      *Money  `json:"amount,omitempty"`
	Date        *Date   `json:"date,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// ApplyTo returns t with the patch applied.
func (p Patch) ApplyTo(t Transaction) Transaction {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = *p.Date
		t.Month = MonthKeyOf(*p.Date)
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	return t
}

type Op struct {
	Kind        OpKind
	ID          string
	Transaction Transaction
	Patch       Patch
}

// Batch is a set of writes that must be applied all together or not at all.
type Batch struct {
	Ops []Op
}

func (b *Batch) Put(t Transaction) {
	b.Ops = append(b.Ops, Op{Kind: OpPut, ID: t.ID, Transaction: t})
}

func (b *Batch) Update(id string, p Patch) {
	b.Ops = append(b.Ops, Op{Kind: OpUpdate, ID: id, Patch: p})
}

func (b *Batch) Delete(id string) {
	b.Ops = append(b.Ops, Op{Kind: OpDelete, ID: id})
}

func (b Batch) Empty() bool {
	return len(b.Ops) == 0
}

// Apply runs the batch against txs and returns the resulting record set.
// txs is never modified; on error nothing is applied.
func (b Batch) Apply(txs []Transaction) ([]Transaction, error) {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	index := make(map[string]int, len(out))
	for i, t := range out {
		index[t.ID] = i
	}
	deleted := map[string]bool{}

	for _, op := range b.Ops {
		switch op.Kind {
		case OpPut:
			if err := op.Transaction.Validate(); err != nil {
				return nil, err
			}
			if i, ok := index[op.ID]; ok {
				out[i] = op.Transaction
				delete(deleted, op.ID)
				continue
			}
			index[op.ID] = len(out)
			out = append(out, op.Transaction)
		case OpUpdate:
			i, ok := index[op.ID]
			if !ok || deleted[op.ID] {
				return nil, fmt.Errorf("update %s: %w", op.ID, ErrNotFound)
			}
			next := op.Patch.ApplyTo(out[i])
			if err := next.Validate(); err != nil {
				return nil, err
			}
			out[i] = next
		case OpDelete:
			if _, ok := index[op.ID]; !ok || deleted[op.ID] {
				return nil, fmt.Errorf("delete %s: %w", op.ID, ErrNotFound)
			}
			deleted[op.ID] = true
		default:
			return nil, fmt.Errorf("unknown batch op %v", op.Kind)
		}
	}

	if len(deleted) == 0 {
		return out, nil
	}
	kept := out[:0:0]
	for _, t := range out {
		if !deleted[t.ID] {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

// Snapshot is the full state of one user's ledger at a revision.
type Snapshot struct {
	Revision     int64         `json:"revision"`
	Transactions []Transaction `json:"transactions"`
	Cards        []Card        `json:"cards"`
	Settings     UserSettings  `json:"settings"`
}

func (s Snapshot) Transaction(id string) (Transaction, bool) {
	for _, t := range s.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

func (s Snapshot) Card(id string) (Card, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// SortTransactions orders records by date, then by description, then by id.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		return a.ID < b.ID
	})
}

// Clone returns a deep copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Revision: s.Revision, Settings: s.Settings.Clone()}
	out.Transactions = make([]Transaction, len(s.Transactions))
	for i, t := range s.Transactions {
		if t.Installment != nil {
			in := *t.Installment
			t.Installment = &in
		}
		out.Transactions[i] = t
	}
	out.Cards = append([]Card(nil), s.Cards...)
	return out
}
