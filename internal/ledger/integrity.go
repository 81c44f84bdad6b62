package ledger

import (
	"fmt"
	"sort"

	"organize/internal/core"
)

type ViolationKind string

const (
	InvalidRecord        ViolationKind = "invalid_record"
	BrokenInstallments   ViolationKind = "broken_installments"
	BrokenTransfer       ViolationKind = "broken_transfer"
	UnknownCardReference ViolationKind = "unknown_card"
)

type Violation struct {
	Kind    ViolationKind `json:"kind"`
	ID      string        `json:"id"`
	Message string        `json:"message"`
}

// CheckIntegrity reports every record or group in s that breaks the ledger
// invariants. An empty result means the snapshot is consistent.
func CheckIntegrity(s core.Snapshot) []Violation {
	var out []Violation
	groups := map[string][]core.Transaction{}
	pairs := map[string][]core.Transaction{}
	settled := map[string]bool{}

	for _, t := range s.Transactions {
		if err := t.Validate(); err != nil {
			out = append(out, Violation{Kind: InvalidRecord, ID: t.ID, Message: err.Error()})
		}
		if t.CardID != "" {
			if _, ok := s.Card(t.CardID); !ok {
				out = append(out, Violation{
					Kind:    UnknownCardReference,
					ID:      t.ID,
					Message: fmt.Sprintf("card %s does not exist", t.CardID),
				})
			}
		}
		if t.ParentID != "" {
			groups[t.ParentID] = append(groups[t.ParentID], t)
		}
		if t.TransferID != "" {
			pairs[t.TransferID] = append(pairs[t.TransferID], t)
		}
		if t.AnticipationOf != "" {
			settled[t.AnticipationOf] = true
		}
	}

	for parent, members := range groups {
		if msg := installmentProblem(members, settled[parent]); msg != "" {
			out = append(out, Violation{Kind: BrokenInstallments, ID: parent, Message: msg})
		}
	}
	for id, pair := range pairs {
		if msg := transferProblem(pair); msg != "" {
			out = append(out, Violation{Kind: BrokenTransfer, ID: id, Message: msg})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// installmentProblem checks one group. A settled group keeps only its first
// installments; the rest were replaced by an anticipation record.
func installmentProblem(members []core.Transaction, settled bool) string {
	total := 0
	seen := map[int]bool{}
	for _, m := range members {
		if m.Installment == nil {
			return fmt.Sprintf("record %s has a parent but no installment", m.ID)
		}
		if total == 0 {
			total = m.Installment.Total
		}
		if m.Installment.Total != total {
			return "members disagree on the installment count"
		}
		if seen[m.Installment.Current] {
			return fmt.Sprintf("installment %d appears twice", m.Installment.Current)
		}
		seen[m.Installment.Current] = true
	}
	want := total
	if settled {
		if len(members) >= total {
			return "anticipated group still has every installment"
		}
		want = len(members)
	} else if len(members) != total {
		return fmt.Sprintf("has %d of %d installments", len(members), total)
	}
	for i := 1; i <= want; i++ {
		if !seen[i] {
			return fmt.Sprintf("installment %d is missing", i)
		}
	}
	return ""
}

func transferProblem(pair []core.Transaction) string {
	if len(pair) != 2 {
		return fmt.Sprintf("has %d records, want 2", len(pair))
	}
	out, in := pair[0], pair[1]
	if out.Type == core.Income {
		out, in = in, out
	}
	if out.Type != core.Expense || in.Type != core.Income {
		return "pair must be one expense and one income"
	}
	if out.Amount != in.Amount {
		return "amounts differ"
	}
	if in.Month != out.Month.Add(1) {
		return fmt.Sprintf("income filed in %s, want %s", in.Month, out.Month.Add(1))
	}
	return ""
}
