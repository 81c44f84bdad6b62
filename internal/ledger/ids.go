// Package ledger turns user entries into ledger records and derives
// totals, invoices and reports from a record set.
//
// Everything here is pure: planners return a core.Batch for the store to
// apply, and aggregations read a snapshot without touching it.
package ledger

import "github.com/google/uuid"

// IDGenerator returns a fresh unique identifier on every call.
type IDGenerator func() string

// NewID is the default IDGenerator.
func NewID() string {
	return uuid.NewString()
}

func orDefault(ids IDGenerator) IDGenerator {
	if ids == nil {
		return NewID
	}
	return ids
}
