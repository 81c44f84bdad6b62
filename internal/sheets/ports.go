package sheets

import (
	"context"

	"organize/internal/core"
)

// MonthExporter mirrors one month of a ledger into an external sheet.
// Exporting the same month twice replaces the earlier rows.
type MonthExporter interface {
	ExportMonth(ctx context.Context, month core.MonthKey, txs []core.Transaction, totals core.MonthTotals) error
}
