// Package report writes ledger months to xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"organize/internal/core"
	"organize/internal/ledger"
)

const summarySheet = "Summary"

var (
	monthHeaders   = []string{"Date", "Description", "Type", "Category", "Payment", "Card", "Amount"}
	summaryHeaders = []string{"Month", "Income", "Expenses", "Investments", "Balance"}
)

// brlFormat renders a float cell as Brazilian currency.
const brlFormat = `"R$" #,##0.00;-"R$" #,##0.00`

// Export writes a Summary sheet with the totals of every month followed by
// one sheet per month listing its records.
func Export(w io.Writer, snap core.Snapshot, months []core.MonthKey) error {
	f := excelize.NewFile()
	defer f.Close()

	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(brlFormat)})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := writeHeader(f, summarySheet, summaryHeaders, bold); err != nil {
		return err
	}

	cardNames := map[string]string{}
	for _, c := range snap.Cards {
		cardNames[c.ID] = c.Name
	}

	for i, m := range months {
		totals := ledger.MonthlyTotals(snap.Transactions, m)
		row := []any{m.String(), totals.Income.Reais(), totals.Expenses.Reais(), totals.Investments.Reais(), totals.Balance.Reais()}
		if err := setRow(f, summarySheet, i+2, row); err != nil {
			return err
		}

		if _, err := f.NewSheet(m.String()); err != nil {
			return fmt.Errorf("create sheet %s: %w", m, err)
		}
		if err := writeMonth(f, m, ledger.MonthTransactions(snap.Transactions, m), cardNames, bold, money); err != nil {
			return err
		}
	}
	if len(months) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(summaryHeaders), len(months)+1)
		if err := f.SetCellStyle(summarySheet, "B2", last, money); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeMonth(f *excelize.File, month core.MonthKey, txs []core.Transaction, cardNames map[string]string, bold, money int) error {
	sheet := month.String()
	if err := writeHeader(f, sheet, monthHeaders, bold); err != nil {
		return err
	}
	for i, t := range txs {
		row := []any{
			t.Date.String(),
			t.Description,
			string(t.Type),
			t.Category,
			string(t.PaymentMethod),
			cardNames[t.CardID],
			t.Amount.Reais(),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if len(txs) > 0 {
		first, _ := excelize.CoordinatesToCellName(len(monthHeaders), 2)
		last, _ := excelize.CoordinatesToCellName(len(monthHeaders), len(txs)+1)
		if err := f.SetCellStyle(sheet, first, last, money); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "B", "B", 40)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := setRow(f, sheet, 1, row); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func strPtr(s string) *string { return &s }
