package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"organize/internal/core"
)

func record(id, desc string, typ core.TransactionType, cents int64, date core.Date) core.Transaction {
	return core.Transaction{
		ID: id, Description: desc, Amount: core.Cents(cents), Type: typ, Category: "Food",
		Date: date, Month: core.MonthKeyOf(date), PaymentMethod: core.PayCash,
	}
}

func TestExport(t *testing.T) {
	snap := core.Snapshot{
		Cards: core.DefaultCards(),
		Transactions: []core.Transaction{
			record("b", "Market", core.Expense, 12345, core.NewDate(2024, 3, 20)),
			record("a", "Salary", core.Income, 500000, core.NewDate(2024, 3, 1)),
			record("c", "Bakery", core.Expense, 800, core.NewDate(2024, 4, 2)),
		},
	}
	card := record("d", "Shoes", core.Expense, 20000, core.NewDate(2024, 3, 10))
	card.PaymentMethod = core.PayCard
	card.CardID = "card-2"
	snap.Transactions = append(snap.Transactions, card)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, snap, []core.MonthKey{"2024-03", "2024-04"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "2024-03", "2024-04"}, f.GetSheetList())

	rows, err := f.GetRows("2024-03")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, monthHeaders, rows[0])
	assert.Equal(t, "Salary", rows[1][1], "records are ordered by date")
	assert.Equal(t, "Second Card", rows[2][5])

	raw, err := f.GetCellValue("Summary", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "323.45", raw)

	balance, err := f.GetCellValue("Summary", "E3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "-8", balance)
}

func TestExport_NoMonths(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, core.Snapshot{}, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary"}, f.GetSheetList())
}
