package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organize/internal/core"
)

const sample = `
[settings]
monthly_income = "5.000,00"
dark_mode = true
expense_categories = ["Food", "Housing", "Pets"]

[[cards]]
id = "nubank"
name = "Purple"
holder = "Ana"
limit = "R$ 4.500,00"
closing_day = 3
due_day = 10
color = "#8A05BE"

[[goals]]
name = "Emergency fund"
amount = "1000"

[[limits]]
category = "Food"
amount = "800,00"

[[adjustments]]
description = "Opening balance"
amount = "1.200,50"
category = "Previous Balance"
date = "2024-01-01"
`

func TestDecode(t *testing.T) {
	snap, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, int64(500000), snap.Settings.MonthlyIncome.Cents)
	assert.True(t, snap.Settings.DarkMode)
	assert.Equal(t, []string{"Food", "Housing", "Pets"}, snap.Settings.ExpenseCategories)
	assert.Equal(t, core.DefaultSettings().IncomeCategories, snap.Settings.IncomeCategories)

	require.Len(t, snap.Cards, 1)
	assert.Equal(t, "nubank", snap.Cards[0].ID)
	assert.Equal(t, int64(450000), snap.Cards[0].Limit.Cents)

	require.Len(t, snap.Settings.Goals, 1)
	assert.Equal(t, "goal-1", snap.Settings.Goals[0].ID)
	limit, ok := snap.Settings.CategoryLimit("Food")
	require.True(t, ok)
	assert.Equal(t, int64(80000), limit.Cents)

	require.Len(t, snap.Transactions, 1)
	opening := snap.Transactions[0]
	assert.Equal(t, "seed-adjustment-1", opening.ID)
	assert.True(t, opening.IsAdjustment)
	assert.Equal(t, core.Income, opening.Type)
	assert.Equal(t, int64(120050), opening.Amount.Cents)
	assert.Equal(t, core.MonthKey("2024-01"), opening.Month)
}

func TestDecode_DefaultsWhenSectionsMissing(t *testing.T) {
	snap, err := Decode(strings.NewReader("[settings]\n"))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCards(), snap.Cards)
	assert.Empty(t, snap.Transactions)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "[settings]\nmonthly_incom = \"1\"\n", "unknown keys"},
		{"bad card", "[[cards]]\nname = \"X\"\nlimit = \"10\"\nclosing_day = 0\ndue_day = 5\n", "cards[0]"},
		{"bad amount", "[[limits]]\ncategory = \"Food\"\namount = \"-5\"\n", "limits[0].amount"},
		{"bad date", "[[adjustments]]\ndescription = \"x\"\namount = \"1\"\ncategory = \"c\"\ndate = \"01/02/2024\"\n", "adjustments[0].date"},
		{"syntax", "[settings\n", "decode seed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	snap, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, snap.Cards, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
