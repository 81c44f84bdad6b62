//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"organize/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportMonth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" &&
		os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), "Integration")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	month := core.MonthKey("2099-01")
	d := core.NewDate(2099, 1, 15)
	txs := []core.Transaction{{
		ID: "it-1", Description: "Integration Test", Amount: core.Cents(1234),
		Type: core.Expense, Category: "Food", Date: d, Month: month, PaymentMethod: core.PayCash,
	}}
	totals := core.MonthTotals{Month: month, Expenses: core.Cents(1234), Balance: core.Cents(-1234)}

	if err := client.ExportMonth(ctx, month, txs, totals); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}

	title := monthSheetName("Integration", month)
	resp, err := client.svc.Spreadsheets.Values.Get(client.spreadsheetID, title+"!A1:I10").Context(ctx).Do()
	if err != nil {
		t.Fatalf("read back %s: %v", title, err)
	}
	if len(resp.Values) < 2 {
		t.Fatalf("expected header and one record, got %d rows", len(resp.Values))
	}
	if got := resp.Values[1][1]; got != "Integration Test" {
		t.Errorf("description cell = %v", got)
	}

	// A second export of the same month replaces the tab contents.
	if err := client.ExportMonth(ctx, month, nil, core.MonthTotals{Month: month}); err != nil {
		t.Fatalf("second ExportMonth: %v", err)
	}
	resp, err = client.svc.Spreadsheets.Values.Get(client.spreadsheetID, title+"!A1:I10").Context(ctx).Do()
	if err != nil {
		t.Fatalf("read back %s: %v", title, err)
	}
	for _, row := range resp.Values {
		if len(row) > 1 && row[1] == "Integration Test" {
			t.Error("stale record survived re-export")
		}
	}
}
