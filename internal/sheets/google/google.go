package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"organize/internal/core"
	ports "organize/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultTitleCacheTTL = 5 * time.Minute

// valueInput stores cells as given, so a description starting with "=" stays text.
const valueInput = "RAW"

var header = []any{"Date", "Description", "Category", "Type", "Payment", "Card", "Installment", "Amount", "Adjustment"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	// Known tab titles, refreshed once the cache expires
	mu                 sync.Mutex
	titles             map[string]bool
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ports.MonthExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Ledger"), the base of every month tab.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	return New(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"))
}

func New(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Ledger"
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetBase:          sheetBase,
		cacheValidDuration: defaultTitleCacheTTL,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ExportMonth rewrites the month's tab with one row per record and a
// totals block underneath.
func (c *Client) ExportMonth(ctx context.Context, month core.MonthKey, txs []core.Transaction, totals core.MonthTotals) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	title := monthSheetName(c.sheetBase, month)
	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, title+"!A:I", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", title, err)
	}

	vr := &gsheet.ValueRange{Values: buildRows(txs, totals)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, title+"!A1", vr).
		ValueInputOption(valueInput).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Exported month to Google Sheets",
		"sheet", title,
		"rows", len(txs))
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	known := c.titles[title] && time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	titles := map[string]bool{}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}

	if !titles[title] {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", title, err)
		}
		titles[title] = true
	}

	c.mu.Lock()
	c.titles = titles
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return nil
}

// InvalidateTitleCache forces the next export to re-read the tab list.
func (c *Client) InvalidateTitleCache() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

// monthSheetName returns "<year> <base> MM" with the year of month.
func monthSheetName(base string, month core.MonthKey) string {
	return fmt.Sprintf("%s %02d", yearPrefixedName(base, month.Year()), month.Month())
}

// yearPrefixedName returns "<year> <base>". A 4-digit year already leading
// base is replaced, so every year gets its own tabs.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			base = strings.TrimSpace(base[5:])
		}
	}
	if base == "" {
		return strconv.Itoa(year)
	}
	return fmt.Sprintf("%d %s", year, base)
}

func buildRows(txs []core.Transaction, totals core.MonthTotals) [][]any {
	rows := make([][]any, 0, len(txs)+6)
	rows = append(rows, header)
	for _, t := range txs {
		installment := ""
		if t.Installment != nil {
			installment = fmt.Sprintf("%d/%d", t.Installment.Current, t.Installment.Total)
		}
		adjustment := ""
		if t.IsAdjustment {
			adjustment = "yes"
		}
		rows = append(rows, []any{
			t.Date.String(),
			t.Description,
			t.Category,
			string(t.Type),
			string(t.PaymentMethod),
			t.CardID,
			installment,
			t.Amount.Reais(),
			adjustment,
		})
	}
	rows = append(rows,
		[]any{},
		[]any{"Income", totals.Income.Reais()},
		[]any{"Expenses", totals.Expenses.Reais()},
		[]any{"Investments", totals.Investments.Reais()},
		[]any{"Balance", totals.Balance.Reais()},
	)
	return rows
}
