package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income     TransactionType = "income"
	Expense    TransactionType = "expense"
	Investment TransactionType = "investment"
)

const (
	PayCash PaymentMethod = "cash"
	PayCard PaymentMethod = "card"
)

// MaxInstallments bounds how many records a single purchase may expand into.
const MaxInstallments = 48

const maxDescriptionLen = 200

type (
	TransactionType string

	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Installment marks a record as member Current of a Total-part purchase.
	Installment struct {
		Current int `json:"current"`
		Total   int `json:"total"`
	}

	// Transaction is one stored ledger record.
	Transaction struct {
		ID            string          `json:"id"`
		Description   string          `json:"description"`
		Amount        Money           `json:"amount"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		Date          Date            `json:"date"`
		Month         MonthKey        `json:"month"`
		PaymentMethod PaymentMethod   `json:"paymentMethod"`
		CardID        string          `json:"cardId,omitempty"`
		Installment   *Installment    `json:"installment,omitempty"`
		ParentID      string          `json:"parentId,omitempty"`
		TransferID    string          `json:"transferId,omitempty"`
		IsAdjustment  bool            `json:"isAdjustment,omitempty"`
		// AnticipationOf is the parent id of the group this record settled.
		AnticipationOf string `json:"anticipationOf,omitempty"`
	}

	Card struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Holder     string `json:"holder"`
		Limit      Money  `json:"limit"`
		ClosingDay int    `json:"closingDay"`
		DueDay     int    `json:"dueDay"`
		Color      string `json:"color"`
	}

	Goal struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	UserSettings struct {
		MonthlyIncome        Money            `json:"monthlyIncome"`
		Goals                []Goal           `json:"goals"`
		CategoryLimits       map[string]Money `json:"categoryLimits"`
		ExpenseCategories    []string         `json:"expenseCategories"`
		IncomeCategories     []string         `json:"incomeCategories"`
		InvestmentCategories []string         `json:"investmentCategories"`
		DarkMode             bool             `json:"darkMode"`
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidPayment      = errors.New("invalid payment method")
	ErrMissingCard         = errors.New("no card selected for card payment")
	ErrUnexpectedCard      = errors.New("card set on a cash payment")
	ErrInvalidInstallments = errors.New("invalid installment count")
	ErrInstallmentsNotCard = errors.New("installments require an expense paid by card")
	ErrMissingParent       = errors.New("installment record without parent id")
	ErrMonthMismatch       = errors.New("month does not match date")
	ErrEmptyName           = errors.New("empty name")
	ErrNotFound            = errors.New("not found")
	ErrCardInUse           = errors.New("card is referenced by transactions")
	ErrUnknownCard         = errors.New("unknown card")
	ErrInvalidMonthKey     = errors.New("invalid month key")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrDuplicateCategory   = errors.New("duplicate category")
)

// ValidationError ties a rejected field to the reason it was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Investment:
		return true
	}
	return false
}

func (p PaymentMethod) Valid() bool {
	return p == PayCash || p == PayCard
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	// Check basic ranges
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for backward compatibility with optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// AddMonths moves the date n calendar months, clamping the day to the
// last day of the target month (Jan 31 + 1 month is Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), time.Month(d.Month())+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// Validate checks the stored shape of a ledger record.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if err := validateDescription(t.Description); err != nil {
		return invalid("description", err)
	}
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !t.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if !t.PaymentMethod.Valid() {
		return invalid("paymentMethod", ErrInvalidPayment)
	}
	if t.PaymentMethod == PayCard && t.CardID == "" {
		return invalid("cardId", ErrMissingCard)
	}
	if t.PaymentMethod == PayCash && t.CardID != "" {
		return invalid("cardId", ErrUnexpectedCard)
	}
	if t.Month != MonthKeyOf(t.Date) {
		return invalid("month", ErrMonthMismatch)
	}
	if in := t.Installment; in != nil {
		if in.Total < 1 || in.Current < 1 || in.Current > in.Total {
			return invalid("installment", ErrInvalidInstallments)
		}
		if t.ParentID == "" {
			return invalid("parentId", ErrMissingParent)
		}
	}
	return nil
}

// IsInstallment reports whether the record belongs to an installment group.
func (t Transaction) IsInstallment() bool {
	return t.Installment != nil && t.ParentID != ""
}

// IsTransfer reports whether the record is one side of a balance transfer.
func (t Transaction) IsTransfer() bool {
	return t.TransferID != ""
}

// InstallmentCount is the group size, 1 for single records.
func (t Transaction) InstallmentCount() int {
	if t.Installment == nil {
		return 1
	}
	return t.Installment.Total
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return invalid("id", ErrEmptyName)
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if c.Limit.Cents < 0 {
		return invalid("limit", ErrNegativeAmount)
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return invalid("closingDay", ErrInvalidDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return invalid("dueDay", ErrInvalidDay)
	}
	return nil
}

func (s UserSettings) Validate() error {
	if s.MonthlyIncome.Cents < 0 {
		return invalid("monthlyIncome", ErrNegativeAmount)
	}
	for _, g := range s.Goals {
		if strings.TrimSpace(g.Name) == "" {
			return invalid("goals", ErrEmptyName)
		}
		if g.Amount.Cents < 0 {
			return invalid("goals", ErrNegativeAmount)
		}
	}
	for cat, limit := range s.CategoryLimits {
		if limit.Cents < 0 {
			return invalid("categoryLimits."+cat, ErrNegativeAmount)
		}
	}
	lists := map[string][]string{
		"expenseCategories":    s.ExpenseCategories,
		"incomeCategories":     s.IncomeCategories,
		"investmentCategories": s.InvestmentCategories,
	}
	for field, cats := range lists {
		seen := map[string]struct{}{}
		for _, c := range cats {
			c = strings.TrimSpace(c)
			if c == "" {
				return invalid(field, ErrEmptyCategory)
			}
			if _, dup := seen[c]; dup {
				return invalid(field, ErrDuplicateCategory)
			}
			seen[c] = struct{}{}
		}
	}
	return nil
}

// Categories returns the user's category list for a transaction type.
func (s UserSettings) Categories(t TransactionType) []string {
	switch t {
	case Income:
		return s.IncomeCategories
	case Investment:
		return s.InvestmentCategories
	default:
		return s.ExpenseCategories
	}
}

// CategoryLimit returns the configured ceiling for a category, if any.
func (s UserSettings) CategoryLimit(category string) (Money, bool) {
	limit, ok := s.CategoryLimits[category]
	if !ok || limit.Cents <= 0 {
		return Money{}, false
	}
	return limit, true
}
