package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MonthKey is the YYYY-MM key every record is filed under.
type MonthKey string

var (
	installmentSuffix = regexp.MustCompile(`\s*\(\d+/\d+\)$`)
	anticipatedSuffix = regexp.MustCompile(`\s*\(Anticipation\)$`)
)

// MonthKeyOf returns the key of the month containing d.
func MonthKeyOf(d Date) MonthKey {
	if d.IsZero() {
		return ""
	}
	return MonthKey(d.Format("2006-01"))
}

// NewMonthKey builds a key from a year and a 1-based month.
func NewMonthKey(year, month int) MonthKey {
	return MonthKeyOf(NewDate(year, month, 1))
}

// ParseMonthKey validates a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey(t.Format("2006-01")), nil
}

func (k MonthKey) String() string {
	return string(k)
}

// First returns the first day of the month.
func (k MonthKey) First() Date {
	t, err := time.Parse("2006-01", string(k))
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

// Last returns the last day of the month.
func (k MonthKey) Last() Date {
	first := k.First()
	if first.IsZero() {
		return first
	}
	return Date{Time: first.AddDate(0, 1, -1)}
}

// Add moves the key n months forward (or back when n < 0).
func (k MonthKey) Add(n int) MonthKey {
	first := k.First()
	if first.IsZero() {
		return k
	}
	return MonthKeyOf(first.AddMonths(n))
}

// MonthsUntil is the number of months from k to other, negative when other
// comes first.
func (k MonthKey) MonthsUntil(other MonthKey) int {
	return (other.Year()-k.Year())*12 + other.Month() - k.Month()
}

func (k MonthKey) Year() int {
	return k.First().Year()
}

func (k MonthKey) Month() int {
	return k.First().Month()
}

// InstallmentDescription appends the " (i/N)" member suffix.
func InstallmentDescription(base string, current, total int) string {
	return fmt.Sprintf("%s (%d/%d)", strings.TrimSpace(base), current, total)
}

// BaseDescription strips generated suffixes so a record can be re-expanded.
func BaseDescription(desc string) string {
	desc = anticipatedSuffix.ReplaceAllString(desc, "")
	desc = installmentSuffix.ReplaceAllString(desc, "")
	return strings.TrimSpace(desc)
}
