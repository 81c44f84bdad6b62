package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"organize/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON document into v, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathMonth parses the {month} path value.
func pathMonth(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.PathValue("month"))
}

// queryMonth parses an optional month query parameter; empty yields "".
func queryMonth(query url.Values, name string) (core.MonthKey, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return "", nil
	}
	return core.ParseMonthKey(v)
}

// SeriesRange holds the from/to months of a series request.
type SeriesRange struct {
	From core.MonthKey
	To   core.MonthKey
}

// defaultSeriesMonths is how many months a series covers when from is omitted.
const defaultSeriesMonths = 6

// ParseSeriesRange extracts from/to from query parameters. to defaults to the
// month of now and from to the five months before it.
func ParseSeriesRange(query url.Values, now time.Time) (SeriesRange, error) {
	to, err := queryMonth(query, "to")
	if err != nil {
		return SeriesRange{}, err
	}
	if to == "" {
		to = core.MonthKeyOf(core.DateOf(now))
	}
	from, err := queryMonth(query, "from")
	if err != nil {
		return SeriesRange{}, err
	}
	if from == "" {
		from = to.Add(-(defaultSeriesMonths - 1))
	}
	return SeriesRange{From: from, To: to}, nil
}
