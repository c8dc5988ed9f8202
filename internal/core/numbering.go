package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuoteNumberPrefix starts every generated quote number.
const QuoteNumberPrefix = "COT"

// MonthBounds returns the half-open interval [start, end) of the calendar
// month containing t, in t's location.
func MonthBounds(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// Period returns the YYYYMM key that scopes quote sequences.
func Period(t time.Time) string {
	return fmt.Sprintf("%04d%02d", t.Year(), int(t.Month()))
}

// FormatQuoteNumber renders COT-YYYYMM-NNN for the seq-th quote of t's month.
// Sequences above 999 widen instead of wrapping.
func FormatQuoteNumber(t time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", QuoteNumberPrefix, Period(t), seq)
}

// ParseQuoteNumber splits a quote number into its period and sequence.
func ParseQuoteNumber(number string) (period string, seq int, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != QuoteNumberPrefix || len(parts[1]) != 6 || len(parts[2]) < 3 {
		return "", 0, fmt.Errorf("malformed quote number %q", number)
	}
	month, err := strconv.Atoi(parts[1][4:])
	if err != nil || month < 1 || month > 12 {
		return "", 0, fmt.Errorf("malformed quote period %q", parts[1])
	}
	if _, err := strconv.Atoi(parts[1][:4]); err != nil {
		return "", 0, fmt.Errorf("malformed quote period %q", parts[1])
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return "", 0, fmt.Errorf("malformed quote sequence %q", parts[2])
	}
	return parts[1], seq, nil
}
