package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cotizador/internal/core"
	"cotizador/internal/sheets"
)

// findRow returns the zero-based row index whose first cell equals number, or -1.
func findRow(values [][]any, number string) int {
	number = strings.TrimSpace(number)
	if number == "" {
		return -1
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == number {
			return i
		}
	}
	return -1
}

// parseRows converts a values matrix into quote rows. The header and rows
// whose first cell is not a quote number are skipped.
func parseRows(values [][]any) []sheets.QuoteRow {
	var out []sheets.QuoteRow
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) == 0 {
			continue
		}
		if _, _, err := core.ParseQuoteNumber(cols[0]); err != nil {
			continue
		}
		r := sheets.QuoteRow{
			Number:            cols[0],
			Client:            safeGet(cols, 1),
			Project:           safeGet(cols, 2),
			Status:            core.Status(safeGet(cols, 3)),
			MaterialsSubtotal: parseAmount(safeGet(cols, 4)),
			LaborTotal:        parseAmount(safeGet(cols, 5)),
			PaintingTotal:     parseAmount(safeGet(cols, 6)),
			GrandTotal:        parseAmount(safeGet(cols, 7)),
		}
		if t, err := time.Parse(time.RFC3339, safeGet(cols, 8)); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount accepts plain numbers and the "$1,234.50" display form.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
