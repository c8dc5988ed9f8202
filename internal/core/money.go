package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts.
const CurrencySymbol = "$"

// FormatMoney renders an amount for display with two decimals and thousands
// separators, e.g. 1234.5 -> "$1,234.50". Rounding happens here only;
// stored totals keep full precision.
func FormatMoney(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + CurrencySymbol + groupThousands(intPart) + "." + frac
}

// RoundMoney rounds half away from zero to cents, for reports.
func RoundMoney(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
