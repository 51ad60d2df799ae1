// Package report renders DRE statements for people: Brazilian currency and
// percent formatting, text tables and XLSX workbooks.
package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL formats v as Brazilian reais, e.g. "R$ 1.234,56" or
// "-R$ 10,00".
func FormatBRL(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "R$ " + localize(d.StringFixed(2))
}

// FormatPercent formats v, already scaled to 0-100, with one decimal place,
// e.g. "12,3%".
func FormatPercent(v float64) string {
	d := decimal.NewFromFloat(v).Round(1)
	return localize(d.StringFixed(1)) + "%"
}

// localize rewrites a "-1234.56" string with pt-BR separators.
func localize(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
