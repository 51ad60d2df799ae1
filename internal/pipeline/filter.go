package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dvloznov/dre-engine/internal/fields"
	"github.com/dvloznov/dre-engine/internal/normalize"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultDenylist holds header words that mark title, label and total rows.
var DefaultDenylist = []string{"locagora", "rótulos", "labels", "total", "soma", "subtotal"}

// RowFilter drops rows that carry no transaction.
type RowFilter struct {
	denylist []string
}

// NewRowFilter builds a filter from denylist words. Matching ignores case
// and accents.
func NewRowFilter(denylist []string) *RowFilter {
	folded := make([]string, 0, len(denylist))
	for _, w := range denylist {
		if w = fold(w); w != "" {
			folded = append(folded, w)
		}
	}
	return &RowFilter{denylist: folded}
}

// Reason explains why a row is dropped. Empty means the row is kept.
func (f *RowFilter) Reason(row fields.RawRow) string {
	if row.Len() == 0 || !row.HasContent() {
		return "empty"
	}
	for _, key := range row.Keys() {
		k := fold(key)
		for _, w := range f.denylist {
			if strings.Contains(k, w) {
				return "metadata"
			}
		}
	}
	if !hasFinancialSignal(row) {
		return "no financial fields"
	}
	return ""
}

// Keep reports whether row should reach the mapper.
func (f *RowFilter) Keep(row fields.RawRow) bool {
	return f.Reason(row) == ""
}

var amountLike = regexp.MustCompile(`^-?[\d.,]+$`)

// hasFinancialSignal is deliberately loose: a row is dropped only when no
// key or value looks like a type or an amount.
func hasFinancialSignal(row fields.RawRow) bool {
	for _, key := range row.Keys() {
		v, _ := row.Get(key)
		lower := strings.ToLower(key)
		if strings.Contains(lower, "tipo") || strings.Contains(lower, "type") {
			return true
		}
		if strings.Contains(lower, "valor") || strings.Contains(lower, "value") {
			return true
		}
		switch normalize.Text(v) {
		case "Receita", "Custo", "Despesa":
			return true
		}
		if normalize.StartsWithNumber(v) {
			return true
		}
	}
	for _, key := range row.Keys() {
		v, _ := row.Get(key)
		s := strings.NewReplacer("R", "", "$", "", " ", "", "\u00a0", "").Replace(normalize.Text(v))
		if s != "" && amountLike.MatchString(s) {
			return true
		}
	}
	return false
}

// fold lower-cases s and strips combining marks. Chained transformers
// keep state, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
