package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// leadingNumber matches the longest real-number prefix of a cleaned amount.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Amount converts a cell into a signed amount in the working currency.
//
// Numeric cells are returned unchanged. Strings are read with pt-BR
// conventions: "R$ 1.234,56" is 1234.56. Anything unparsable is 0.
func Amount(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return parseAmount(x)
	case bool:
		return 0
	default:
		return parseAmount(Text(x))
	}
}

func parseAmount(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r == 'R' || r == '$' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	m := leadingNumber.FindString(cleaned)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// StartsWithNumber reports whether the cell text begins with a real number,
// the way a permissive float parser would accept it ("1.1 Aluguel" does).
func StartsWithNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64:
		return true
	}
	return leadingNumber.MatchString(Text(v))
}
