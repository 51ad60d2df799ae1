// Package normalize converts raw spreadsheet cells into canonical scalars.
//
// Every function here is pure and lenient: only Type can fail, all other
// normalizers fall back to a documented default.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Text renders a cell as a trimmed string. Floats are printed without
// trailing zeros and times as ISO dates.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02")
	case civil.Date:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// IsBlank reports whether a cell carries no content.
func IsBlank(v any) bool {
	return Text(v) == ""
}
