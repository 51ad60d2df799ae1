// Package fields locates logical record fields inside spreadsheet rows whose
// headers follow no fixed spelling.
package fields

import "github.com/dvloznov/dre-engine/internal/normalize"

// RawRow is one data row keyed by header, in header order.
//
// Values are string, float64, bool, time.Time or nil. Setting an existing
// key replaces its value but keeps its original position.
type RawRow struct {
	// Sheet is the sheet name for workbooks, empty for delimited text.
	Sheet string
	// Line is the 1-based line of the row in its sheet, header included.
	Line int

	keys   []string
	values map[string]any
}

// NewRawRow returns an empty row located at sheet/line.
func NewRawRow(sheet string, line int) RawRow {
	return RawRow{Sheet: sheet, Line: line, values: make(map[string]any)}
}

// RowOf builds a row from alternating key/value pairs. It is meant for
// fixtures and small adapters.
func RowOf(pairs ...any) RawRow {
	r := NewRawRow("", 0)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		r.Set(key, pairs[i+1])
	}
	return r
}

// Set stores v under key. Empty keys are ignored.
func (r *RawRow) Set(key string, v any) {
	if key == "" {
		return
	}
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r RawRow) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the headers in insertion order.
func (r RawRow) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r RawRow) Len() int {
	return len(r.keys)
}

// HasContent reports whether at least one cell is non-empty.
func (r RawRow) HasContent() bool {
	for _, k := range r.keys {
		if !normalize.IsBlank(r.values[k]) {
			return true
		}
	}
	return false
}
