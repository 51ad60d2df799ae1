// Package sheets reads delimited text and spreadsheet workbooks into plain
// tables of cells.
package sheets

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dvloznov/dre-engine/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// Kind is an accepted input file kind.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindXLS  Kind = "xls"
)

// Table is one sheet as read. Rows[0] is the header when present. Cells are
// string, float64 or nil.
type Table struct {
	Name string
	Rows [][]any
	// StartLine is the 1-based source line of Rows[0].
	StartLine int
}

var mimeKinds = map[string]Kind{
	"text/csv":                    KindCSV,
	"application/csv":             KindCSV,
	"text/comma-separated-values": KindCSV,
	"application/vnd.ms-excel":    KindXLS,

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": KindXLSX,
}

// DetectKind selects a parser from the file name, falling back to the
// content type. Anything else is ErrUnsupportedFormat.
func DetectKind(name, contentType string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return KindCSV, nil
	case ".xlsx":
		return KindXLSX, nil
	case ".xls":
		return KindXLS, nil
	}

	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if kind, ok := mimeKinds[mediaType]; ok {
				return kind, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, name)
}

// Read parses data according to kind.
func Read(kind Kind, data []byte) ([]Table, error) {
	var (
		tables []Table
		err    error
	)
	switch kind {
	case KindCSV:
		tables, err = ReadCSV(data)
	case KindXLSX:
		tables, err = ReadXLSX(data)
	case KindXLS:
		tables, err = ReadXLS(data)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, kind)
	}
	if err != nil {
		return nil, err
	}

	for i := range tables {
		var skipped int
		tables[i].Rows, skipped = trimLeadingBlankRows(tables[i].Rows)
		tables[i].StartLine = skipped + 1
		if len(tables[i].Rows) > 0 {
			tables[i].Rows[0] = normalizeHeader(tables[i].Rows[0])
		}
	}
	return tables, nil
}

// normalizeHeader composes accents (NFC) and trims header cells so that a
// header typed on another platform still matches exact spellings.
func normalizeHeader(row []any) []any {
	out := make([]any, len(row))
	for i, cell := range row {
		if s, ok := cell.(string); ok {
			out[i] = strings.TrimSpace(norm.NFC.String(s))
			continue
		}
		out[i] = cell
	}
	return out
}

func trimLeadingBlankRows(rows [][]any) ([][]any, int) {
	var n int
	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
		n++
	}
	return rows, n
}

func isBlankRow(row []any) bool {
	for _, cell := range row {
		switch c := cell.(type) {
		case nil:
		case string:
			if strings.TrimSpace(c) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
