package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned before any row is read when the file
	// kind cannot be determined.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptySheet is returned when no sheet has both a header and a data row.
	ErrEmptySheet = errors.New("no sheet with header and data rows")

	// ErrInvalidType is returned when a row's type cannot be resolved to
	// Receita or Despesa.
	ErrInvalidType = errors.New("invalid record type")

	// ErrNoValidRecords is returned when filtering leaves zero rows.
	ErrNoValidRecords = errors.New("no valid records found")
)

// RowError ties a failure to a row of the ingested file.
type RowError struct {
	// Index is the 1-based position of the row among the rows handed to the mapper.
	Index int
	// Sheet and Line locate the row in the source file. Line is 1-based and
	// counts the header.
	Sheet string
	Line  int
	// Value is the raw cell value that failed validation.
	Value string
	Err   error
}

func (e *RowError) Error() string {
	loc := fmt.Sprintf("row %d", e.Index)
	if e.Line > 0 {
		if e.Sheet != "" {
			loc += fmt.Sprintf(" (sheet %q, line %d)", e.Sheet, e.Line)
		} else {
			loc += fmt.Sprintf(" (line %d)", e.Line)
		}
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is caused by the ingested file itself
// rather than by infrastructure. Such failures do not succeed on retry.
func IsInputError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptySheet) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrNoValidRecords)
}
