package sheets

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimiters are the candidate field separators, in tie-break order.
var delimiters = []rune{',', ';', '\t', '|'}

// ReadCSV reads delimited text as a single unnamed table.
//
// Input that is not valid UTF-8 is decoded as Windows-1252, the usual
// encoding of spreadsheet exports on Brazilian desktops. The delimiter is
// sniffed from the header line.
func ReadCSV(data []byte) ([]Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.Comma = sniffDelimiter(data)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var rows [][]any
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: reading record %d: %w", len(rows)+1, err)
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		rows = append(rows, row)
	}

	return []Table{{Rows: rows}}, nil
}

// sniffDelimiter picks the candidate that occurs most often outside quotes
// on the first non-empty line. Comma wins ties and empty input.
func sniffDelimiter(data []byte) rune {
	line := firstLine(data)

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, b := range line {
		if b == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		for _, d := range delimiters {
			if rune(b) == d {
				counts[d]++
			}
		}
	}

	best := delimiters[0]
	for _, d := range delimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func firstLine(data []byte) []byte {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		var line []byte
		if i < 0 {
			line, data = data, nil
		} else {
			line, data = data[:i], data[i+1:]
		}
		if len(bytes.TrimSpace(line)) > 0 {
			return line
		}
	}
	return nil
}
