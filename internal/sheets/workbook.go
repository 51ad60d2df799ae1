package sheets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads every sheet of an OOXML workbook.
//
// Cells are read raw so that serial dates and amounts keep their numeric
// value instead of the display format. Numeric cells become float64.
func ReadXLSX(data []byte) ([]Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ReadXLSX: opening workbook: %w", err)
	}
	defer f.Close()

	var tables []Table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("ReadXLSX: reading sheet %q: %w", name, err)
		}

		table := Table{Name: name, Rows: make([][]any, len(rows))}
		for ri, row := range rows {
			cells := make([]any, len(row))
			for ci, raw := range row {
				cells[ci] = xlsxCell(f, name, ci+1, ri+1, raw)
			}
			table.Rows[ri] = cells
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// xlsxCell types a raw cell value. Only cells stored as numbers become
// float64; text that happens to look numeric stays text.
func xlsxCell(f *excelize.File, sheet string, col, row int, raw string) any {
	if raw == "" {
		return ""
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return n
	}
	return raw
}

// ReadXLS reads every sheet of a legacy BIFF workbook.
func ReadXLS(data []byte) ([]Table, error) {
	// The reader only opens files by path.
	tmp, err := os.CreateTemp("", "dre-*.xls")
	if err != nil {
		return nil, fmt.Errorf("ReadXLS: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("ReadXLS: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("ReadXLS: closing temp file: %w", err)
	}

	workbook, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("ReadXLS: opening workbook: %w", err)
	}

	var tables []Table
	for si := 0; si < workbook.GetNumberSheets(); si++ {
		sheet, err := workbook.GetSheet(si)
		if err != nil || sheet == nil {
			continue
		}

		table := Table{Name: sheet.GetName()}
		for i := 0; i <= int(sheet.GetNumberRows()); i++ {
			row, err := sheet.GetRow(i)
			if err != nil || row == nil {
				table.Rows = append(table.Rows, nil)
				continue
			}

			var cells []any
			for _, col := range row.GetCols() {
				if col == nil {
					cells = append(cells, "")
					continue
				}
				cells = append(cells, xlsCell(col.GetType(), col.GetString()))
			}
			table.Rows = append(table.Rows, cells)
		}
		tables = append(tables, trimTrailingBlankRows(table))
	}
	return tables, nil
}

func xlsCell(typ, value string) any {
	if value == "" || strings.Contains(typ, "Label") {
		return value
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}

func trimTrailingBlankRows(t Table) Table {
	for len(t.Rows) > 0 && isBlankRow(t.Rows[len(t.Rows)-1]) {
		t.Rows = t.Rows[:len(t.Rows)-1]
	}
	return t
}
