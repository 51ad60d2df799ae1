package report

import (
	"fmt"
	"io"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetSummary    = "Resumo"
	SheetMonthly    = "DRE Mensal"
	SheetCategories = "Por Categoria"
	SheetGroups     = "Grupos"
	SheetEvolution  = "Evolução"
)

const (
	numFmtBRL     = `"R$" #,##0.00;-"R$" #,##0.00`
	numFmtPercent = `0.0"%"`
)

type styles struct {
	header, money, percent int
}

// Workbook renders r as an XLSX workbook. Values are written as numbers with
// currency or percent formats, so the sheet stays computable.
func (r Report) Workbook() (*excelize.File, error) {
	f := excelize.NewFile()

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("Workbook: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("Workbook: %w", err)
	}

	steps := []func(*excelize.File, styles) error{
		r.writeSummary,
		func(f *excelize.File, st styles) error { return writePivotSheet(f, st, SheetMonthly, r.Monthly) },
		func(f *excelize.File, st styles) error { return writePivotSheet(f, st, SheetCategories, r.Categories) },
		r.writeGroups,
		r.writeEvolution,
	}
	for _, step := range steps {
		if err := step(f, st); err != nil {
			f.Close()
			return nil, fmt.Errorf("Workbook: %w", err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteXLSX writes r as an XLSX workbook to w.
func (r Report) WriteXLSX(w io.Writer) error {
	f, err := r.Workbook()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	if st.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return st, err
	}
	brl := numFmtBRL
	if st.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &brl}); err != nil {
		return st, err
	}
	pct := numFmtPercent
	if st.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &pct}); err != nil {
		return st, err
	}
	return st, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func (r Report) writeSummary(f *excelize.File, st styles) error {
	sheet := SheetSummary
	row := 1
	if r.Title != "" {
		if err := f.SetCellValue(sheet, "A1", r.Title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", "A1", st.header); err != nil {
			return err
		}
		row = 2
	}

	for _, l := range SummaryLines(r.Summary) {
		if err := f.SetSheetRow(sheet, cellName(1, row), &[]interface{}{l.Label, l.Value}); err != nil {
			return err
		}
		style := st.money
		if l.Percent {
			style = st.percent
		}
		if err := f.SetCellStyle(sheet, cellName(2, row), cellName(2, row), style); err != nil {
			return err
		}
		row++
	}
	return f.SetColWidth(sheet, "A", "A", 60)
}

func writePivotSheet(f *excelize.File, st styles, sheet string, rows []dre.PivotRow) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []interface{}{"Linha"}
	for _, m := range domain.Months {
		header = append(header, string(m))
	}
	header = append(header, "Total")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last := len(header)
	if err := f.SetCellStyle(sheet, "A1", cellName(last, 1), st.header); err != nil {
		return err
	}

	for i, r := range rows {
		line := []interface{}{r.Label}
		for _, m := range domain.Months {
			line = append(line, r.Value(m))
		}
		line = append(line, r.Total)

		row := i + 2
		if err := f.SetSheetRow(sheet, cellName(1, row), &line); err != nil {
			return err
		}
		style := st.money
		if r.Line == dre.LineNetMargin {
			style = st.percent
		}
		if err := f.SetCellStyle(sheet, cellName(2, row), cellName(last, row), style); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 60); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", colName(last), 14)
}

func colName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

func (r Report) writeGroups(f *excelize.File, st styles) error {
	sheet := SheetGroups
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Grupo", "Valor"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", st.header); err != nil {
		return err
	}
	for i, g := range r.Breakdown {
		row := i + 2
		if err := f.SetSheetRow(sheet, cellName(1, row), &[]interface{}{g.Name, g.Value}); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(2, row), cellName(2, row), st.money); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 30)
}

func (r Report) writeEvolution(f *excelize.File, st styles) error {
	sheet := SheetEvolution
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Mês", "Receita", "Lucro"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", st.header); err != nil {
		return err
	}
	for i, p := range r.Evolution {
		row := i + 2
		if err := f.SetSheetRow(sheet, cellName(1, row), &[]interface{}{p.Month, p.Revenue, p.Profit}); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(2, row), cellName(3, row), st.money); err != nil {
			return err
		}
	}
	return nil
}
