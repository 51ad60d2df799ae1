package report

import (
	"bytes"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func rec(category string, amount float64, date string) domain.FinancialRecord {
	d, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	typ := domain.TypeExpense
	if amount > 0 {
		typ = domain.TypeRevenue
	}
	return domain.FinancialRecord{Type: typ, Status: domain.StatusPaid, Category: category, EffectiveDate: d, EffectiveAmount: amount}
}

func scenario() []domain.FinancialRecord {
	return []domain.FinancialRecord{
		rec("1.1 Aluguel", 1000, "2024-03-05"),
		rec("2.1.1 Combustível", -200, "2024-03-10"),
		rec("2.2.1 Salário", -300, "2024-03-28"),
	}
}

func TestWriteXLSX(t *testing.T) {
	r := Build("DRE 2024", dre.New(), scenario())

	var buf bytes.Buffer
	if err := r.WriteXLSX(&buf); err != nil {
		t.Fatalf("WriteXLSX() error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer f.Close()

	wantSheets := []string{SheetSummary, SheetMonthly, SheetCategories, SheetGroups, SheetEvolution}
	if diff := cmp.Diff(wantSheets, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets mismatch (-want +got):\n%s", diff)
	}

	raw := excelize.Options{RawCellValue: true}

	summary, err := f.GetRows(SheetSummary, raw)
	if err != nil {
		t.Fatal(err)
	}
	wantSummary := [][]string{
		{"DRE 2024"},
		{dre.LabelGrossRevenue, "1000"},
		{"(-) Custos", "200"},
		{dre.LabelGrossProfit, "800"},
		{"(-) Despesas", "300"},
		{dre.LabelNetProfit, "500"},
		{dre.LabelNetMargin, "50"},
		{"Saídas Totais", "500"},
	}
	if diff := cmp.Diff(wantSummary, summary); diff != "" {
		t.Errorf("summary sheet mismatch (-want +got):\n%s", diff)
	}

	monthly, err := f.GetRows(SheetMonthly, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(monthly) != 7 {
		t.Fatalf("monthly sheet has %d rows, want 7", len(monthly))
	}
	if got := monthly[0]; got[0] != "Linha" || got[3] != "mar" || got[13] != "Total" {
		t.Errorf("monthly header = %v", got)
	}
	if got := monthly[2]; got[0] != dre.LabelCosts || got[3] != "-200" || got[13] != "-200" {
		t.Errorf("costs row = %v", got)
	}

	groups, err := f.GetRows(SheetGroups, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 4 || groups[1][0] != "Receitas" || groups[1][1] != "1000" {
		t.Errorf("groups sheet = %v", groups)
	}
}

func TestWritePivot(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePivot(&buf, dre.PivotMonthly(scenario())); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want 7:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{"jan", "dez", "Total"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("header %q missing %s", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], "R$ 1.000,00") {
		t.Errorf("revenue line = %q", lines[1])
	}
	if !strings.Contains(lines[6], "50,0%") {
		t.Errorf("margin line = %q", lines[6])
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, dre.Summarize(scenario())); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"R$ 1.000,00", "R$ 800,00", "R$ 500,00", "50,0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReconciliation(t *testing.T) {
	records := append(scenario(), rec("2.1.1 Estorno", 50, "2024-04-02"))

	var buf bytes.Buffer
	if err := WriteReconciliation(&buf, dre.Reconcile(records)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2024-03", "2024-04", "Saídas com valor positivo", "2.1.1 Estorno", "ATENÇÃO"} {
		if !strings.Contains(out, want) {
			t.Errorf("reconciliation missing %q:\n%s", want, out)
		}
	}
}
