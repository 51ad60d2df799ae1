package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
)

// Report is every view of one set of records, ready to render.
type Report struct {
	Title      string
	Summary    dre.Summary
	Monthly    []dre.PivotRow
	Years      []dre.YearPivot
	Categories []dre.PivotRow
	Breakdown  []dre.GroupTotal
	Evolution  []dre.EvolutionPoint
}

// Build computes all views of records with agg.
func Build(title string, agg *dre.Aggregator, records []domain.FinancialRecord) Report {
	return Report{
		Title:      title,
		Summary:    agg.Summarize(records),
		Monthly:    agg.PivotMonthly(records),
		Years:      agg.PivotMonthlyByYear(records),
		Categories: agg.PivotByCategory(records),
		Breakdown:  agg.Breakdown(records),
		Evolution:  agg.Evolution(records),
	}
}

// SummaryLine is one labelled figure of the single-period statement.
type SummaryLine struct {
	Label   string
	Value   float64
	Percent bool
}

// SummaryLines lists s in statement order.
func SummaryLines(s dre.Summary) []SummaryLine {
	return []SummaryLine{
		{Label: dre.LabelGrossRevenue, Value: s.GrossRevenue},
		{Label: "(-) Custos", Value: s.Costs},
		{Label: dre.LabelGrossProfit, Value: s.GrossProfit},
		{Label: "(-) Despesas", Value: s.Expenses},
		{Label: dre.LabelNetProfit, Value: s.NetProfit},
		{Label: dre.LabelNetMargin, Value: s.NetMargin, Percent: true},
		{Label: "Saídas Totais", Value: s.TotalOutflow},
	}
}

// FormatValue renders a pivot cell: percent for the margin line, reais
// otherwise.
func FormatValue(line dre.Line, v float64) string {
	if line == dre.LineNetMargin {
		return FormatPercent(v)
	}
	return FormatBRL(v)
}

// WriteSummary prints the single-period statement as an aligned table.
func WriteSummary(w io.Writer, s dre.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, l := range SummaryLines(s) {
		v := FormatBRL(l.Value)
		if l.Percent {
			v = FormatPercent(l.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", l.Label, v)
	}
	return tw.Flush()
}

// WritePivot prints pivot rows with one column per month and a total.
func WritePivot(w io.Writer, rows []dre.PivotRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprint(tw, "\t")
	for _, m := range domain.Months {
		fmt.Fprintf(tw, "%s\t", m)
	}
	fmt.Fprint(tw, "Total\t\n")

	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t", r.Label)
		for _, m := range domain.Months {
			fmt.Fprintf(tw, "%s\t", FormatValue(r.Line, r.Value(m)))
		}
		fmt.Fprintf(tw, "%s\t\n", FormatValue(r.Line, r.Total))
	}
	return tw.Flush()
}

// WriteBreakdown prints the category-group totals.
func WriteBreakdown(w io.Writer, groups []dre.GroupTotal) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t\n", g.Name, FormatBRL(g.Value))
	}
	return tw.Flush()
}

// WriteEvolution prints the monthly revenue and profit series.
func WriteEvolution(w io.Writer, points []dre.EvolutionPoint) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Mês\tReceita\tLucro\t\n")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", p.Month, FormatBRL(p.Revenue), FormatBRL(p.Profit))
	}
	return tw.Flush()
}

// WriteReconciliation prints the audit of a record set.
func WriteReconciliation(w io.Writer, rec dre.Reconciliation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprint(tw, "Mês\tLucro (magnitude)\tLucro (com sinal)\tDiferença\t\n")
	for _, m := range rec.Months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", m.Period, FormatBRL(m.MagnitudeProfit), FormatBRL(m.SignedProfit), FormatBRL(m.Difference))
	}

	section := func(title string, counts []dre.CategoryCount) {
		if len(counts) == 0 {
			return
		}
		fmt.Fprintf(tw, "\n%s\t\t\t\t\n", title)
		for _, c := range counts {
			fmt.Fprintf(tw, "%s\t%d\t%s\t\t\n", c.Category, c.Count, FormatBRL(c.Sum))
		}
	}
	section("Saídas com valor positivo", rec.PositiveOutflows)
	section("Categorias fora da DRE", rec.Unclassified)

	if len(rec.TypeMismatches) > 0 {
		fmt.Fprint(tw, "\nTipo divergente da categoria\t\t\t\t\n")
		for _, m := range rec.TypeMismatches {
			fmt.Fprintf(tw, "%s\t%s\t%d\t\t\n", m.Category, m.Type, m.Count)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if rec.Mismatched {
		_, err := fmt.Fprintln(w, "\nATENÇÃO: o lucro com sinal difere do lucro da DRE.")
		return err
	}
	return nil
}
