package dre

import (
	"sort"

	"github.com/dvloznov/dre-engine/internal/classify"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Line identifies the kind of a pivot row.
type Line string

const (
	LineGrossRevenue Line = "receita_bruta"
	LineCosts        Line = "custos"
	LineGrossProfit  Line = "lucro_bruto"
	LineExpenses     Line = "despesas"
	LineNetProfit    Line = "lucro_liquido"
	LineNetMargin    Line = "margem_liquida"

	LineRevenueCategory Line = "categoria_receita"
	LineExpenseCategory Line = "categoria_despesa"
	LineTotalRevenue    Line = "total_receita"
	LineTotalExpense    Line = "total_despesa"
	LineGrandTotal      Line = "total_geral"
)

// Row labels as shown in the business spreadsheet.
const (
	LabelGrossRevenue = "Receita Bruta"
	LabelCosts        = "(-) Custos das Vendas (Categorias 2.1.x)"
	LabelGrossProfit  = "(=) Lucro Bruto"
	LabelExpenses     = "(-) Despesas Administrativas (Categorias 2.2.x + 2.3.x)"
	LabelNetProfit    = "(=) Lucro Líquido"
	LabelNetMargin    = "Margem Líquida (%)"
	LabelTotalExpense = "Despesa"
	LabelTotalRevenue = "Receita"
	LabelGrandTotal   = "Total Geral"
)

// PivotRow is one line of a twelve-month pivot.
type PivotRow struct {
	Label       string                      `json:"label"`
	Line        Line                        `json:"line"`
	MonthValues map[domain.MonthKey]float64 `json:"months"`
	Total       float64                     `json:"total"`
}

// Value returns the value of month m.
func (r PivotRow) Value(m domain.MonthKey) float64 {
	return r.MonthValues[m]
}

// YearPivot is the monthly statement of one calendar year.
type YearPivot struct {
	Year int        `json:"year"`
	Rows []PivotRow `json:"rows"`
}

// months accumulates one decimal per calendar month.
type months [12]decimal.Decimal

func (m *months) add(i int, v decimal.Decimal) { m[i] = m[i].Add(v) }

func (m months) sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

func (m months) row(label string, line Line) PivotRow {
	values := make(map[domain.MonthKey]float64, len(domain.Months))
	for i, key := range domain.Months {
		values[key] = m[i].InexactFloat64()
	}
	return PivotRow{Label: label, Line: line, MonthValues: values, Total: m.sum().InexactFloat64()}
}

// monthly holds bucket magnitudes per month of one view.
type monthly [12]totals

// byPeriod accumulates bucket magnitudes under the (year, month) key.
func (a *Aggregator) byPeriod(records []domain.FinancialRecord) map[Period]*totals {
	out := make(map[Period]*totals)
	a.each(records, func(r domain.FinancialRecord) {
		p := PeriodOf(r)
		t, ok := out[p]
		if !ok {
			t = &totals{}
			out[p] = t
		}
		t.add(a.rules.Classify(r.Category), r.EffectiveAmount)
	})
	return out
}

// PivotMonthly builds the monthly statement. Records of every year fold
// into the same twelve months; PivotMonthlyByYear keeps years apart.
func (a *Aggregator) PivotMonthly(records []domain.FinancialRecord) []PivotRow {
	var m monthly
	for p, t := range a.byPeriod(records) {
		i := int(p.Month) - 1
		m[i].revenue = m[i].revenue.Add(t.revenue)
		m[i].costs = m[i].costs.Add(t.costs)
		m[i].expenses = m[i].expenses.Add(t.expenses)
	}
	return statement(m)
}

// PivotMonthlyByYear builds one monthly statement per calendar year, in
// ascending year order.
func (a *Aggregator) PivotMonthlyByYear(records []domain.FinancialRecord) []YearPivot {
	years := make(map[int]*monthly)
	for p, t := range a.byPeriod(records) {
		m, ok := years[p.Year]
		if !ok {
			m = &monthly{}
			years[p.Year] = m
		}
		m[int(p.Month)-1] = *t
	}

	out := make([]YearPivot, 0, len(years))
	for year, m := range years {
		out = append(out, YearPivot{Year: year, Rows: statement(*m)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func statement(m monthly) []PivotRow {
	var revenue, costs, gross, expenses, net months
	for i, t := range m {
		revenue[i] = t.revenue
		costs[i] = t.costs.Neg()
		gross[i] = t.grossProfit()
		expenses[i] = t.expenses.Neg()
		net[i] = t.netProfit()
	}

	// Margins are computed per month and for the year, never averaged.
	marginRow := PivotRow{
		Label:       LabelNetMargin,
		Line:        LineNetMargin,
		MonthValues: make(map[domain.MonthKey]float64, len(domain.Months)),
		Total:       margin(net.sum(), revenue.sum()),
	}
	for i, key := range domain.Months {
		marginRow.MonthValues[key] = margin(net[i], revenue[i])
	}

	return []PivotRow{
		revenue.row(LabelGrossRevenue, LineGrossRevenue),
		costs.row(LabelCosts, LineCosts),
		gross.row(LabelGrossProfit, LineGrossProfit),
		expenses.row(LabelExpenses, LineExpenses),
		net.row(LabelNetProfit, LineNetProfit),
		marginRow,
	}
}

// PivotByCategory builds the detailed pivot keyed by category. Revenue
// categories (1.x) are positive, outflow categories (2.x) negative, and
// other categories, empty categories and zero amounts are skipped.
//
// Rows are ordered: expense total, 2.x categories, revenue total, 1.x
// categories, grand total. Categories sort in natural order, so 2.1.10
// follows 2.1.9.
func (a *Aggregator) PivotByCategory(records []domain.FinancialRecord) []PivotRow {
	type catRow struct {
		line   Line
		values months
	}
	byCategory := make(map[string]*catRow)
	var totalRevenue, totalExpense months

	a.each(records, func(r domain.FinancialRecord) {
		category := trimCategory(r.Category)
		if category == "" || r.EffectiveAmount == 0 {
			return
		}
		v := dec(r.EffectiveAmount).Abs()
		i := int(PeriodOf(r).Month) - 1

		switch {
		case classify.IsRevenueCode(category):
			row := byCategory[category]
			if row == nil {
				row = &catRow{line: LineRevenueCategory}
				byCategory[category] = row
			}
			row.values.add(i, v)
			totalRevenue.add(i, v)
		case classify.IsOutflowCode(category):
			row := byCategory[category]
			if row == nil {
				row = &catRow{line: LineExpenseCategory}
				byCategory[category] = row
			}
			row.values.add(i, v.Neg())
			totalExpense.add(i, v.Neg())
		}
	})

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sortNatural(names)

	var grand months
	for i := range grand {
		grand[i] = totalRevenue[i].Add(totalExpense[i])
	}

	rows := make([]PivotRow, 0, len(names)+3)
	rows = append(rows, totalExpense.row(LabelTotalExpense, LineTotalExpense))
	for _, name := range names {
		if c := byCategory[name]; c.line == LineExpenseCategory {
			rows = append(rows, c.values.row(name, c.line))
		}
	}
	rows = append(rows, totalRevenue.row(LabelTotalRevenue, LineTotalRevenue))
	for _, name := range names {
		if c := byCategory[name]; c.line == LineRevenueCategory {
			rows = append(rows, c.values.row(name, c.line))
		}
	}
	rows = append(rows, grand.row(LabelGrandTotal, LineGrandTotal))
	return rows
}

// sortNatural sorts category names the way the business spreadsheet does:
// pt-BR collation with digit runs compared as numbers.
func sortNatural(names []string) {
	c := collate.New(language.BrazilianPortuguese, collate.Numeric)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
}
