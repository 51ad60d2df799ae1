package dre

import (
	"strings"

	"github.com/dvloznov/dre-engine/internal/classify"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Summary is the single-period DRE.
type Summary struct {
	GrossRevenue float64 `json:"receitaBruta"`
	Costs        float64 `json:"custos"`
	Expenses     float64 `json:"despesas"`
	GrossProfit  float64 `json:"lucroBruto"`
	NetProfit    float64 `json:"lucroLiquido"`
	// NetMargin is a percentage of GrossRevenue, 0 without revenue.
	NetMargin float64 `json:"margemLiquida"`
	// TotalOutflow is the absolute value of the signed sum of all 2.x
	// categories, the figure the business pivot shows for outflows.
	TotalOutflow float64 `json:"saidasTotais"`
}

// Summarize folds records into a Summary.
func (a *Aggregator) Summarize(records []domain.FinancialRecord) Summary {
	var t totals
	outflow := decimal.Zero

	a.each(records, func(r domain.FinancialRecord) {
		t.add(a.rules.Classify(r.Category), r.EffectiveAmount)
		if classify.IsOutflowCode(r.Category) {
			outflow = outflow.Add(dec(r.EffectiveAmount))
		}
	})

	// Buckets accumulate in decimal; the statement lines are derived from
	// the reported floats so that the profit identities hold exactly.
	s := Summary{
		GrossRevenue: t.revenue.InexactFloat64(),
		Costs:        t.costs.InexactFloat64(),
		Expenses:     t.expenses.InexactFloat64(),
		NetMargin:    margin(t.netProfit(), t.revenue),
		TotalOutflow: outflow.Abs().InexactFloat64(),
	}
	s.GrossProfit = s.GrossRevenue - s.Costs
	s.NetProfit = s.GrossProfit - s.Expenses
	return s
}

// ComparisonBar is one bar of the revenue/cost/expense comparison chart.
type ComparisonBar struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Comparison returns the three bucket magnitudes as chart bars.
func (s Summary) Comparison() []ComparisonBar {
	return []ComparisonBar{
		{Name: "Receita Bruta", Value: s.GrossRevenue},
		{Name: "Custos", Value: s.Costs},
		{Name: "Despesas", Value: s.Expenses},
	}
}

// trimCategory is the category key used by the category views.
func trimCategory(c string) string {
	return strings.TrimSpace(c)
}
