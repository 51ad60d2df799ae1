package dre

import (
	"sort"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// GroupTotal is the magnitude of one category group.
type GroupTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Breakdown totals absolute amounts per category group. Groups with a zero
// total are left out; the rest are sorted by descending value.
func (a *Aggregator) Breakdown(records []domain.FinancialRecord) []GroupTotal {
	sums := make(map[string]decimal.Decimal)
	a.each(records, func(r domain.FinancialRecord) {
		g := a.groups.Group(r.Category)
		sums[g] = sums[g].Add(dec(r.EffectiveAmount).Abs())
	})

	out := make([]GroupTotal, 0, len(sums))
	for name, v := range sums {
		if !v.IsPositive() {
			continue
		}
		out = append(out, GroupTotal{Name: name, Value: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// EvolutionPoint is one month of the revenue and profit series.
type EvolutionPoint struct {
	// Month is formatted YYYY-MM.
	Month   string  `json:"name"`
	Revenue float64 `json:"receita"`
	Profit  float64 `json:"lucro"`
}

// Evolution returns monthly revenue and net profit in chronological order.
// Unlike PivotMonthly, years are kept apart. Records without a settlement
// date are skipped.
func (a *Aggregator) Evolution(records []domain.FinancialRecord) []EvolutionPoint {
	dated := make([]domain.FinancialRecord, 0, len(records))
	for _, r := range records {
		if r.EffectiveDate.IsValid() {
			dated = append(dated, r)
		}
	}

	byPeriod := a.byPeriod(dated)
	periods := make([]Period, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	out := make([]EvolutionPoint, 0, len(periods))
	for _, p := range periods {
		t := byPeriod[p]
		out = append(out, EvolutionPoint{
			Month:   p.String(),
			Revenue: t.revenue.InexactFloat64(),
			Profit:  t.netProfit().InexactFloat64(),
		})
	}
	return out
}

// Breakdown computes category groups with the default aggregator.
func Breakdown(records []domain.FinancialRecord) []GroupTotal {
	return defaultAggregator.Breakdown(records)
}

// Evolution computes the monthly series with the default aggregator.
func Evolution(records []domain.FinancialRecord) []EvolutionPoint {
	return defaultAggregator.Evolution(records)
}
