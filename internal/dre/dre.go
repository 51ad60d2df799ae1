// Package dre folds financial records into a DRE statement and its pivots.
//
// Buckets are accumulated as magnitudes and sign is reintroduced only at the
// statement level. Sums use decimal arithmetic; results are float64.
package dre

import (
	"math"
	"time"

	"github.com/dvloznov/dre-engine/internal/classify"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Predicate selects the records an aggregation considers.
type Predicate func(domain.FinancialRecord) bool

// All accepts every record.
func All(domain.FinancialRecord) bool { return true }

// And combines predicates. A nil predicate is ignored.
func And(preds ...Predicate) Predicate {
	return func(r domain.FinancialRecord) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

// Aggregator computes statements under fixed rules and a record filter.
// It is immutable and safe for concurrent use.
type Aggregator struct {
	rules  *classify.Rules
	groups *classify.Groups
	filter Predicate
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRules replaces the classification rules.
func WithRules(r *classify.Rules) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.rules = r
		}
	}
}

// WithGroups replaces the breakdown groups.
func WithGroups(g *classify.Groups) Option {
	return func(a *Aggregator) {
		if g != nil {
			a.groups = g
		}
	}
}

// WithFilter restricts aggregation to records accepted by p.
func WithFilter(p Predicate) Option {
	return func(a *Aggregator) {
		if p != nil {
			a.filter = p
		}
	}
}

// New creates an aggregator. By default every record counts, whatever its
// status.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		rules:  classify.DefaultRules(),
		groups: classify.DefaultGroups(),
		filter: All,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// With returns a copy of a with extra options applied.
func (a *Aggregator) With(opts ...Option) *Aggregator {
	cp := *a
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

func (a *Aggregator) each(records []domain.FinancialRecord, fn func(domain.FinancialRecord)) {
	for _, r := range records {
		if a.filter(r) {
			fn(r)
		}
	}
}

// Period is a calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodOf returns the settlement period of a record. Records without a
// valid date fall into January of their year.
func PeriodOf(r domain.FinancialRecord) Period {
	m := r.EffectiveDate.Month
	if m < time.January || m > time.December {
		m = time.January
	}
	return Period{Year: r.EffectiveDate.Year, Month: m}
}

// Key returns the month key of p.
func (p Period) Key() domain.MonthKey {
	return domain.MonthKeyOf(p.Month)
}

func (p Period) String() string {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Before reports whether p precedes q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// totals holds bucket magnitudes.
type totals struct {
	revenue  decimal.Decimal
	costs    decimal.Decimal
	expenses decimal.Decimal
}

// dec converts an amount. NaN and infinities count as zero.
func dec(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func (t *totals) add(b classify.Bucket, amount float64) {
	v := dec(amount).Abs()
	switch b {
	case classify.BucketRevenue:
		t.revenue = t.revenue.Add(v)
	case classify.BucketCost:
		t.costs = t.costs.Add(v)
	case classify.BucketExpense:
		t.expenses = t.expenses.Add(v)
	}
}

func (t totals) grossProfit() decimal.Decimal { return t.revenue.Sub(t.costs) }
func (t totals) netProfit() decimal.Decimal   { return t.grossProfit().Sub(t.expenses) }

var hundred = decimal.NewFromInt(100)

// margin returns net/revenue as a percentage, 0 without revenue.
func margin(net, revenue decimal.Decimal) float64 {
	if !revenue.IsPositive() {
		return 0
	}
	return net.Div(revenue).Mul(hundred).InexactFloat64()
}

var defaultAggregator = New()

// Summarize computes the summary with the default aggregator.
func Summarize(records []domain.FinancialRecord) Summary {
	return defaultAggregator.Summarize(records)
}

// PivotMonthly computes the monthly statement with the default aggregator.
func PivotMonthly(records []domain.FinancialRecord) []PivotRow {
	return defaultAggregator.PivotMonthly(records)
}

// PivotByCategory computes the category pivot with the default aggregator.
func PivotByCategory(records []domain.FinancialRecord) []PivotRow {
	return defaultAggregator.PivotByCategory(records)
}
