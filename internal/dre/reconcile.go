package dre

import (
	"sort"

	"github.com/dvloznov/dre-engine/internal/classify"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// MonthCheck compares the magnitude and signed profit of one month.
type MonthCheck struct {
	Period Period `json:"period"`
	// MagnitudeProfit is revenue minus costs minus expenses, all taken as
	// magnitudes, as the statement computes it.
	MagnitudeProfit float64 `json:"magnitudeProfit"`
	// SignedProfit sums the classified amounts with their source sign.
	SignedProfit float64 `json:"signedProfit"`
	Difference   float64 `json:"difference"`
}

// CategoryCount aggregates the records of one category.
type CategoryCount struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
}

// TypeMismatch counts records whose type disagrees with their category
// branch: revenue on 2.x or expense on 1.x.
type TypeMismatch struct {
	Type     domain.RecordType `json:"type"`
	Category string            `json:"category"`
	Count    int               `json:"count"`
}

// Reconciliation explains where the statement can disagree with a signed
// spreadsheet pivot.
type Reconciliation struct {
	Months []MonthCheck `json:"months"`
	// PositiveOutflows are 2.x categories holding positive amounts. The
	// statement counts them as outflows anyway.
	PositiveOutflows []CategoryCount `json:"positiveOutflows"`
	// Unclassified are non-empty categories that reach no DRE line.
	Unclassified   []CategoryCount `json:"unclassified"`
	TypeMismatches []TypeMismatch  `json:"typeMismatches"`
	// Statuses counts records per status label as read from the file.
	Statuses map[string]int `json:"statuses"`
	// Mismatched reports whether any month differs.
	Mismatched bool `json:"mismatched"`
}

type catAcc struct {
	count int
	sum   decimal.Decimal
}

// Reconcile audits records against both profit conventions.
func (a *Aggregator) Reconcile(records []domain.FinancialRecord) Reconciliation {
	type monthAcc struct {
		magnitude totals
		signed    decimal.Decimal
	}
	months := make(map[Period]*monthAcc)
	positive := make(map[string]*catAcc)
	unclassified := make(map[string]*catAcc)
	mismatches := make(map[TypeMismatch]int)
	statuses := make(map[string]int)

	a.each(records, func(r domain.FinancialRecord) {
		category := trimCategory(r.Category)
		bucket := a.rules.Classify(r.Category)
		amount := dec(r.EffectiveAmount)

		p := PeriodOf(r)
		m := months[p]
		if m == nil {
			m = &monthAcc{}
			months[p] = m
		}
		m.magnitude.add(bucket, r.EffectiveAmount)
		if bucket != classify.BucketUnclassified {
			m.signed = m.signed.Add(amount)
		}

		if classify.IsOutflowCode(category) && amount.IsPositive() {
			accumulate(positive, category, amount)
		}
		if category != "" && bucket == classify.BucketUnclassified {
			accumulate(unclassified, category, amount)
		}

		switch {
		case r.Type == domain.TypeRevenue && classify.IsOutflowCode(category):
			mismatches[TypeMismatch{Type: r.Type, Category: category}]++
		case r.Type != domain.TypeRevenue && classify.IsRevenueCode(category):
			mismatches[TypeMismatch{Type: r.Type, Category: category}]++
		}

		label := r.RawStatus
		if label == "" {
			label = string(r.Status)
		}
		statuses[label]++
	})

	out := Reconciliation{Statuses: statuses}

	periods := make([]Period, 0, len(months))
	for p := range months {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	for _, p := range periods {
		m := months[p]
		magnitude := m.magnitude.netProfit()
		diff := magnitude.Sub(m.signed)
		if !diff.IsZero() {
			out.Mismatched = true
		}
		out.Months = append(out.Months, MonthCheck{
			Period:          p,
			MagnitudeProfit: magnitude.InexactFloat64(),
			SignedProfit:    m.signed.InexactFloat64(),
			Difference:      diff.InexactFloat64(),
		})
	}

	out.PositiveOutflows = categoryCounts(positive)
	out.Unclassified = categoryCounts(unclassified)

	for k, n := range mismatches {
		k.Count = n
		out.TypeMismatches = append(out.TypeMismatches, k)
	}
	sort.Slice(out.TypeMismatches, func(i, j int) bool {
		x, y := out.TypeMismatches[i], out.TypeMismatches[j]
		if x.Category != y.Category {
			return x.Category < y.Category
		}
		return x.Type < y.Type
	})
	return out
}

func accumulate(m map[string]*catAcc, category string, amount decimal.Decimal) {
	acc := m[category]
	if acc == nil {
		acc = &catAcc{}
		m[category] = acc
	}
	acc.count++
	acc.sum = acc.sum.Add(amount)
}

func categoryCounts(m map[string]*catAcc) []CategoryCount {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sortNatural(names)

	out := make([]CategoryCount, 0, len(names))
	for _, name := range names {
		acc := m[name]
		out = append(out, CategoryCount{Category: name, Count: acc.count, Sum: acc.sum.InexactFloat64()})
	}
	return out
}

// Reconcile audits records with the default aggregator.
func Reconcile(records []domain.FinancialRecord) Reconciliation {
	return defaultAggregator.Reconcile(records)
}
