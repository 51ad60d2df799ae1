// Package filter selects records the way the dashboard filters do: by date
// range, status, category, free text and reporting period.
package filter

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
)

// Criteria is a conjunction of record filters. Zero fields match everything.
type Criteria struct {
	// From and To bound the settlement date, both inclusive.
	From civil.Date
	To   civil.Date
	// Statuses match the canonical or the raw status, ignoring case.
	Statuses []string
	// Category must equal the record category exactly.
	Category string
	// Search is matched, ignoring case, against description, contact and
	// legal name.
	Search string
	Period Period
}

// IsZero reports whether c matches every record.
func (c Criteria) IsZero() bool {
	return !c.From.IsValid() && !c.To.IsValid() && len(c.Statuses) == 0 &&
		c.Category == "" && c.Search == "" && c.Period.Kind == PeriodAll
}

// Match reports whether r satisfies every criterion.
func (c Criteria) Match(r domain.FinancialRecord) bool {
	if c.From.IsValid() && r.EffectiveDate.Before(c.From) {
		return false
	}
	if c.To.IsValid() && r.EffectiveDate.After(c.To) {
		return false
	}
	if len(c.Statuses) > 0 && !matchStatus(c.Statuses, r) {
		return false
	}
	if c.Category != "" && r.Category != c.Category {
		return false
	}
	if c.Search != "" && !matchSearch(strings.ToLower(c.Search), r) {
		return false
	}
	return c.Period.Match(r.EffectiveDate)
}

// Predicate returns c as an aggregation predicate.
func (c Criteria) Predicate() dre.Predicate {
	return c.Match
}

func matchStatus(statuses []string, r domain.FinancialRecord) bool {
	for _, s := range statuses {
		if strings.EqualFold(s, string(r.Status)) || (r.RawStatus != "" && strings.EqualFold(s, r.RawStatus)) {
			return true
		}
	}
	return false
}

func matchSearch(needle string, r domain.FinancialRecord) bool {
	for _, field := range []string{r.Description, r.Contact, r.LegalName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// PeriodKind is the granularity of a reporting period.
type PeriodKind string

const (
	PeriodAll       PeriodKind = ""
	PeriodMonthly   PeriodKind = "monthly"
	PeriodQuarterly PeriodKind = "quarterly"
	PeriodAnnual    PeriodKind = "annual"
)

// Period is a month, quarter or year.
type Period struct {
	Kind    PeriodKind
	Year    int
	Month   int // 1-12 for monthly
	Quarter int // 1-4 for quarterly
}

var (
	monthlyPeriod   = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	quarterlyPeriod = regexp.MustCompile(`^(\d{4})-[Qq]([1-4])$`)
	annualPeriod    = regexp.MustCompile(`^(\d{4})$`)
)

// ParsePeriod reads "YYYY-MM", "YYYY-Qn" or "YYYY". Empty and "all" match
// every date.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return Period{}, nil
	}
	if m := monthlyPeriod.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return Period{}, fmt.Errorf("ParsePeriod: month out of range in %q", s)
		}
		return Period{Kind: PeriodMonthly, Year: year, Month: month}, nil
	}
	if m := quarterlyPeriod.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return Period{Kind: PeriodQuarterly, Year: year, Quarter: q}, nil
	}
	if m := annualPeriod.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return Period{Kind: PeriodAnnual, Year: year}, nil
	}
	return Period{}, fmt.Errorf("ParsePeriod: %q is not YYYY-MM, YYYY-Qn or YYYY", s)
}

// Match reports whether d falls in p. Invalid dates only match PeriodAll.
func (p Period) Match(d civil.Date) bool {
	if p.Kind == PeriodAll {
		return true
	}
	if !d.IsValid() || d.Year != p.Year {
		return false
	}
	switch p.Kind {
	case PeriodMonthly:
		return int(d.Month) == p.Month
	case PeriodQuarterly:
		return (int(d.Month)+2)/3 == p.Quarter
	}
	return true
}

func (p Period) String() string {
	switch p.Kind {
	case PeriodMonthly:
		return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
	case PeriodQuarterly:
		return fmt.Sprintf("%04d-Q%d", p.Year, p.Quarter)
	case PeriodAnnual:
		return fmt.Sprintf("%04d", p.Year)
	}
	return "all"
}

// FromQuery reads criteria from URL query parameters: from, to (YYYY-MM-DD),
// status (repeatable or comma separated), category, q and period.
func FromQuery(v url.Values) (Criteria, error) {
	var c Criteria
	var err error

	if s := v.Get("from"); s != "" {
		if c.From, err = civil.ParseDate(s); err != nil {
			return Criteria{}, fmt.Errorf("FromQuery: invalid from date: %w", err)
		}
	}
	if s := v.Get("to"); s != "" {
		if c.To, err = civil.ParseDate(s); err != nil {
			return Criteria{}, fmt.Errorf("FromQuery: invalid to date: %w", err)
		}
	}
	for _, s := range v["status"] {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				c.Statuses = append(c.Statuses, part)
			}
		}
	}
	c.Category = v.Get("category")
	c.Search = strings.TrimSpace(v.Get("q"))
	if c.Period, err = ParsePeriod(v.Get("period")); err != nil {
		return Criteria{}, fmt.Errorf("FromQuery: %w", err)
	}
	return c, nil
}

// Apply returns the records accepted by pred, in order.
func Apply(records []domain.FinancialRecord, pred dre.Predicate) []domain.FinancialRecord {
	out := make([]domain.FinancialRecord, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Categories lists the distinct non-empty categories, sorted.
func Categories(records []domain.FinancialRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.Category != "" {
			seen[r.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
