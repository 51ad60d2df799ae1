package filter

import (
	"net/url"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/google/go-cmp/cmp"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func records() []domain.FinancialRecord {
	return []domain.FinancialRecord{
		{Description: "Aluguel sala", Category: "1.1 Aluguel", Status: domain.StatusPaid, EffectiveDate: date("2024-01-31"), EffectiveAmount: 1000},
		{Description: "Posto", Contact: "Shell", Category: "2.1.1 Combustível", Status: domain.StatusPaid, RawStatus: "Conciliado", EffectiveDate: date("2024-02-01"), EffectiveAmount: -200},
		{Description: "Folha", LegalName: "ACME LTDA", Category: "2.2.1 Salário", Status: domain.StatusPending, EffectiveDate: date("2024-04-10"), EffectiveAmount: -300},
		{Description: "Sem data", Category: "1.1 Aluguel", Status: domain.StatusOverdue},
	}
}

func descriptions(rs []domain.FinancialRecord) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Description)
	}
	return out
}

func TestCriteria_Match(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"zero matches all", Criteria{}, []string{"Aluguel sala", "Posto", "Folha", "Sem data"}},
		{"inclusive range", Criteria{From: date("2024-01-31"), To: date("2024-02-01")}, []string{"Aluguel sala", "Posto"}},
		{"open ended", Criteria{From: date("2024-02-01")}, []string{"Posto", "Folha"}},
		{"canonical status", Criteria{Statuses: []string{"pago"}}, []string{"Aluguel sala", "Posto"}},
		{"raw status", Criteria{Statuses: []string{"CONCILIADO"}}, []string{"Posto"}},
		{"several statuses", Criteria{Statuses: []string{"Pendente", "Atrasado"}}, []string{"Folha", "Sem data"}},
		{"category", Criteria{Category: "1.1 Aluguel"}, []string{"Aluguel sala", "Sem data"}},
		{"search contact", Criteria{Search: "shell"}, []string{"Posto"}},
		{"search legal name", Criteria{Search: "acme"}, []string{"Folha"}},
		{"monthly", Criteria{Period: Period{Kind: PeriodMonthly, Year: 2024, Month: 2}}, []string{"Posto"}},
		{"quarterly", Criteria{Period: Period{Kind: PeriodQuarterly, Year: 2024, Quarter: 1}}, []string{"Aluguel sala", "Posto"}},
		{"annual", Criteria{Period: Period{Kind: PeriodAnnual, Year: 2024}}, []string{"Aluguel sala", "Posto", "Folha"}},
		{"combined", Criteria{Statuses: []string{"Pago"}, Period: Period{Kind: PeriodQuarterly, Year: 2024, Quarter: 1}, Search: "posto"}, []string{"Posto"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := descriptions(Apply(records(), tt.criteria.Predicate()))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{in: "", want: Period{}},
		{in: "all", want: Period{}},
		{in: "2024-03", want: Period{Kind: PeriodMonthly, Year: 2024, Month: 3}},
		{in: "2024-Q2", want: Period{Kind: PeriodQuarterly, Year: 2024, Quarter: 2}},
		{in: "2023", want: Period{Kind: PeriodAnnual, Year: 2023}},
		{in: "2024-13", wantErr: true},
		{in: "2024-Q5", wantErr: true},
		{in: "março", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePeriod(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if tt.in != "" && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestFromQuery(t *testing.T) {
	v := url.Values{
		"from":     {"2024-01-01"},
		"to":       {"2024-03-31"},
		"status":   {"Pago, Conciliado", "Atrasado"},
		"category": {"1.1 Aluguel"},
		"q":        {" sala "},
		"period":   {"2024-Q1"},
	}

	got, err := FromQuery(v)
	if err != nil {
		t.Fatalf("FromQuery() unexpected error: %v", err)
	}
	want := Criteria{
		From:     date("2024-01-01"),
		To:       date("2024-03-31"),
		Statuses: []string{"Pago", "Conciliado", "Atrasado"},
		Category: "1.1 Aluguel",
		Search:   "sala",
		Period:   Period{Kind: PeriodQuarterly, Year: 2024, Quarter: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromQuery() mismatch (-want +got):\n%s", diff)
	}

	if _, err := FromQuery(url.Values{"from": {"31/01/2024"}}); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if _, err := FromQuery(url.Values{"period": {"2024-XX"}}); err == nil {
		t.Error("expected error for bad period")
	}
}

func TestPredicate_DrivesAggregation(t *testing.T) {
	c := Criteria{Period: Period{Kind: PeriodMonthly, Year: 2024, Month: 2}}
	s := dre.New(dre.WithFilter(c.Predicate())).Summarize(records())
	if s.GrossRevenue != 0 || s.Costs != 200 {
		t.Errorf("Summarize() = %+v, want only February", s)
	}
}

func TestCategories(t *testing.T) {
	got := Categories(records())
	want := []string{"1.1 Aluguel", "2.1.1 Combustível", "2.2.1 Salário"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Categories() mismatch (-want +got):\n%s", diff)
	}
}
