package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/google/go-cmp/cmp"
)

type mockLoader struct {
	records map[string][]domain.FinancialRecord
	err     error
	owners  []string
}

func (m *mockLoader) Records(_ context.Context, owner string) ([]domain.FinancialRecord, error) {
	m.owners = append(m.owners, owner)
	return m.records[owner], m.err
}

func record(category string, amount float64, date string, status domain.Status) domain.FinancialRecord {
	d, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	typ := domain.TypeExpense
	if amount > 0 {
		typ = domain.TypeRevenue
	}
	return domain.FinancialRecord{
		Type:            typ,
		Status:          status,
		Description:     category,
		Category:        category,
		EffectiveDate:   d,
		EffectiveAmount: amount,
	}
}

func fixture() *mockLoader {
	return &mockLoader{records: map[string][]domain.FinancialRecord{
		"acme": {
			record("1.1 Aluguel", 1000, "2024-03-05", domain.StatusPaid),
			record("2.1.1 Combustível", -200, "2024-03-10", domain.StatusPaid),
			record("2.2.1 Salário", -300, "2024-03-28", domain.StatusPaid),
			record("1.1 Aluguel", 500, "2024-04-02", domain.StatusPending),
		},
	}}
}

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReports_Summary(t *testing.T) {
	paidOnly := func(r domain.FinancialRecord) bool { return r.Status == domain.StatusPaid }

	tests := []struct {
		name        string
		base        dre.Predicate
		target      string
		wantRevenue float64
		wantNet     float64
	}{
		{"all records", nil, "/api/dre/summary?owner=acme", 1500, 1000},
		{"period", nil, "/api/dre/summary?owner=acme&period=2024-04", 500, 500},
		{"status filter", nil, "/api/dre/summary?owner=acme&status=Pago", 1000, 500},
		{"base predicate", paidOnly, "/api/dre/summary?owner=acme", 1000, 500},
		{"base and period", paidOnly, "/api/dre/summary?owner=acme&period=2024-04", 0, 0},
		{"unknown owner", nil, "/api/dre/summary?owner=nobody", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReportsHandler(fixture(), nil, tt.base)
			rec := serve(h.Summary, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}

			var resp struct {
				Summary    dre.Summary         `json:"summary"`
				Comparison []dre.ComparisonBar `json:"comparison"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Summary.GrossRevenue != tt.wantRevenue || resp.Summary.NetProfit != tt.wantNet {
				t.Errorf("summary = %+v, want revenue %v net %v", resp.Summary, tt.wantRevenue, tt.wantNet)
			}
			if len(resp.Comparison) != 3 {
				t.Errorf("comparison has %d bars, want 3", len(resp.Comparison))
			}
		})
	}
}

func TestReports_Monthly(t *testing.T) {
	h := NewReportsHandler(fixture(), dre.New(), nil)

	rec := serve(h.Monthly, "/api/dre/monthly?owner=acme")
	var resp struct {
		Rows []dre.PivotRow `json:"rows"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(resp.Rows))
	}
	if got := resp.Rows[0].Value("abr"); got != 500 {
		t.Errorf("abr revenue = %v, want 500", got)
	}

	rec = serve(h.Monthly, "/api/dre/monthly?owner=acme&by=year")
	var years struct {
		Years []dre.YearPivot `json:"years"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&years); err != nil {
		t.Fatal(err)
	}
	if len(years.Years) != 1 || years.Years[0].Year != 2024 {
		t.Errorf("years = %+v", years.Years)
	}

	if rec := serve(h.Monthly, "/api/dre/monthly?by=week"); rec.Code != http.StatusBadRequest {
		t.Errorf("by=week status = %d, want 400", rec.Code)
	}
}

func TestReports_Views(t *testing.T) {
	h := NewReportsHandler(fixture(), nil, nil)

	var cats struct {
		Rows []dre.PivotRow `json:"rows"`
	}
	json.NewDecoder(serve(h.Categories, "/api/dre/categories?owner=acme").Body).Decode(&cats)
	if n := len(cats.Rows); n == 0 || cats.Rows[n-1].Label != dre.LabelGrandTotal {
		t.Errorf("category rows = %+v", cats.Rows)
	}

	var breakdown struct {
		Groups []dre.GroupTotal `json:"groups"`
	}
	json.NewDecoder(serve(h.Breakdown, "/api/dre/breakdown?owner=acme").Body).Decode(&breakdown)
	if len(breakdown.Groups) == 0 || breakdown.Groups[0].Value != 1500 {
		t.Errorf("breakdown = %+v", breakdown.Groups)
	}

	var evolution struct {
		Points []dre.EvolutionPoint `json:"points"`
	}
	json.NewDecoder(serve(h.Evolution, "/api/dre/evolution?owner=acme").Body).Decode(&evolution)
	want := []dre.EvolutionPoint{
		{Month: "2024-03", Revenue: 1000, Profit: 500},
		{Month: "2024-04", Revenue: 500, Profit: 500},
	}
	if diff := cmp.Diff(want, evolution.Points); diff != "" {
		t.Errorf("evolution mismatch (-want +got):\n%s", diff)
	}

	var recon dre.Reconciliation
	json.NewDecoder(serve(h.Reconcile, "/api/dre/reconcile?owner=acme").Body).Decode(&recon)
	if recon.Mismatched || len(recon.Months) != 2 {
		t.Errorf("reconciliation = %+v", recon)
	}
}

func TestReports_ListRecords(t *testing.T) {
	loader := fixture()
	h := NewReportsHandler(loader, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/records?q=aluguel", nil)
	req.Header.Set("X-Owner", "acme")
	rec := httptest.NewRecorder()
	h.ListRecords(rec, req)

	var resp struct {
		Count      int      `json:"count"`
		Total      int      `json:"total"`
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || resp.Total != 4 || len(resp.Categories) != 3 {
		t.Errorf("response = %+v", resp)
	}
	if diff := cmp.Diff([]string{"acme"}, loader.owners); diff != "" {
		t.Errorf("owners mismatch (-want +got):\n%s", diff)
	}
}

func TestReports_Errors(t *testing.T) {
	h := NewReportsHandler(fixture(), nil, nil)
	if rec := serve(h.Summary, "/api/dre/summary?from=05/03/2024"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}
	if rec := serve(h.Summary, "/api/dre/summary?period=2024-Q9"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad period status = %d, want 400", rec.Code)
	}

	failing := NewReportsHandler(&mockLoader{err: errors.New("db down")}, nil, nil)
	if rec := serve(failing.Summary, "/api/dre/summary"); rec.Code != http.StatusInternalServerError {
		t.Errorf("load failure status = %d, want 500", rec.Code)
	}
}
