package handlers

import (
	"context"
	"net/http"

	"github.com/dvloznov/dre-engine/internal/api/middleware"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/dvloznov/dre-engine/internal/filter"
	"github.com/dvloznov/dre-engine/internal/logger"
)

// RecordLoader loads an owner's stored records.
type RecordLoader interface {
	Records(ctx context.Context, owner string) ([]domain.FinancialRecord, error)
}

// ReportsHandler serves the stored records and the DRE views computed from
// them. Every endpoint accepts the filter query parameters: from, to,
// status, category, q and period.
type ReportsHandler struct {
	records RecordLoader
	agg     *dre.Aggregator
	base    dre.Predicate
}

// NewReportsHandler creates a reports handler. base restricts every view,
// for example to settled statuses; nil accepts all records.
func NewReportsHandler(records RecordLoader, agg *dre.Aggregator, base dre.Predicate) *ReportsHandler {
	if agg == nil {
		agg = dre.New()
	}
	if base == nil {
		base = dre.All
	}
	return &ReportsHandler{records: records, agg: agg, base: base}
}

// load reads the owner's records and the request criteria. On failure it
// has already written the response.
func (h *ReportsHandler) load(w http.ResponseWriter, r *http.Request) ([]domain.FinancialRecord, filter.Criteria, bool) {
	ctx := r.Context()

	criteria, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, filter.Criteria{}, false
	}

	owner := ownerOf(r, "")
	records, err := h.records.Records(ctx, owner)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("owner", owner).Msg("Failed to load records")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load records")
		return nil, filter.Criteria{}, false
	}
	return records, criteria, true
}

func (h *ReportsHandler) aggregator(c filter.Criteria) *dre.Aggregator {
	return h.agg.With(dre.WithFilter(dre.And(h.base, c.Predicate())))
}

// ListRecords handles GET /api/records
func (h *ReportsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, criteria, ok := h.load(w, r)
	if !ok {
		return
	}

	selected := filter.Apply(records, criteria.Predicate())
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records":    selected,
		"count":      len(selected),
		"total":      len(records),
		"categories": filter.Categories(records),
	})
}

// Summary handles GET /api/dre/summary
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	records, criteria, ok := h.load(w, r)
	if !ok {
		return
	}

	s := h.aggregator(criteria).Summarize(records)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period":     criteria.Period.String(),
		"summary":    s,
		"comparison": s.Comparison(),
	})
}

// Monthly handles GET /api/dre/monthly. With by=year each calendar year
// gets its own statement; otherwise years fold into twelve month columns.
func (h *ReportsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	records, criteria, ok := h.load(w, r)
	if !ok {
		return
	}

	agg := h.aggregator(criteria)
	switch by := r.URL.Query().Get("by"); by {
	case "year":
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"years": agg.PivotMonthlyByYear(records),
		})
	case "", "month":
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"months": domain.Months,
			"rows":   agg.PivotMonthly(records),
		})
	default:
		middleware.WriteError(w, http.StatusBadRequest, "by must be month or year")
	}
}

// Categories handles GET /api/dre/categories
func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	records, criteria, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"months": domain.Months,
		"rows":   h.aggregator(criteria).PivotByCategory(records),
	})
}

// Breakdown handles GET /api/dre/breakdown
func (h *ReportsHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	records, criteria, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"groups": h.aggregator(criteria).Breakdown(records),
	})
}

// Evolution handles GET /api/dre/evolution
func (h *ReportsHandler) Evolution(w http.ResponseWriter, r *http.Request) {
	records, criteria, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"points": h.aggregator(criteria).Evolution(records),
	})
}

// Reconcile handles GET /api/dre/reconcile
func (h *ReportsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	records, criteria, ok := h.load(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, h.aggregator(criteria).Reconcile(records))
}
