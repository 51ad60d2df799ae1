// Package api exposes spreadsheet imports and DRE reports over HTTP.
package api

import (
	"net/http"

	"github.com/dvloznov/dre-engine/internal/api/handlers"
	"github.com/dvloznov/dre-engine/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Imports *handlers.ImportsHandler
	Preview *handlers.PreviewHandler
	Reports *handlers.ReportsHandler
}

// NewRouter registers every route and wraps the mux in the middleware
// chain.
func NewRouter(h Handlers, allowedOrigins []string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /api/imports", h.Imports.CreateImport)
	mux.HandleFunc("GET /api/imports", h.Imports.ListImports)
	mux.HandleFunc("GET /api/imports/{id}", h.Imports.GetImport)
	mux.HandleFunc("POST /api/preview", h.Preview.Preview)

	mux.HandleFunc("GET /api/records", h.Reports.ListRecords)
	mux.HandleFunc("GET /api/dre/summary", h.Reports.Summary)
	mux.HandleFunc("GET /api/dre/monthly", h.Reports.Monthly)
	mux.HandleFunc("GET /api/dre/categories", h.Reports.Categories)
	mux.HandleFunc("GET /api/dre/breakdown", h.Reports.Breakdown)
	mux.HandleFunc("GET /api/dre/evolution", h.Reports.Evolution)
	mux.HandleFunc("GET /api/dre/reconcile", h.Reports.Reconcile)

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS(allowedOrigins),
	)
}
