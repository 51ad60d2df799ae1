package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"

	"github.com/dvloznov/dre-engine/internal/app"
	"github.com/dvloznov/dre-engine/internal/config"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/dvloznov/dre-engine/internal/filter"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/report"
	"github.com/dvloznov/dre-engine/internal/store/backend"
)

// reportOptions are the flags shared by every command that aggregates
// records.
type reportOptions struct {
	config   *string
	file     string
	owner    string
	from     string
	to       string
	status   string
	category string
	search   string
	period   string
	asJSON   bool
}

func (o *reportOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.file, "file", "", "Spreadsheet to read instead of the record store (path, gs://, drive://)")
	fs.StringVar(&o.owner, "owner", "", "Record owner in the store (default: store.owner)")
	fs.StringVar(&o.from, "from", "", "First settlement date, YYYY-MM-DD")
	fs.StringVar(&o.to, "to", "", "Last settlement date, YYYY-MM-DD")
	fs.StringVar(&o.status, "status", "", "Comma-separated statuses")
	fs.StringVar(&o.category, "category", "", "Exact category")
	fs.StringVar(&o.search, "q", "", "Text searched in description, contact and legal name")
	fs.StringVar(&o.period, "period", "", "YYYY-MM, YYYY-Qn or YYYY")
	fs.BoolVar(&o.asJSON, "json", false, "Print JSON instead of a table")
}

func (o *reportOptions) criteria() (filter.Criteria, error) {
	v := url.Values{}
	for key, val := range map[string]string{
		"from":     o.from,
		"to":       o.to,
		"status":   o.status,
		"category": o.category,
		"q":        o.search,
		"period":   o.period,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return filter.FromQuery(v)
}

// reportRun holds what a report command needs after flag parsing.
type reportRun struct {
	ctx     context.Context
	cfg     *config.Config
	agg     *dre.Aggregator
	records []domain.FinancialRecord
	asJSON  bool
}

// prepareReport parses args, loads the records and builds an aggregator
// restricted to the configured statuses and the filter flags. extra
// registers command-specific flags.
func prepareReport(ctx context.Context, name string, args []string, extra func(*flag.FlagSet)) (*reportRun, error) {
	fs, configPath := newFlagSet(name)
	opts := &reportOptions{config: configPath}
	opts.register(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	criteria, err := opts.criteria()
	if err != nil {
		return nil, err
	}

	ctx, cfg, err := setup(ctx, *opts.config)
	if err != nil {
		return nil, err
	}

	agg, base, err := app.NewAggregator(cfg)
	if err != nil {
		return nil, err
	}
	agg = agg.With(dre.WithFilter(dre.And(base, criteria.Predicate())))

	records, err := loadRecords(ctx, cfg, opts.file, opts.owner)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Debug().Int("records", len(records)).Msg("records loaded")

	return &reportRun{ctx: ctx, cfg: cfg, agg: agg, records: records, asJSON: opts.asJSON}, nil
}

// loadRecords parses file when given, and reads the record store otherwise.
func loadRecords(ctx context.Context, cfg *config.Config, file, owner string) ([]domain.FinancialRecord, error) {
	if file != "" {
		sources := app.NewSources(cfg)
		defer sources.Close()

		in, err := app.NewIngestor(cfg)
		if err != nil {
			return nil, err
		}
		f, err := sources.Fetcher().Fetch(ctx, file)
		if err != nil {
			return nil, err
		}
		return in.Parse(ctx, f.Data, f.Name, f.ContentType)
	}

	s, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadAll(ctx, ownerOr(owner, cfg))
}

func ownerOr(owner string, cfg *config.Config) string {
	if owner != "" {
		return owner
	}
	return cfg.Store.Owner
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSummary(ctx context.Context, args []string, out io.Writer) error {
	r, err := prepareReport(ctx, "summary", args, nil)
	if err != nil {
		return err
	}

	s := r.agg.Summarize(r.records)
	if r.asJSON {
		return writeJSON(out, map[string]interface{}{
			"summary":    s,
			"comparison": s.Comparison(),
		})
	}
	return report.WriteSummary(out, s)
}

func runPivot(ctx context.Context, args []string, out io.Writer) error {
	var byYear bool
	r, err := prepareReport(ctx, "pivot", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&byYear, "by-year", false, "One statement per calendar year instead of folding years")
	})
	if err != nil {
		return err
	}

	if !byYear {
		rows := r.agg.PivotMonthly(r.records)
		if r.asJSON {
			return writeJSON(out, rows)
		}
		return report.WritePivot(out, rows)
	}

	years := r.agg.PivotMonthlyByYear(r.records)
	if r.asJSON {
		return writeJSON(out, years)
	}
	for i, y := range years {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %d ==\n", y.Year)
		if err := report.WritePivot(out, y.Rows); err != nil {
			return err
		}
	}
	return nil
}

func runCategories(ctx context.Context, args []string, out io.Writer) error {
	r, err := prepareReport(ctx, "categories", args, nil)
	if err != nil {
		return err
	}

	rows := r.agg.PivotByCategory(r.records)
	if r.asJSON {
		return writeJSON(out, rows)
	}
	return report.WritePivot(out, rows)
}

func runBreakdown(ctx context.Context, args []string, out io.Writer) error {
	r, err := prepareReport(ctx, "breakdown", args, nil)
	if err != nil {
		return err
	}

	groups := r.agg.Breakdown(r.records)
	if r.asJSON {
		return writeJSON(out, groups)
	}
	return report.WriteBreakdown(out, groups)
}

func runEvolution(ctx context.Context, args []string, out io.Writer) error {
	r, err := prepareReport(ctx, "evolution", args, nil)
	if err != nil {
		return err
	}

	points := r.agg.Evolution(r.records)
	if r.asJSON {
		return writeJSON(out, points)
	}
	return report.WriteEvolution(out, points)
}

func runReconcile(ctx context.Context, args []string, out io.Writer) error {
	r, err := prepareReport(ctx, "reconcile", args, nil)
	if err != nil {
		return err
	}

	rec := r.agg.Reconcile(r.records)
	if r.asJSON {
		return writeJSON(out, rec)
	}
	return report.WriteReconciliation(out, rec)
}
