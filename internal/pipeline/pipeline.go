// Package pipeline turns spreadsheet bytes into financial records.
package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/fields"
	"github.com/dvloznov/dre-engine/internal/logger"
)

// Ingestor parses CSV and workbook files. It holds no per-call state and is
// safe for concurrent use once built.
type Ingestor struct {
	mapper *Mapper
	filter *RowFilter
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithDenylist replaces the metadata row denylist.
func WithDenylist(words ...string) Option {
	return func(in *Ingestor) {
		in.filter = NewRowFilter(words)
	}
}

// WithMapper replaces the record mapper.
func WithMapper(m *Mapper) Option {
	return func(in *Ingestor) {
		in.mapper = m
	}
}

// WithLocation sets the calendar used for dates and for "now".
func WithLocation(loc *time.Location) Option {
	return func(in *Ingestor) {
		in.mapper.Location = loc
	}
}

// WithHeaderAliases adds exact header spellings per field.
func WithHeaderAliases(aliases map[fields.Field][]string) Option {
	return func(in *Ingestor) {
		for f, names := range aliases {
			in.mapper.Resolver.AddCandidates(f, names...)
		}
	}
}

// NewIngestor creates an ingestor with the default mapper and denylist.
func NewIngestor(opts ...Option) *Ingestor {
	in := &Ingestor{
		mapper: NewMapper(fields.NewResolver(), nil),
		filter: NewRowFilter(DefaultDenylist),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// NewIngestionPipeline creates the standard 5-step pipeline for ingesting spreadsheets.
func (in *Ingestor) NewIngestionPipeline() *Pipeline {
	return NewPipeline(
		&DetectFormatStep{},
		&ReadSheetsStep{},
		&BuildRowsStep{},
		&FilterRowsStep{Filter: in.filter},
		&MapRecordsStep{Mapper: in.mapper},
	)
}

// Parse ingests one file. name and contentType select the reader; either
// may be empty. Any failure returns no records.
func (in *Ingestor) Parse(ctx context.Context, data []byte, name, contentType string) ([]domain.FinancialRecord, error) {
	log := logger.FromContext(ctx).With().Str("file", name).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{Name: name, ContentType: contentType, Data: data}
	if err := in.NewIngestionPipeline().Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("ingestion failed")
		return nil, err
	}

	log.Info().Str("kind", string(state.Kind)).Int("records", len(state.Records)).Msg("ingestion completed")
	return state.Records, nil
}

var defaultIngestor = NewIngestor()

// Parse ingests one file with the default ingestor.
func Parse(ctx context.Context, data []byte, name, contentType string) ([]domain.FinancialRecord, error) {
	return defaultIngestor.Parse(ctx, data, name, contentType)
}
