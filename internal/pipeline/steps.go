package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/fields"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/normalize"
	"github.com/dvloznov/dre-engine/internal/sheets"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	// Inputs.
	Name        string
	ContentType string
	Data        []byte

	Kind    sheets.Kind
	Tables  []sheets.Table
	Rows    []fields.RawRow
	Records []domain.FinancialRecord

	// Dropped counts rows removed by FilterRowsStep, by reason.
	Dropped map[string]int
}

// Step 1: DetectFormatStep picks the reader from the file name or MIME type.
type DetectFormatStep struct{}

func (s *DetectFormatStep) Execute(ctx context.Context, state *PipelineState) error {
	kind, err := sheets.DetectKind(state.Name, state.ContentType)
	if err != nil {
		return err
	}
	state.Kind = kind
	return nil
}

// Step 2: ReadSheetsStep decodes the bytes into tables.
type ReadSheetsStep struct{}

func (s *ReadSheetsStep) Execute(ctx context.Context, state *PipelineState) error {
	tables, err := sheets.Read(state.Kind, state.Data)
	if err != nil {
		return err
	}
	state.Tables = tables

	log := logger.FromContext(ctx)
	for _, t := range tables {
		log.Debug().Str("sheet", t.Name).Int("rows", len(t.Rows)).Msg("sheet read")
	}
	return nil
}

// Step 3: BuildRowsStep turns every table into keyed rows. Row 0 of each
// table is the header; sheets are concatenated in order.
type BuildRowsStep struct{}

func (s *BuildRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	var rows []fields.RawRow
	usable := false

	for _, t := range state.Tables {
		if len(t.Rows) < 2 {
			continue
		}
		usable = true
		rows = append(rows, buildRows(t)...)
	}

	if !usable {
		return fmt.Errorf("%w: %d sheet(s) read", domain.ErrEmptySheet, len(state.Tables))
	}
	state.Rows = rows
	return nil
}

func buildRows(t sheets.Table) []fields.RawRow {
	headerLine := t.StartLine
	if headerLine < 1 {
		headerLine = 1
	}

	headers := make([]string, len(t.Rows[0]))
	for i, h := range t.Rows[0] {
		headers[i] = normalize.Text(h)
	}

	rows := make([]fields.RawRow, 0, len(t.Rows)-1)
	for i, cells := range t.Rows[1:] {
		row := fields.NewRawRow(t.Name, headerLine+i+1)
		for ci, h := range headers {
			if h == "" {
				continue
			}
			var v any
			if ci < len(cells) {
				v = cells[ci]
			}
			row.Set(h, v)
		}
		if !row.HasContent() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// Step 4: FilterRowsStep drops title, total and empty rows.
type FilterRowsStep struct {
	Filter *RowFilter
}

func (s *FilterRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	filter := s.Filter
	if filter == nil {
		filter = NewRowFilter(DefaultDenylist)
	}

	log := logger.FromContext(ctx)
	dropped := make(map[string]int)
	kept := make([]fields.RawRow, 0, len(state.Rows))
	for _, row := range state.Rows {
		if reason := filter.Reason(row); reason != "" {
			dropped[reason]++
			log.Debug().Str("sheet", row.Sheet).Int("line", row.Line).Str("reason", reason).Msg("row dropped")
			continue
		}
		kept = append(kept, row)
	}

	state.Dropped = dropped
	log.Info().Int("rows_in", len(state.Rows)).Int("rows_out", len(kept)).Interface("dropped", dropped).Msg("rows filtered")

	if len(kept) == 0 {
		return domain.ErrNoValidRecords
	}
	state.Rows = kept
	return nil
}

// Step 5: MapRecordsStep converts the surviving rows into records.
type MapRecordsStep struct {
	Mapper *Mapper
}

func (s *MapRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	mapper := s.Mapper
	if mapper == nil {
		mapper = NewMapper(nil, nil)
	}
	records, err := mapper.MapRows(ctx, state.Rows)
	if err != nil {
		return err
	}
	state.Records = records
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d: %w", i+1, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
