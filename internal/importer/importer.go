// Package importer runs spreadsheet imports: fetch the file, ingest it and
// replace the owner's stored records.
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/filestore"
	"github.com/dvloznov/dre-engine/internal/jobs"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/pipeline"
	"github.com/dvloznov/dre-engine/internal/store"
)

// Fetcher reads a spreadsheet by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (filestore.File, error)
}

// Parser turns spreadsheet bytes into records.
type Parser interface {
	Parse(ctx context.Context, data []byte, name, contentType string) ([]domain.FinancialRecord, error)
}

// Service imports spreadsheets into a record store.
type Service struct {
	fetcher Fetcher
	parser  Parser
	records store.RecordStore
	jobs    jobs.JobStore
}

// NewService wires an import service. jobStore may be nil when progress is
// not tracked.
func NewService(fetcher Fetcher, parser Parser, records store.RecordStore, jobStore jobs.JobStore) *Service {
	if parser == nil {
		parser = pipeline.NewIngestor()
	}
	return &Service{fetcher: fetcher, parser: parser, records: records, jobs: jobStore}
}

// Import runs job to completion. Failures caused by the file itself are
// wrapped with jobs.ErrPermanent.
func (s *Service) Import(ctx context.Context, job *jobs.ImportJob) error {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("owner", store.Owner(job.Owner)).Logger()
	ctx = logger.WithContext(ctx, log)

	file, err := s.fetcher.Fetch(ctx, job.SourceURI)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) || errors.Is(err, filestore.ErrUnsupportedScheme) {
			err = jobs.Permanent(err)
		}
		return fmt.Errorf("Import: fetching source: %w", err)
	}
	name, contentType := file.Name, file.ContentType
	if job.FileName != "" {
		name = job.FileName
	}
	if job.ContentType != "" {
		contentType = job.ContentType
	}

	records, err := s.parser.Parse(ctx, file.Data, name, contentType)
	if err != nil {
		if domain.IsInputError(err) {
			err = jobs.Permanent(err)
		}
		return fmt.Errorf("Import: parsing %s: %w", name, err)
	}
	job.RecordsParsed = len(records)

	err = s.records.SaveAll(ctx, job.Owner, records, func(p store.Progress) {
		job.Progress = p
		if s.jobs != nil && job.JobID != "" {
			if err := s.jobs.UpdateProgress(ctx, job.JobID, p); err != nil {
				log.Warn().Err(err).Msg("progress not recorded")
			}
		}
	})
	if err != nil {
		return fmt.Errorf("Import: saving records: %w", err)
	}

	log.Info().Str("file", name).Int("records", len(records)).Msg("spreadsheet imported")
	return nil
}

// Handler adapts Import to a queue handler.
func (s *Service) Handler() jobs.JobHandler {
	return s.Import
}

// Preview parses data without storing anything.
func (s *Service) Preview(ctx context.Context, data []byte, name, contentType string) ([]domain.FinancialRecord, error) {
	records, err := s.parser.Parse(ctx, data, name, contentType)
	if err != nil {
		return nil, fmt.Errorf("Preview: %w", err)
	}
	return records, nil
}

// Records loads the owner's stored records.
func (s *Service) Records(ctx context.Context, owner string) ([]domain.FinancialRecord, error) {
	records, err := s.records.LoadAll(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("Records: %w", err)
	}
	return records, nil
}
