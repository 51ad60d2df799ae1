// Package app builds the engine's components from configuration for the
// command-line tools and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/dre-engine/internal/classify"
	"github.com/dvloznov/dre-engine/internal/config"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/dvloznov/dre-engine/internal/filestore"
	"github.com/dvloznov/dre-engine/internal/filter"
	"github.com/dvloznov/dre-engine/internal/jobs"
	"github.com/dvloznov/dre-engine/internal/pipeline"
)

// NewIngestor applies the ingest section.
func NewIngestor(cfg *config.Config) (*pipeline.Ingestor, error) {
	aliases, err := cfg.Ingest.Aliases()
	if err != nil {
		return nil, fmt.Errorf("NewIngestor: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLocation(cfg.Location()),
		pipeline.WithHeaderAliases(aliases),
	}
	if len(cfg.Ingest.Denylist) > 0 {
		opts = append(opts, pipeline.WithDenylist(cfg.Ingest.Denylist...))
	}
	return pipeline.NewIngestor(opts...), nil
}

// NewAggregator applies the classification and aggregation sections. The
// returned predicate is the configured status restriction; it is already
// installed on the aggregator and is returned for callers that combine it
// with request filters.
func NewAggregator(cfg *config.Config) (*dre.Aggregator, dre.Predicate, error) {
	var opts []dre.Option
	if path := cfg.Classification.RulesFile; path != "" {
		rules, groups, err := classify.LoadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("NewAggregator: %w", err)
		}
		opts = append(opts, dre.WithRules(rules), dre.WithGroups(groups))
	}

	base := dre.All
	if len(cfg.Aggregation.Statuses) > 0 {
		base = filter.Criteria{Statuses: cfg.Aggregation.Statuses}.Predicate()
	}
	opts = append(opts, dre.WithFilter(base))

	return dre.New(opts...), base, nil
}

// Sources resolves spreadsheet URIs. Cloud clients are created on first use
// so local-only runs need no credentials.
type Sources struct {
	cfg     *config.Config
	Uploads *filestore.Memory

	gcsOnce sync.Once
	gcs     *filestore.GCS
	gcsErr  error
	gcsConn *storage.Client

	driveOnce sync.Once
	drive     *filestore.Drive
	driveErr  error
}

// NewSources registers the file, mem, gs and drive schemes.
func NewSources(cfg *config.Config) *Sources {
	return &Sources{cfg: cfg, Uploads: filestore.NewMemory()}
}

// Fetcher returns a fetcher over every scheme.
func (s *Sources) Fetcher() *filestore.Fetcher {
	return filestore.NewFetcher(
		filestore.WithSource("mem", s.Uploads),
		filestore.WithSource("gs", filestore.SourceFunc(func(ctx context.Context, ref string) (filestore.File, error) {
			g, err := s.GCS(ctx)
			if err != nil {
				return filestore.File{}, err
			}
			return g.Fetch(ctx, ref)
		})),
		filestore.WithSource("drive", filestore.SourceFunc(func(ctx context.Context, ref string) (filestore.File, error) {
			d, err := s.Drive(ctx)
			if err != nil {
				return filestore.File{}, err
			}
			return d.Fetch(ctx, ref)
		})),
	)
}

// GCS returns the Cloud Storage source, which also archives uploads to
// storage.bucket. The client outlives ctx.
func (s *Sources) GCS(ctx context.Context) (*filestore.GCS, error) {
	s.gcsOnce.Do(func() {
		client, err := storage.NewClient(context.WithoutCancel(ctx))
		if err != nil {
			s.gcsErr = fmt.Errorf("creating storage client: %w", err)
			return
		}
		s.gcsConn = client
		s.gcs = filestore.NewGCS(client, s.cfg.Storage.Bucket, s.cfg.Storage.Prefix)
	})
	return s.gcs, s.gcsErr
}

// Drive returns the Google Drive source. The service outlives ctx.
func (s *Sources) Drive(ctx context.Context) (*filestore.Drive, error) {
	s.driveOnce.Do(func() {
		s.drive, s.driveErr = filestore.NewDrive(context.WithoutCancel(ctx), s.cfg.Drive.CredentialsFile)
	})
	return s.drive, s.driveErr
}

// Close releases the cloud clients that were opened.
func (s *Sources) Close() error {
	if s.gcsConn != nil {
		return s.gcsConn.Close()
	}
	return nil
}

// ReleaseUploads wraps handler so an uploaded file is dropped from memory
// once its job can no longer be retried.
func (s *Sources) ReleaseUploads(handler jobs.JobHandler) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ImportJob) error {
		err := handler(ctx, job)
		final := err == nil || errors.Is(err, jobs.ErrPermanent) || job.RetryCount >= job.MaxRetries
		if final && strings.HasPrefix(job.SourceURI, "mem://") {
			s.Uploads.Delete(job.SourceURI)
		}
		return err
	}
}
