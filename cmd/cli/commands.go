package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/dvloznov/dre-engine/internal/app"
	"github.com/dvloznov/dre-engine/internal/importer"
	"github.com/dvloznov/dre-engine/internal/jobs"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/notionsync"
	"github.com/dvloznov/dre-engine/internal/report"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/dvloznov/dre-engine/internal/store/backend"
)

func runImport(ctx context.Context, args []string, out io.Writer) error {
	fs, configPath := newFlagSet("import")
	file := fs.String("file", "", "Spreadsheet to import (path, gs://, drive://)")
	owner := fs.String("owner", "", "Record owner (default: store.owner)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	ctx, cfg, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	sources := app.NewSources(cfg)
	defer sources.Close()

	in, err := app.NewIngestor(cfg)
	if err != nil {
		return err
	}

	s, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	job := &jobs.ImportJob{Owner: ownerOr(*owner, cfg), SourceURI: *file}
	log.Info().Str("source", job.SourceURI).Str("owner", store.Owner(job.Owner)).Msg("Starting import")

	if err := importer.NewService(sources.Fetcher(), in, s, nil).Import(ctx, job); err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %d records for %s in %d batches.\n",
		job.RecordsParsed, store.Owner(job.Owner), job.Progress.Batches)
	return nil
}

func runLoad(ctx context.Context, args []string, out io.Writer) error {
	fs, configPath := newFlagSet("load")
	owner := fs.String("owner", "", "Record owner (default: store.owner)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cfg, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}

	records, err := loadRecords(ctx, cfg, "", *owner)
	if err != nil {
		return err
	}
	return writeJSON(out, records)
}

func runExport(ctx context.Context, args []string, out io.Writer) error {
	var path, title string
	r, err := prepareReport(ctx, "export", args, func(fs *flag.FlagSet) {
		fs.StringVar(&path, "out", "", "Output .xlsx path")
		fs.StringVar(&title, "title", "DRE", "Title written on the summary sheet")
	})
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("-out is required")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := report.Build(title, r.agg, r.records).WriteXLSX(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s (%d records).\n", path, len(r.records))
	return nil
}

func runPublishNotion(ctx context.Context, args []string, out io.Writer) error {
	var token, databaseID string
	var dryRun bool
	r, err := prepareReport(ctx, "publish-notion", args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "notion-token", "", "Notion API token (default: notion.token)")
		fs.StringVar(&databaseID, "notion-db-id", "", "Notion database ID (default: notion.database_id)")
		fs.BoolVar(&dryRun, "dry-run", false, "Preview changes without writing to Notion")
	})
	if err != nil {
		return err
	}

	if token == "" {
		token = r.cfg.Notion.Token
	}
	if databaseID == "" {
		databaseID = r.cfg.Notion.DatabaseID
	}
	if token == "" || databaseID == "" {
		return fmt.Errorf("a Notion token and database ID are required")
	}

	res, err := notionsync.PublishMonthlyDRE(r.ctx, notionsync.NewClient(token), databaseID,
		r.agg.PivotMonthlyByYear(r.records), dryRun)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Notion: %d created, %d updated, %d archived, %d failed.\n",
		res.Created, res.Updated, res.Archived, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d pages failed", res.Failed)
	}
	return nil
}

func runUpload(ctx context.Context, args []string, out io.Writer) error {
	fs, configPath := newFlagSet("upload")
	file := fs.String("file", "", "Local spreadsheet to upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	ctx, cfg, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is not configured")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	sources := app.NewSources(cfg)
	defer sources.Close()
	gcs, err := sources.GCS(ctx)
	if err != nil {
		return err
	}

	name := filepath.Base(*file)
	uri, err := gcs.UploadBytes(ctx, name, mime.TypeByExtension(filepath.Ext(name)), data)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Uploaded %s to %s\n", *file, uri)
	return nil
}

func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	fs, configPath := newFlagSet("migrate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cfg, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}

	s, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Schema ready for the %s store.\n", cfg.Store.Driver)
	return nil
}
