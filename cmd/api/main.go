package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/dre-engine/internal/api"
	"github.com/dvloznov/dre-engine/internal/api/handlers"
	"github.com/dvloznov/dre-engine/internal/app"
	"github.com/dvloznov/dre-engine/internal/config"
	"github.com/dvloznov/dre-engine/internal/importer"
	"github.com/dvloznov/dre-engine/internal/jobs/inmemory"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/store/backend"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config.yaml (default: ./config.yaml when present)")
		port       = flag.Int("port", 0, "HTTP server port (overrides server.port)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log, err := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctx := logger.WithContext(context.Background(), log)

	records, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer records.Close()

	sources := app.NewSources(cfg)
	defer sources.Close()

	var archive handlers.Archiver
	if cfg.Storage.Bucket != "" {
		gcs, err := sources.GCS(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		archive = gcs
	} else {
		log.Warn().Msg("No storage bucket configured - uploads will not be archived")
	}

	ingestor, err := app.NewIngestor(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid ingest configuration")
	}
	agg, base, err := app.NewAggregator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid classification configuration")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Server.QueueSize, cfg.Server.Workers, jobStore)
	service := importer.NewService(sources.Fetcher(), ingestor, records, jobStore)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	if err := jobQueue.Start(workerCtx, sources.ReleaseUploads(service.Handler())); err != nil {
		log.Fatal().Err(err).Msg("Failed to start import workers")
	}
	log.Info().Int("workers", cfg.Server.Workers).Int("queue_size", cfg.Server.QueueSize).Msg("Import workers started")

	maxUpload := cfg.Server.MaxUploadMB << 20
	router := api.NewRouter(api.Handlers{
		Imports: handlers.NewImportsHandler(jobQueue, jobStore, sources.Uploads, archive, maxUpload),
		Preview: handlers.NewPreviewHandler(service, maxUpload),
		Reports: handlers.NewReportsHandler(service, agg, base),
	}, cfg.Server.AllowedOrigins, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("store", cfg.Store.Driver).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// In-flight imports finish before the store is closed.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorkers()

	log.Info().Msg("Server exited")
}
