// Package backend opens the configured RecordStore.
package backend

import (
	"context"
	"fmt"

	"github.com/dvloznov/dre-engine/internal/config"
	bq "github.com/dvloznov/dre-engine/internal/infra/bigquery"
	"github.com/dvloznov/dre-engine/internal/infra/postgres"
	"github.com/dvloznov/dre-engine/internal/infra/sqlite"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/dvloznov/dre-engine/internal/store/inmemory"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (store.RecordStore, error) {
	log := logger.FromContext(ctx).With().Str("driver", cfg.Driver).Logger()

	var (
		s   store.RecordStore
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		s = inmemory.NewStore(cfg.Batch)
	case "bigquery":
		if cfg.BigQuery.Project == "" {
			return nil, fmt.Errorf("backend.Open: store.bigquery.project is required")
		}
		s, err = bq.NewRecordRepository(ctx, bq.Table{
			ProjectID: cfg.BigQuery.Project,
			DatasetID: cfg.BigQuery.Dataset,
			TableID:   cfg.BigQuery.Table,
		}, cfg.Batch)
	case "postgres":
		s, err = postgres.Open(ctx, cfg.Postgres.DSN, cfg.Batch)
	case "sqlite":
		s, err = sqlite.Open(cfg.SQLite.Path, cfg.SQLite.LogMode, cfg.Batch)
	default:
		return nil, fmt.Errorf("backend.Open: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("backend.Open: %w", err)
	}

	log.Info().Int("batch_size", cfg.Batch.Size).Msg("record store opened")
	return s, nil
}
