// Package postgres stores financial records in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordsTable = "financial_records"

const schema = `
CREATE TABLE IF NOT EXISTS financial_records (
	owner_key        TEXT        NOT NULL,
	position         INTEGER     NOT NULL,
	record_type      TEXT        NOT NULL,
	status           TEXT        NOT NULL,
	raw_status       TEXT        NOT NULL DEFAULT '',
	effective_date   DATE,
	effective_amount NUMERIC     NOT NULL,
	description      TEXT        NOT NULL DEFAULT '',
	category         TEXT        NOT NULL DEFAULT '',
	account          TEXT        NOT NULL DEFAULT '',
	contact          TEXT        NOT NULL DEFAULT '',
	tax_id           TEXT        NOT NULL DEFAULT '',
	legal_name       TEXT        NOT NULL DEFAULT '',
	payment_method   TEXT        NOT NULL DEFAULT '',
	notes            TEXT        NOT NULL DEFAULT '',
	creation_date    DATE,
	saved_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (owner_key, position)
)`

// Store is the PostgreSQL RecordStore.
type Store struct {
	pool *pgxpool.Pool
	opts store.BatchOptions
}

// Open connects to dsn and creates the records table when missing. An empty
// dsn falls back to DATABASE_URL.
func Open(ctx context.Context, dsn string, opts store.BatchOptions) (*Store, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, fmt.Errorf("Open: no DSN configured and DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: parsing database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("Open: creating pool: %w", err)
	}

	s := New(pool, opts)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, opts store.BatchOptions) *Store {
	return &Store{pool: pool, opts: opts}
}

// EnsureSchema creates the records table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// SaveAll implements store.RecordStore. Every batch is a COPY into the
// records table.
func (s *Store) SaveAll(ctx context.Context, owner string, records []domain.FinancialRecord, progress store.ProgressFunc) error {
	owner = store.Owner(owner)

	if _, err := s.pool.Exec(ctx, `DELETE FROM financial_records WHERE owner_key = $1`, owner); err != nil {
		return fmt.Errorf("SaveAll: clearing owner: %w", err)
	}

	err := store.WriteInBatches(ctx, records, s.opts, func(ctx context.Context, batch []domain.FinancialRecord, offset int) error {
		rows := make([][]any, len(batch))
		for i, r := range batch {
			rows[i] = rowValues(owner, offset+i, r)
		}
		if _, err := s.pool.CopyFrom(ctx, pgx.Identifier{recordsTable}, columns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy batch: %w", err)
		}
		return nil
	}, IsTransient, progress)
	if err != nil {
		return fmt.Errorf("SaveAll: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("owner", owner).Int("records", len(records)).Msg("records saved")
	return nil
}

// LoadAll implements store.RecordStore.
func (s *Store) LoadAll(ctx context.Context, owner string) ([]domain.FinancialRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+strings.Join(columns[2:], ", ")+`
		FROM financial_records
		WHERE owner_key = $1
		ORDER BY position
	`, store.Owner(owner))
	if err != nil {
		return nil, fmt.Errorf("LoadAll: query: %w", err)
	}

	out, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("LoadAll: scanning rows: %w", err)
	}
	if out == nil {
		out = []domain.FinancialRecord{}
	}
	return out, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// IsTransient reports connection timeouts and insufficient-resources
// failures (SQLSTATE class 53).
func IsTransient(err error) bool {
	if pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "53")
	}
	return false
}

var _ store.RecordStore = (*Store)(nil)
