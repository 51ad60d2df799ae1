package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/google/uuid"
)

// recordOps is the table access RecordRepository needs.
type recordOps interface {
	InsertRecords(ctx context.Context, rows []*RecordRow) error
	MarkSaveComplete(ctx context.Context, owner, saveID string, count int, saved time.Time) error
	DeleteOtherSaves(ctx context.Context, owner, keep string) error
	QueryLatestSave(ctx context.Context, owner string) ([]*RecordRow, error)
}

type clientOps struct {
	client *bigquery.Client
	table  Table
}

func (o clientOps) InsertRecords(ctx context.Context, rows []*RecordRow) error {
	return InsertRecordsWithClient(ctx, o.client, o.table, rows)
}

func (o clientOps) MarkSaveComplete(ctx context.Context, owner, saveID string, count int, saved time.Time) error {
	return MarkSaveCompleteWithClient(ctx, o.client, o.table, owner, saveID, count, saved)
}

func (o clientOps) DeleteOtherSaves(ctx context.Context, owner, keep string) error {
	return DeleteOtherSavesWithClient(ctx, o.client, o.table, owner, keep)
}

func (o clientOps) QueryLatestSave(ctx context.Context, owner string) ([]*RecordRow, error) {
	return QueryLatestSaveWithClient(ctx, o.client, o.table, owner)
}

// RecordRepository is the BigQuery RecordStore. It holds a shared client.
//
// Streaming inserts cannot be deleted while they sit in the streaming
// buffer, so every save is tagged with a save ID. A save becomes visible
// once its marker row is written after the last batch, and reads only
// return the latest marked save. Older saves are deleted best effort.
type RecordRepository struct {
	client *bigquery.Client
	ops    recordOps
	opts   store.BatchOptions
	now    func() time.Time
}

// NewRecordRepository opens a client for projectID and ensures the records
// table exists.
func NewRecordRepository(ctx context.Context, t Table, opts store.BatchOptions) (*RecordRepository, error) {
	client, err := bigquery.NewClient(ctx, t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewRecordRepository: creating client: %w", err)
	}
	if err := EnsureRecordsTableWithClient(ctx, client, t); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRecordRepository: %w", err)
	}
	return &RecordRepository{
		client: client,
		ops:    clientOps{client: client, table: t},
		opts:   opts,
		now:    time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *RecordRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SaveAll implements store.RecordStore.
func (r *RecordRepository) SaveAll(ctx context.Context, owner string, records []domain.FinancialRecord, progress store.ProgressFunc) error {
	owner = store.Owner(owner)
	saveID := uuid.NewString()
	saved := r.now()
	log := logger.FromContext(ctx).With().Str("owner", owner).Str("save_id", saveID).Logger()

	err := store.WriteInBatches(ctx, records, r.opts, func(ctx context.Context, batch []domain.FinancialRecord, offset int) error {
		rows := make([]*RecordRow, len(batch))
		for i, rec := range batch {
			rows[i] = NewRecordRow(owner, saveID, offset+i, rec, saved)
		}
		return r.ops.InsertRecords(ctx, rows)
	}, IsTransient, progress)
	if err != nil {
		return fmt.Errorf("SaveAll: %w", err)
	}
	if err := r.ops.MarkSaveComplete(ctx, owner, saveID, len(records), saved); err != nil {
		return fmt.Errorf("SaveAll: %w", err)
	}

	if err := r.ops.DeleteOtherSaves(ctx, owner, saveID); err != nil {
		log.Warn().Err(err).Msg("previous saves not deleted")
	}
	log.Info().Int("records", len(records)).Msg("records saved")
	return nil
}

// LoadAll implements store.RecordStore.
func (r *RecordRepository) LoadAll(ctx context.Context, owner string) ([]domain.FinancialRecord, error) {
	rows, err := r.ops.QueryLatestSave(ctx, store.Owner(owner))
	if err != nil {
		return nil, fmt.Errorf("LoadAll: %w", err)
	}
	out := make([]domain.FinancialRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out, nil
}

var _ store.RecordStore = (*RecordRepository)(nil)
