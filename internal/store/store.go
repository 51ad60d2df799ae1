// Package store defines how ingested records are persisted per owner and the
// batched write loop shared by every backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/logger"
)

// ErrTransient marks a batch failure that may succeed after a pause, such as
// an exhausted quota. Backends wrap driver errors with it.
var ErrTransient = errors.New("transient store failure")

// Progress is reported after every written batch.
type Progress struct {
	Batch   int `json:"batch"`
	Batches int `json:"batches"`
	Saved   int `json:"saved"`
	Total   int `json:"total"`
}

// ProgressFunc receives batch progress. It may be nil.
type ProgressFunc func(Progress)

// RecordStore persists the records of one owner.
type RecordStore interface {
	// SaveAll replaces every record of owner with records.
	SaveAll(ctx context.Context, owner string, records []domain.FinancialRecord, progress ProgressFunc) error

	// LoadAll returns the owner's records in saved order. An unknown owner
	// yields an empty slice.
	LoadAll(ctx context.Context, owner string) ([]domain.FinancialRecord, error)

	// Close releases the backend's resources.
	Close() error
}

// BatchOptions tunes the write loop.
type BatchOptions struct {
	Size       int           `mapstructure:"size"`
	Delay      time.Duration `mapstructure:"delay"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
}

// DefaultBatchOptions returns 400 records per batch, one second between
// batches and a single retry after five seconds.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Size:       400,
		Delay:      time.Second,
		MaxRetries: 1,
		Backoff:    5 * time.Second,
	}
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Size <= 0 {
		o.Size = DefaultBatchOptions().Size
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// Owner returns the storage key for an owner, defaulting to anonymous.
func Owner(key string) string {
	if key = strings.TrimSpace(key); key == "" {
		return domain.DefaultOwner
	}
	return key
}

// WriteFunc writes one batch. offset is the position of batch[0] in the
// full record slice.
type WriteFunc func(ctx context.Context, batch []domain.FinancialRecord, offset int) error

// IsTransient classifies errors that deserve a retry after Backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// WriteInBatches splits records into batches of opts.Size and hands each to
// write, pausing opts.Delay between batches. A batch failing with an error
// for which transient reports true is retried up to opts.MaxRetries times
// after opts.Backoff. progress is called after every successful batch.
func WriteInBatches(ctx context.Context, records []domain.FinancialRecord, opts BatchOptions, write WriteFunc, transient func(error) bool, progress ProgressFunc) error {
	opts = opts.withDefaults()
	if transient == nil {
		transient = IsTransient
	}
	log := logger.FromContext(ctx)

	total := len(records)
	batches := (total + opts.Size - 1) / opts.Size
	saved := 0

	for b := 0; b < batches; b++ {
		start := b * opts.Size
		end := min(start+opts.Size, total)
		batch := records[start:end]

		if b > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return fmt.Errorf("WriteInBatches: %w", err)
			}
		}

		var err error
		for attempt := 0; ; attempt++ {
			if err = write(ctx, batch, start); err == nil {
				break
			}
			if attempt >= opts.MaxRetries || !transient(err) {
				return fmt.Errorf("WriteInBatches: batch %d/%d: %w", b+1, batches, err)
			}
			log.Warn().Err(err).
				Int("batch", b+1).
				Int("attempt", attempt+1).
				Dur("backoff", opts.Backoff).
				Msg("transient batch failure, retrying")
			if err := sleep(ctx, opts.Backoff); err != nil {
				return fmt.Errorf("WriteInBatches: %w", err)
			}
		}

		saved += len(batch)
		if progress != nil {
			progress(Progress{Batch: b + 1, Batches: batches, Saved: saved, Total: total})
		}
		log.Debug().Int("batch", b+1).Int("batches", batches).Int("saved", saved).Msg("batch written")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
