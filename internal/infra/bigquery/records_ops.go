package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Table locates the records table.
type Table struct {
	ProjectID string
	DatasetID string
	TableID   string
}

func (t Table) qualified() string {
	return "`" + t.ProjectID + "." + t.DatasetID + "." + t.TableID + "`"
}

// Saves locates the table of completed saves kept next to the records table.
func (t Table) Saves() Table {
	t.TableID += "_saves"
	return t
}

// EnsureRecordsTableWithClient creates the records table when it does not exist.
func EnsureRecordsTableWithClient(ctx context.Context, client *bigquery.Client, t Table) error {
	q := client.Query(`
		CREATE TABLE IF NOT EXISTS ` + t.qualified() + ` (
			owner_key        STRING NOT NULL,
			save_id          STRING NOT NULL,
			position         INT64 NOT NULL,
			record_type      STRING NOT NULL,
			status           STRING NOT NULL,
			raw_status       STRING,
			effective_date   DATE,
			effective_amount NUMERIC NOT NULL,
			description      STRING,
			category         STRING,
			account          STRING,
			contact          STRING,
			tax_id           STRING,
			legal_name       STRING,
			payment_method   STRING,
			notes            STRING,
			creation_date    DATE,
			saved_ts         TIMESTAMP NOT NULL
		)
		CLUSTER BY owner_key
	`)
	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("EnsureRecordsTable: %w", err)
	}

	q = client.Query(`
		CREATE TABLE IF NOT EXISTS ` + t.Saves().qualified() + ` (
			owner_key    STRING NOT NULL,
			save_id      STRING NOT NULL,
			record_count INT64 NOT NULL,
			saved_ts     TIMESTAMP NOT NULL
		)
		CLUSTER BY owner_key
	`)
	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("EnsureRecordsTable: saves table: %w", err)
	}
	return nil
}

// InsertRecordsWithClient streams a batch of rows into the records table.
func InsertRecordsWithClient(ctx context.Context, client *bigquery.Client, t Table, rows []*RecordRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(t.ProjectID, t.DatasetID).Table(t.TableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertRecords: inserting rows: %w", err)
	}
	return nil
}

// MarkSaveCompleteWithClient records that every row of saveID was written.
// It runs as a DML insert, not a streaming insert, so the marker can be
// deleted by the next save right away.
func MarkSaveCompleteWithClient(ctx context.Context, client *bigquery.Client, t Table, owner, saveID string, count int, saved time.Time) error {
	q := client.Query(`
		INSERT INTO ` + t.Saves().qualified() + ` (owner_key, save_id, record_count, saved_ts)
		VALUES (@owner_key, @save_id, @record_count, @saved_ts)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_key", Value: owner},
		{Name: "save_id", Value: saveID},
		{Name: "record_count", Value: count},
		{Name: "saved_ts", Value: saved},
	}
	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("MarkSaveComplete: %w", err)
	}
	return nil
}

// DeleteOtherSavesWithClient removes the owner's rows and save markers
// written by any save other than keep, including saves that never
// completed.
func DeleteOtherSavesWithClient(ctx context.Context, client *bigquery.Client, t Table, owner, keep string) error {
	var errs []error
	for _, table := range []Table{t, t.Saves()} {
		q := client.Query(`
			DELETE FROM ` + table.qualified() + `
			WHERE owner_key = @owner_key
			  AND save_id != @save_id
		`)
		q.Parameters = []bigquery.QueryParameter{
			{Name: "owner_key", Value: owner},
			{Name: "save_id", Value: keep},
		}
		if err := runAndWait(ctx, q); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", table.TableID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("DeleteOtherSaves: %w", err)
	}
	return nil
}

// latestSaveSQL selects the rows of the owner's most recent completed save.
// Rows of a save without a marker are never returned.
func latestSaveSQL(t Table) string {
	return `
		SELECT r.*
		FROM ` + t.qualified() + ` r
		WHERE r.owner_key = @owner_key
		  AND r.save_id = (
			SELECT save_id
			FROM ` + t.Saves().qualified() + `
			WHERE owner_key = @owner_key
			ORDER BY saved_ts DESC
			LIMIT 1
		  )
		ORDER BY r.position
	`
}

// QueryLatestSaveWithClient reads the rows of the owner's most recent
// completed save in position order.
func QueryLatestSaveWithClient(ctx context.Context, client *bigquery.Client, t Table, owner string) ([]*RecordRow, error) {
	q := client.Query(latestSaveSQL(t))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_key", Value: owner},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryLatestSave: query read: %w", err)
	}

	var rows []*RecordRow
	for {
		var r RecordRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryLatestSave: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// IsTransient reports quota and availability failures worth a retry.
func IsTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code == http.StatusServiceUnavailable
	}
	var berr *bigquery.Error
	if errors.As(err, &berr) {
		switch berr.Reason {
		case "rateLimitExceeded", "quotaExceeded", "backendError":
			return true
		}
	}
	return false
}
