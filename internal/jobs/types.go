// Package jobs describes asynchronous spreadsheet imports and the queue
// contracts that run them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/dre-engine/internal/store"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImport fetches a spreadsheet, ingests it and saves the records.
	JobTypeImport JobType = "import_spreadsheet"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ErrPermanent marks failures that retrying cannot fix, such as a
// spreadsheet with an invalid type cell.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the queue does not retry it.
func Permanent(err error) error {
	if err == nil || errors.Is(err, ErrPermanent) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// ImportJob imports one spreadsheet for one owner.
type ImportJob struct {
	JobID string `json:"job_id"`

	// Owner keys the records in the store.
	Owner string `json:"owner"`

	// SourceURI locates the spreadsheet: a path, gs://, drive:// or mem:// URI.
	SourceURI string `json:"source_uri"`

	// FileName and ContentType override what the source reports.
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	// ArchiveURI is where the upload was archived, when it was.
	ArchiveURI string `json:"archive_uri,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`

	RecordsParsed int            `json:"records_parsed"`
	Progress      store.Progress `json:"progress"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ImportJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ImportJob) GetType() JobType {
	return JobTypeImport
}

// GetStatus implements the Job interface.
func (j *ImportJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues import jobs.
type Publisher interface {
	PublishImport(ctx context.Context, job *ImportJob) error
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs. handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error is retried unless it wraps
// ErrPermanent.
type JobHandler func(ctx context.Context, job *ImportJob) error

// JobStore tracks job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportJob) error
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
	UpdateProgress(ctx context.Context, jobID string, progress store.Progress) error
}

// ErrJobNotFound is returned for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Owner  string
	Status JobStatus
	Limit  int
	Offset int
}
