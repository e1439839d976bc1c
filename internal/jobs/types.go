package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportTransactions imports a CSV file of transactions for one user.
	JobTypeImportTransactions JobType = "import_transactions"
)

// DefaultMaxRetries is applied to jobs published without an explicit limit.
const DefaultMaxRetries = 3

// ErrJobNotFound is returned when a job ID is unknown to the store.
var ErrJobNotFound = errors.New("job not found")

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

// ImportTransactionsJob imports a CSV file from storage into a user's transactions.
type ImportTransactionsJob struct {
	JobID string `json:"job_id"`

	// UserID owns the imported transactions and the job itself.
	UserID string `json:"user_id"`

	// SourceURI is the gs:// location of the CSV file.
	SourceURI string `json:"source_uri"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Imported and Skipped are filled in by the handler on success.
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Type returns the job type.
func (j *ImportTransactionsJob) Type() JobType {
	return JobTypeImportTransactions
}

// Publisher publishes jobs to a queue.
type Publisher interface {
	PublishImport(ctx context.Context, job *ImportTransactionsJob) error
	Close() error
}

// Consumer consumes jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the attempt failed and may
// trigger a retry.
type JobHandler func(ctx context.Context, job *ImportTransactionsJob) error

// JobStore stores and retrieves job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportTransactionsJob) error

	// GetJob returns ErrJobNotFound for unknown IDs.
	GetJob(ctx context.Context, jobID string) (*ImportTransactionsJob, error)

	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportTransactionsJob, error)

	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	UserID string
	Status JobStatus

	Limit  int
	Offset int
}
