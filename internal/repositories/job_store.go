package repositories

import (
	"context"

	"brainlattice/internal/models"
)

// JobStore defines the interface for async job state tracking.
// Records expire 24 hours after creation. Progress never moves backwards;
// details are folded into the result only once a job reaches a terminal
// status. A sibling extraction cache per job keeps retries of the expensive
// graph-extraction stage cheap.
type JobStore interface {
	CreateJob(ctx context.Context, jobID string, jobType models.JobType, metadata map[string]interface{}) (*models.Job, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// UpdateProgress sets status and progress. A negative progress leaves the
	// stored value untouched. Progress is clamped so it never decreases.
	UpdateProgress(ctx context.Context, jobID string, status models.JobStatus, progress int, details map[string]interface{}) error

	// UpdateMetadata merges patch into the job's metadata map.
	UpdateMetadata(ctx context.Context, jobID string, patch map[string]interface{}) error

	// ResetJob returns a job to pending at progress 0 ahead of a retry.
	// This is the only path that moves progress backwards.
	ResetJob(ctx context.Context, jobID string) error

	// Extraction cache checkpointing
	SetExtractionCache(ctx context.Context, jobID string, fragments []models.GraphFragment) error
	GetExtractionCache(ctx context.Context, jobID string) ([]models.GraphFragment, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// JobTTLSeconds is the retention window for job records and their caches.
const JobTTLSeconds = 86400

// JobStoreError represents errors from the job store
type JobStoreError struct {
	Operation string
	JobID     string
	Err       error
	Message   string
}

func (e *JobStoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.JobID != "" {
		prefix += " (job: " + e.JobID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *JobStoreError) Unwrap() error {
	return e.Err
}

// NewJobStoreError creates a new job store error
func NewJobStoreError(operation string, jobID string, err error, message string) *JobStoreError {
	return &JobStoreError{
		Operation: operation,
		JobID:     jobID,
		Err:       err,
		Message:   message,
	}
}

// JobNotFoundError indicates the job does not exist or has expired
func JobNotFoundError(jobID string) error {
	return NewJobStoreError(
		"get_job",
		jobID,
		nil,
		"job not found: "+jobID,
	)
}

// IsJobNotFound reports whether err is a job-not-found error.
func IsJobNotFound(err error) bool {
	if e, ok := err.(*JobStoreError); ok {
		return e.Operation == "get_job" && e.Err == nil
	}
	return false
}
