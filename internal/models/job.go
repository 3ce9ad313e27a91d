package models

import (
	"time"
)

// Job represents a background ingestion or export job tracked in the job store
type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Status    JobStatus              `json:"status"`
	Progress  int                    `json:"progress"` // 0-100
	Metadata  map[string]interface{} `json:"metadata"` // Input data (filename, blob_key, keys)
	Result    map[string]interface{} `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// JobType represents the type of job
type JobType string

const (
	JobTypeIngestPDF     JobType = "ingest_pdf"
	JobTypePrepareExport JobType = "prepare_export"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Validate checks if job is valid
func (j *Job) Validate() error {
	if j.ID == "" {
		return &ValidationError{Field: "id", Message: "job ID is required"}
	}
	if j.Type == "" {
		return &ValidationError{Field: "type", Message: "job type is required"}
	}
	if !j.Type.IsValid() {
		return &ValidationError{Field: "type", Message: "invalid job type: " + string(j.Type)}
	}
	if !j.Status.IsValid() {
		return &ValidationError{Field: "status", Message: "invalid job status: " + string(j.Status)}
	}
	if j.Progress < 0 || j.Progress > 100 {
		return &ValidationError{Field: "progress", Message: "progress must be between 0 and 100"}
	}
	return nil
}

// MetadataString returns a string metadata value, or "" when absent.
func (j *Job) MetadataString(key string) string {
	if j.Metadata == nil {
		return ""
	}
	if v, ok := j.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// IsValid checks if job type is valid
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeIngestPDF, JobTypePrepareExport:
		return true
	default:
		return false
	}
}

// String returns the string representation of job type
func (t JobType) String() string {
	return string(t)
}

// IsValid checks if job status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of job status
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsComplete returns true if the job is in a terminal state
func (j *Job) IsComplete() bool {
	return j.Status.IsTerminal()
}
