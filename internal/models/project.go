package models

import (
	"time"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusComplete   ProjectStatus = "complete"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// IsValid checks if the project status is valid
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusProcessing, ProjectStatusComplete, ProjectStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of project status
func (s ProjectStatus) String() string {
	return string(s)
}

// Project is the top-level unit of ingestion. project_metadata is a free-form
// JSON blob; recognized keys are carried in ProjectMetadata.
type Project struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id,omitempty"`
	Title           string          `json:"title"`
	Status          ProjectStatus   `json:"status"`
	ProjectMetadata ProjectMetadata `json:"project_metadata"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProjectMetadata carries the recognized metadata keys plus a pass-through
// map for anything else a client stored alongside them.
type ProjectMetadata struct {
	GeminiCacheName string                 `json:"gemini_cache_name,omitempty"`
	Export          *ExportMeta            `json:"export,omitempty"`
	Extra           map[string]interface{} `json:"-"`
}

// ExportStatus represents the lifecycle state of a vault export
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusGenerating ExportStatus = "generating"
	ExportStatusComplete   ExportStatus = "complete"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportMeta is the export sub-object of project_metadata.
type ExportMeta struct {
	Status      ExportStatus `json:"status"`
	Progress    int          `json:"progress"`
	Message     string       `json:"message,omitempty"`
	DownloadURL string       `json:"download_url,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// File is one ingested document inside a project. Content holds the
// extracted markdown; it is only ever grown, never shortened, within a job.
type File struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Filename  string    `json:"filename"`
	BlobKey   string    `json:"blob_key"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is one retrievable slice of a file with its embedding vector.
// The vector dimension is fixed per project once the first chunk persists.
type Chunk struct {
	ID            string        `json:"id"`
	FileID        string        `json:"file_id"`
	Content       string        `json:"content"`
	Embedding     []float32     `json:"embedding"`
	ChunkMetadata ChunkMetadata `json:"chunk_metadata"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ChunkMetadata records the markdown header path from root to leaf for the
// section the chunk was cut from.
type ChunkMetadata struct {
	Headers []string `json:"headers"`
}
