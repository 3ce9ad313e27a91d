package repositories

import (
	"context"

	"brainlattice/internal/models"
)

// ProjectRepository defines the interface for the relational store:
// projects, files, chunks, and graph nodes.
type ProjectRepository interface {
	// Project management
	CreateProject(ctx context.Context, title string, userID string) (*models.Project, error)
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	UpdateProjectStatus(ctx context.Context, projectID string, status models.ProjectStatus) error

	// project_metadata read-modify-writes. Each executes as a single atomic
	// jsonb update so concurrent writers cannot lose unrelated keys.
	SetGeminiCacheName(ctx context.Context, projectID string, cacheName string) error
	ClearGeminiCacheName(ctx context.Context, projectID string) error
	MergeExportMeta(ctx context.Context, projectID string, patch map[string]interface{}) error

	// Files
	GetFileByBlobKey(ctx context.Context, projectID string, blobKey string) (*models.File, error)
	CreateFile(ctx context.Context, projectID string, filename string, blobKey string) (*models.File, error)
	UpdateFileContent(ctx context.Context, fileID string, content string) error
	GetProjectContent(ctx context.Context, projectID string) (string, error)

	// Chunks
	InsertChunks(ctx context.Context, fileID string, chunks []models.Chunk) error
	SearchChunks(ctx context.Context, projectID string, embedding []float32, limit int) ([]models.Chunk, error)

	// Graph nodes
	ReplaceGraph(ctx context.Context, projectID string, nodes []models.GraphNode) error
	ListGraphNodes(ctx context.Context, projectID string) ([]models.GraphNode, error)
	ListMissingContentNodes(ctx context.Context, projectID string, limit int) ([]models.GraphNode, error)
	CountGraphNodes(ctx context.Context, projectID string) (total int, missing int, err error)
	SetNodeContent(ctx context.Context, nodeID string, content string) error
	ValidConceptIDs(ctx context.Context, projectID string) (map[string]struct{}, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// ProjectRepositoryError represents errors from the relational store
type ProjectRepositoryError struct {
	Operation string
	ID        string
	Err       error
	Message   string
}

func (e *ProjectRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.ID != "" {
		prefix += " (id: " + e.ID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *ProjectRepositoryError) Unwrap() error {
	return e.Err
}

// NewProjectRepositoryError creates a new relational store error
func NewProjectRepositoryError(operation string, id string, err error, message string) *ProjectRepositoryError {
	return &ProjectRepositoryError{
		Operation: operation,
		ID:        id,
		Err:       err,
		Message:   message,
	}
}

// ProjectNotFoundError indicates the project does not exist
func ProjectNotFoundError(projectID string) error {
	return NewProjectRepositoryError(
		"get_project",
		projectID,
		nil,
		"project not found: "+projectID,
	)
}

// IsProjectNotFound reports whether err is a project-not-found error.
func IsProjectNotFound(err error) bool {
	if e, ok := err.(*ProjectRepositoryError); ok {
		return e.Operation == "get_project" && e.Err == nil
	}
	return false
}
