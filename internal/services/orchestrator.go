package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"brainlattice/internal/models"
	"brainlattice/internal/queue"
	"brainlattice/internal/repositories"
)

// Orchestrator handles the API side of ingestion and export: store the
// upload, create the job record, and hand the work to the task queue.
type Orchestrator struct {
	blob      repositories.BlobStore
	jobs      repositories.JobStore
	repo      repositories.ProjectRepository
	queue     queue.TaskQueue
	workerURL string
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(blob repositories.BlobStore, jobs repositories.JobStore, repo repositories.ProjectRepository, taskQueue queue.TaskQueue, workerURL string) *Orchestrator {
	return &Orchestrator{
		blob:      blob,
		jobs:      jobs,
		repo:      repo,
		queue:     taskQueue,
		workerURL: workerURL,
	}
}

// IngestionRequest carries one upload plus its per-request credentials
type IngestionRequest struct {
	Filename  string
	Content   []byte
	UserID    string
	GeminiKey string
	OpenAIKey string
	ProjectID string
}

// IngestionResult is returned to the upload caller
type IngestionResult struct {
	Status   string `json:"status"`
	JobID    string `json:"job_id"`
	MsgID    string `json:"msg_id"`
	Filename string `json:"filename"`
}

// InitIngestion stores the bytes, creates a project when none was
// supplied, records the job, and publishes the ingest task.
func (o *Orchestrator) InitIngestion(ctx context.Context, req IngestionRequest) (*IngestionResult, error) {
	fileID := uuid.NewString()
	ext := filepath.Ext(req.Filename)
	blobKey := "uploads/" + fileID + ext

	if err := o.blob.Put(ctx, blobKey, req.Content); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()

	projectID := req.ProjectID
	if projectID == "" {
		project, err := o.repo.CreateProject(ctx, fmt.Sprintf("upload_%s", jobID[:8]), req.UserID)
		if err != nil {
			return nil, err
		}
		projectID = project.ID
	}

	metadata := map[string]interface{}{
		"filename":   req.Filename,
		"file_id":    fileID,
		"blob_key":   blobKey,
		"project_id": projectID,
	}
	if req.UserID != "" {
		metadata["user_id"] = req.UserID
	}
	if req.GeminiKey != "" {
		metadata["gemini_key"] = req.GeminiKey
	}
	if req.OpenAIKey != "" {
		metadata["openai_key"] = req.OpenAIKey
	}

	if _, err := o.jobs.CreateJob(ctx, jobID, models.JobTypeIngestPDF, metadata); err != nil {
		return nil, err
	}

	msgID, err := o.queue.Publish(ctx, o.workerURL, queue.TaskPayload{
		JobID:     jobID,
		FileKey:   blobKey,
		Action:    queue.ActionIngest,
		ProjectID: projectID,
		UserID:    req.UserID,
		GeminiKey: req.GeminiKey,
		OpenAIKey: req.OpenAIKey,
	})
	if err != nil {
		return nil, err
	}

	return &IngestionResult{
		Status:   "queued",
		JobID:    jobID,
		MsgID:    msgID,
		Filename: req.Filename,
	}, nil
}

// RetryIngestion resets an existing job and re-publishes its task.
// Fresher keys replace the stored ones.
func (o *Orchestrator) RetryIngestion(ctx context.Context, jobID string, geminiKey, openaiKey string) (*IngestionResult, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{}
	if geminiKey != "" {
		patch["gemini_key"] = geminiKey
	}
	if openaiKey != "" {
		patch["openai_key"] = openaiKey
	}
	if len(patch) > 0 {
		if err := o.jobs.UpdateMetadata(ctx, jobID, patch); err != nil {
			return nil, err
		}
	}
	if err := o.jobs.ResetJob(ctx, jobID); err != nil {
		return nil, err
	}

	if geminiKey == "" {
		geminiKey = job.MetadataString("gemini_key")
	}
	if openaiKey == "" {
		openaiKey = job.MetadataString("openai_key")
	}

	msgID, err := o.queue.Publish(ctx, o.workerURL, queue.TaskPayload{
		JobID:     jobID,
		FileKey:   job.MetadataString("blob_key"),
		Action:    queue.ActionIngest,
		ProjectID: job.MetadataString("project_id"),
		UserID:    job.MetadataString("user_id"),
		GeminiKey: geminiKey,
		OpenAIKey: openaiKey,
	})
	if err != nil {
		return nil, err
	}

	return &IngestionResult{
		Status:   "queued",
		JobID:    jobID,
		MsgID:    msgID,
		Filename: job.MetadataString("filename"),
	}, nil
}

// TriggerExport marks the export pending and publishes the export task.
func (o *Orchestrator) TriggerExport(ctx context.Context, projectID, userID, geminiKey, openaiKey string) error {
	if err := o.repo.MergeExportMeta(ctx, projectID, map[string]interface{}{
		"status":   string(models.ExportStatusPending),
		"progress": 0,
		"message":  "export requested...",
	}); err != nil {
		return err
	}

	_, err := o.queue.Publish(ctx, o.workerURL, queue.TaskPayload{
		Action:    queue.ActionPrepareExport,
		ProjectID: projectID,
		UserID:    userID,
		GeminiKey: geminiKey,
		OpenAIKey: openaiKey,
	})
	return err
}
