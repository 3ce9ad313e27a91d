package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"brainlattice/internal/repositories"
	"brainlattice/internal/services"
)

// maxUploadBytes bounds the multipart form parse for PDF uploads.
const maxUploadBytes = 100 << 20

// IngestHandler handles upload, status, and retry for ingestion jobs
type IngestHandler struct {
	orchestrator *services.Orchestrator
	jobs         repositories.JobStore
	keys         KeyDefaults
	logger       *log.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(orchestrator *services.Orchestrator, jobs repositories.JobStore, keys KeyDefaults, logger *log.Logger) *IngestHandler {
	return &IngestHandler{
		orchestrator: orchestrator,
		jobs:         jobs,
		keys:         keys,
		logger:       logger,
	}
}

// Upload accepts a PDF, stores it, and queues the ingestion job
// @Summary Upload a PDF for ingestion
// @Accept multipart/form-data
// @Param file formData file true "PDF file"
// @Param project_id formData string false "Existing project to ingest into"
// @Success 200 {object} services.IngestionResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/ingest/upload [post]
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read file: %v", err))
		return
	}

	geminiKey := h.geminiKey(r)
	if geminiKey == "" {
		h.sendError(w, http.StatusBadRequest, "X-Gemini-API-Key header is required")
		return
	}

	req := services.IngestionRequest{
		Filename:  header.Filename,
		Content:   content,
		UserID:    r.Header.Get("X-User-Id"),
		GeminiKey: geminiKey,
		OpenAIKey: h.openaiKey(r),
		ProjectID: r.FormValue("project_id"),
	}

	h.logger.Printf("Upload request: %s (%d bytes)", req.Filename, len(content))

	result, err := h.orchestrator.InitIngestion(r.Context(), req)
	if err != nil {
		h.logger.Printf("Failed to initialize ingestion: %v", err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start ingestion: %v", err))
		return
	}

	h.sendJSON(w, http.StatusOK, result)
}

// Status returns the current state of an ingestion job
// @Summary Get ingestion job status
// @Param job_id path string true "Job ID"
// @Success 200 {object} models.Job
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/ingest/status/{job_id} [get]
func (h *IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if jobID == "" {
		h.sendError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if repositories.IsJobNotFound(err) {
			h.sendError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Printf("Failed to get job %s: %v", jobID, err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get job: %v", err))
		return
	}

	h.sendJSON(w, http.StatusOK, job)
}

// Retry resets a job and re-publishes its task. Fresher API keys from the
// request headers replace the stored ones.
// @Summary Retry a failed ingestion job
// @Param job_id path string true "Job ID"
// @Success 200 {object} services.IngestionResult
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/ingest/retry/{job_id} [post]
func (h *IngestHandler) Retry(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]
	if jobID == "" {
		h.sendError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	// stored job metadata covers absent headers on retry, so operator
	// defaults are not substituted here
	result, err := h.orchestrator.RetryIngestion(r.Context(), jobID,
		r.Header.Get("X-Gemini-API-Key"), r.Header.Get("X-OpenAI-API-Key"))
	if err != nil {
		if repositories.IsJobNotFound(err) {
			h.sendError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Printf("Failed to retry job %s: %v", jobID, err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retry job: %v", err))
		return
	}

	h.sendJSON(w, http.StatusOK, result)
}

// geminiKey resolves the request key, falling back to the operator default
func (h *IngestHandler) geminiKey(r *http.Request) string {
	if key := r.Header.Get("X-Gemini-API-Key"); key != "" {
		return key
	}
	return h.keys.Gemini
}

func (h *IngestHandler) openaiKey(r *http.Request) string {
	if key := r.Header.Get("X-OpenAI-API-Key"); key != "" {
		return key
	}
	return h.keys.OpenAI
}

func (h *IngestHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *IngestHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}
