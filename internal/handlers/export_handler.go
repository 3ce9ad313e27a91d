package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"brainlattice/internal/models"
	"brainlattice/internal/repositories"
	"brainlattice/internal/services"
)

// downloadURLTTL is the lifetime of pre-signed vault download links.
const downloadURLTTL = time.Hour

// ExportHandler handles vault export trigger, status, and download
type ExportHandler struct {
	orchestrator *services.Orchestrator
	repo         repositories.ProjectRepository
	blob         repositories.BlobStore
	keys         KeyDefaults
	logger       *log.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(orchestrator *services.Orchestrator, repo repositories.ProjectRepository, blob repositories.BlobStore, keys KeyDefaults, logger *log.Logger) *ExportHandler {
	return &ExportHandler{
		orchestrator: orchestrator,
		repo:         repo,
		blob:         blob,
		keys:         keys,
		logger:       logger,
	}
}

// Trigger queues a vault export for a project
// @Summary Trigger an Obsidian vault export
// @Param id path string true "Project ID"
// @Success 200 {object} BasicResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/project/{id}/export [post]
func (h *ExportHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	if projectID == "" {
		h.sendError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	geminiKey := r.Header.Get("X-Gemini-API-Key")
	if geminiKey == "" {
		geminiKey = h.keys.Gemini
	}
	if geminiKey == "" {
		h.sendError(w, http.StatusBadRequest, "X-Gemini-API-Key header is required")
		return
	}

	if _, err := h.repo.GetProject(r.Context(), projectID); err != nil {
		if repositories.IsProjectNotFound(err) {
			h.sendError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get project: %v", err))
		return
	}

	openaiKey := r.Header.Get("X-OpenAI-API-Key")
	if openaiKey == "" {
		openaiKey = h.keys.OpenAI
	}

	err := h.orchestrator.TriggerExport(r.Context(), projectID,
		r.Header.Get("X-User-Id"), geminiKey, openaiKey)
	if err != nil {
		h.logger.Printf("Failed to trigger export for project %s: %v", projectID, err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to trigger export: %v", err))
		return
	}

	h.sendJSON(w, http.StatusOK, BasicResponse{Status: "queued", Message: "export requested"})
}

// Status returns the export sub-object of project_metadata, or
// {"status": "none"} when no export has ever been requested.
// @Summary Get export status
// @Param id path string true "Project ID"
// @Success 200 {object} models.ExportMeta
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/project/{id}/export/status [get]
func (h *ExportHandler) Status(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	project, err := h.repo.GetProject(r.Context(), projectID)
	if err != nil {
		if repositories.IsProjectNotFound(err) {
			h.sendError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get project: %v", err))
		return
	}

	meta := project.ProjectMetadata.Export
	if meta == nil {
		h.sendJSON(w, http.StatusOK, BasicResponse{Status: "none"})
		return
	}
	h.sendJSON(w, http.StatusOK, meta)
}

// Download returns a pre-signed URL for the assembled vault zip
// @Summary Get a download link for the exported vault
// @Param id path string true "Project ID"
// @Success 200 {object} DownloadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/project/{id}/export/download [get]
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	project, err := h.repo.GetProject(r.Context(), projectID)
	if err != nil {
		if repositories.IsProjectNotFound(err) {
			h.sendError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get project: %v", err))
		return
	}

	meta := project.ProjectMetadata.Export
	if meta == nil || meta.Status != models.ExportStatusComplete {
		h.sendError(w, http.StatusBadRequest, "Export is not complete")
		return
	}

	url, err := h.blob.SignedURL(r.Context(), "exports/"+projectID+".zip", downloadURLTTL)
	if err != nil {
		h.logger.Printf("Failed to sign download URL for project %s: %v", projectID, err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to sign download URL: %v", err))
		return
	}

	h.sendJSON(w, http.StatusOK, DownloadResponse{DownloadURL: url})
}

func (h *ExportHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *ExportHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// DownloadResponse carries the pre-signed vault download link
type DownloadResponse struct {
	DownloadURL string `json:"download_url"`
}
