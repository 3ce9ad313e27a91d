package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"brainlattice/internal/models"
	"brainlattice/internal/repositories"
)

// ProjectHandler serves project reads: the project record and its graph
type ProjectHandler struct {
	repo   repositories.ProjectRepository
	logger *log.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(repo repositories.ProjectRepository, logger *log.Logger) *ProjectHandler {
	return &ProjectHandler{
		repo:   repo,
		logger: logger,
	}
}

// Get returns a single project
// @Summary Get a project
// @Param id path string true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/project/{id} [get]
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	h.sendJSON(w, http.StatusOK, project)
}

// Graph returns the persisted knowledge graph for a project
// @Summary List graph nodes for a project
// @Param id path string true "Project ID"
// @Success 200 {object} GraphResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/project/{id}/graph [get]
func (h *ProjectHandler) Graph(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	if _, err := h.repo.GetProject(r.Context(), projectID); err != nil {
		if repositories.IsProjectNotFound(err) {
			h.sendError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get project: %v", err))
		return
	}

	nodes, err := h.repo.ListGraphNodes(r.Context(), projectID)
	if err != nil {
		h.logger.Printf("Failed to list graph nodes for project %s: %v", projectID, err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list graph nodes: %v", err))
		return
	}

	h.sendJSON(w, http.StatusOK, GraphResponse{
		ProjectID: projectID,
		Nodes:     nodes,
		Count:     len(nodes),
	})
}

func (h *ProjectHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *ProjectHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// GraphResponse is the graph listing body
type GraphResponse struct {
	ProjectID string             `json:"project_id"`
	Nodes     []models.GraphNode `json:"nodes"`
	Count     int                `json:"count"`
}
