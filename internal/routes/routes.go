package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"brainlattice/internal/handlers"
)

// Handlers carries every handler the router needs. Nil entries are
// skipped so the server can run with subsystems disabled.
type Handlers struct {
	Health http.HandlerFunc

	Ingest  *handlers.IngestHandler
	Worker  *handlers.WorkerHandler
	Export  *handlers.ExportHandler
	Project *handlers.ProjectHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Worker ingress (task queue delivery target)
	if h.Worker != nil {
		router.HandleFunc("/worker", h.Worker.Handle).Methods(http.MethodPost)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	if h.Worker != nil {
		api.HandleFunc("/workers/stats", h.Worker.Stats).Methods(http.MethodGet)
	}

	if h.Ingest != nil {
		api.HandleFunc("/ingest/upload", h.Ingest.Upload).Methods(http.MethodPost)
		api.HandleFunc("/ingest/status/{job_id}", h.Ingest.Status).Methods(http.MethodGet)
		api.HandleFunc("/ingest/retry/{job_id}", h.Ingest.Retry).Methods(http.MethodPost)
	}

	if h.Project != nil {
		api.HandleFunc("/project/{id}", h.Project.Get).Methods(http.MethodGet)
		api.HandleFunc("/project/{id}/graph", h.Project.Graph).Methods(http.MethodGet)
	}

	if h.Export != nil {
		api.HandleFunc("/project/{id}/export", h.Export.Trigger).Methods(http.MethodPost)
		api.HandleFunc("/project/{id}/export/status", h.Export.Status).Methods(http.MethodGet)
		api.HandleFunc("/project/{id}/export/download", h.Export.Download).Methods(http.MethodGet)
	}
}
