package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"brainlattice/internal/queue"
	"brainlattice/internal/workers"
)

// WorkerHandler is the HTTP ingress the task queue delivers payloads to.
// The response code drives the provider's retry behavior: 2xx acknowledges,
// 4xx drops a malformed payload, 5xx asks for redelivery.
type WorkerHandler struct {
	dispatcher *workers.TaskDispatcher
	pool       *workers.WorkerPool
	logger     *log.Logger
}

// NewWorkerHandler creates a new worker ingress handler
func NewWorkerHandler(dispatcher *workers.TaskDispatcher, pool *workers.WorkerPool, logger *log.Logger) *WorkerHandler {
	return &WorkerHandler{
		dispatcher: dispatcher,
		pool:       pool,
		logger:     logger,
	}
}

// Handle runs one queued task to completion
// @Summary Worker task ingress
// @Accept json
// @Param payload body queue.TaskPayload true "Task payload"
// @Success 200 {object} BasicResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /worker [post]
func (h *WorkerHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var payload queue.TaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("Invalid task payload: %v", err))
		return
	}
	if payload.Action != queue.ActionIngest && payload.Action != queue.ActionPrepareExport {
		h.sendError(w, http.StatusBadRequest, "Unknown task action: "+payload.Action)
		return
	}

	h.logger.Printf("Worker task received: action=%s job=%s project=%s", payload.Action, payload.JobID, payload.ProjectID)

	if err := h.dispatcher.Handle(r.Context(), payload); err != nil {
		h.logger.Printf("Task failed: %v", err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Task failed: %v", err))
		return
	}

	h.sendJSON(w, http.StatusOK, BasicResponse{Status: "ok"})
}

// Stats reports processing counters for every worker
// @Summary Worker statistics
// @Success 200 {array} workers.WorkerStats
// @Router /api/v1/workers/stats [get]
func (h *WorkerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, http.StatusOK, h.pool.GetAllStats())
}

func (h *WorkerHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *WorkerHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}
