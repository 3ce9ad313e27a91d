package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthCheckHandler reports process liveness
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := BasicResponse{
		Status:  "success",
		Message: "Server is healthy",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
