package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ethpandaops/landsat-historic/internal/version"
)

// LeaderStatus reports whether this instance runs scheduled jobs.
type LeaderStatus interface {
	IsLeader() bool
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Leader  bool   `json:"leader"`
}

// Health returns an HTTP handler for health check endpoint. leader may be
// nil when scheduling is disabled.
func Health(leader LeaderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:  "healthy",
			Version: version.Short(),
		}

		if leader != nil {
			response.Leader = leader.IsLeader()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)

			return
		}
	}
}
