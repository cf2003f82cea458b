package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/22yuto/devbot/internal/storage"
)

// HealthResponse represents the JSON response from the health check endpoint.
// A healthy response also describes the chunk cache collection.
type HealthResponse struct {
	Status     string `json:"status"`
	Qdrant     string `json:"qdrant"`
	Collection string `json:"collection,omitempty"`
	Chunks     uint64 `json:"chunks"`
	Timestamp  string `json:"timestamp"`
}

// HealthChecker is the storage surface the health endpoint needs: liveness
// plus the cache collection descriptor.
type HealthChecker interface {
	Health(ctx context.Context) error
	CollectionInfo(ctx context.Context) (*storage.CollectionInfo, error)
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It checks Qdrant connectivity and returns appropriate status codes.
func NewHealthHandler(store HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		err := store.Health(ctx)

		response := HealthResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response.Status = "unhealthy"
			response.Qdrant = "disconnected"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		response.Qdrant = "connected"
		response.Collection = storage.CollectionName
		// The descriptor is informational; a failure here does not flip the
		// liveness verdict.
		if info, err := store.CollectionInfo(ctx); err == nil {
			response.Chunks = info.PointsCount
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
