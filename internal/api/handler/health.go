package handler

import (
	"context"
	"net/http"

	"github.com/lumina-ai/lumina/internal/api/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// The database is required; the cache is reported but never fails the check.
func NewHealthHandler(db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"status":   "ok",
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			response.Error(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
				"Database is unreachable", status)
			return
		}

		if err := cache.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["cache"] = "unreachable"
		}

		response.JSON(w, status)
	}
}
