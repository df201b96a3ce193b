package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lumina-ai/lumina/internal/api/response"
	"github.com/lumina-ai/lumina/pkg/models"
)

// TracePublisher appends traces to the analysis stream.
type TracePublisher interface {
	Publish(ctx context.Context, trace *models.Trace) (string, error)
}

// NewIngestHandler returns an http.HandlerFunc for POST /api/v1/traces.
// The trace is enqueued for asynchronous analysis; the response is 202
// regardless of what the pipeline later decides about it.
func NewIngestHandler(pub TracePublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var trace models.Trace
		if err := json.NewDecoder(r.Body).Decode(&trace); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		details := map[string][]string{}
		if trace.TraceID == "" {
			details["trace_id"] = []string{"trace_id is required"}
		}
		if trace.ServiceName == "" {
			details["service_name"] = []string{"service_name is required"}
		}
		if trace.Endpoint == "" {
			details["endpoint"] = []string{"endpoint is required"}
		}
		if trace.Model == "" {
			details["model"] = []string{"model is required"}
		}
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid trace", details)
			return
		}

		if trace.Timestamp.IsZero() {
			trace.Timestamp = time.Now().UTC()
		}
		if trace.Status == "" {
			trace.Status = models.TraceStatusSuccess
		}
		if trace.ResponseHash == "" && trace.Response != "" {
			sum := sha256.Sum256([]byte(trace.Response))
			trace.ResponseHash = hex.EncodeToString(sum[:])
		}

		entryID, err := pub.Publish(r.Context(), &trace)
		if err != nil {
			response.Error(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE",
				"Trace could not be enqueued for analysis", nil)
			return
		}

		response.Accepted(w, map[string]string{
			"trace_id": trace.TraceID,
			"entry_id": entryID,
		})
	}
}
