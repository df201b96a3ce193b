package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lumina-ai/lumina/internal/api/middleware"
	"github.com/lumina-ai/lumina/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	IngestHandler http.HandlerFunc

	ListAlertsHandler       http.HandlerFunc
	GetAlertHandler         http.HandlerFunc
	AcknowledgeAlertHandler http.HandlerFunc
	ResolveAlertHandler     http.HandlerFunc

	CreateReplayHandler    http.HandlerFunc
	RunReplayHandler       http.HandlerFunc
	GetReplayHandler       http.HandlerFunc
	ListReplayDiffsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Rate-limited routes
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/traces", orNotImplemented(deps.IngestHandler))

		r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlertsHandler))
		r.Get("/api/v1/alerts/{alertID}", orNotImplemented(deps.GetAlertHandler))
		r.Post("/api/v1/alerts/{alertID}/ack", orNotImplemented(deps.AcknowledgeAlertHandler))
		r.Post("/api/v1/alerts/{alertID}/resolve", orNotImplemented(deps.ResolveAlertHandler))

		r.Post("/api/v1/replays", orNotImplemented(deps.CreateReplayHandler))
		r.Post("/api/v1/replays/{replayID}/run", orNotImplemented(deps.RunReplayHandler))
		r.Get("/api/v1/replays/{replayID}", orNotImplemented(deps.GetReplayHandler))
		r.Get("/api/v1/replays/{replayID}/diffs", orNotImplemented(deps.ListReplayDiffsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
