package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lumina-ai/lumina/internal/api/response"
	"github.com/lumina-ai/lumina/internal/store"
	"github.com/lumina-ai/lumina/pkg/models"
)

// AlertReader provides read access to persisted alerts.
type AlertReader interface {
	GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, int, error)
}

// AlertLifecycle applies operator status transitions.
type AlertLifecycle interface {
	Acknowledge(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	Resolve(ctx context.Context, id uuid.UUID) (*models.Alert, error)
}

// NewListAlertsHandler returns an http.HandlerFunc for GET /api/v1/alerts.
func NewListAlertsHandler(reader AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := store.AlertFilter{
			CustomerID:  q.Get("customer_id"),
			ServiceName: q.Get("service"),
			AlertType:   q.Get("type"),
			Severity:    q.Get("severity"),
			Status:      q.Get("status"),
			Page:        queryInt(q.Get("page"), 1, 1, 1<<30),
			Limit:       queryInt(q.Get("limit"), 20, 1, 100),
		}

		if raw := q.Get("since"); raw != "" {
			since, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"since must be a valid RFC3339 timestamp", nil)
				return
			}
			filter.Since = since
		}

		alerts, total, err := reader.ListAlerts(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Collection(w, alerts, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewGetAlertHandler returns an http.HandlerFunc for GET /api/v1/alerts/{alertID}.
func NewGetAlertHandler(reader AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := alertID(w, r)
		if !ok {
			return
		}

		alert, err := reader.GetAlert(r.Context(), id)
		if err != nil {
			alertError(w, err)
			return
		}
		response.JSON(w, alert)
	}
}

// NewAcknowledgeAlertHandler returns an http.HandlerFunc for
// POST /api/v1/alerts/{alertID}/acknowledge.
func NewAcknowledgeAlertHandler(lifecycle AlertLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := alertID(w, r)
		if !ok {
			return
		}

		alert, err := lifecycle.Acknowledge(r.Context(), id)
		if err != nil {
			alertError(w, err)
			return
		}
		response.JSON(w, alert)
	}
}

// NewResolveAlertHandler returns an http.HandlerFunc for
// POST /api/v1/alerts/{alertID}/resolve.
func NewResolveAlertHandler(lifecycle AlertLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := alertID(w, r)
		if !ok {
			return
		}

		alert, err := lifecycle.Resolve(r.Context(), id)
		if err != nil {
			alertError(w, err)
			return
		}
		response.JSON(w, alert)
	}
}

func alertID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "alertID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func alertError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Alert not found", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}

func queryInt(raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return def
	}
	if n > max {
		return max
	}
	return n
}
