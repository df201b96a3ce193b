package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lumina-ai/lumina/internal/api/response"
	"github.com/lumina-ai/lumina/internal/replay"
	"github.com/lumina-ai/lumina/internal/store"
	"github.com/lumina-ai/lumina/pkg/models"
)

// ReplayService defines the replay operations the handlers depend on.
type ReplayService interface {
	CreateSet(ctx context.Context, name, description string, traceIDs []string, targetModel string) (*models.ReplaySet, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error)
	RunSet(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error)
	Summarize(ctx context.Context, id uuid.UUID) (*replay.Summary, error)
	Diffs(ctx context.Context, id uuid.UUID, limit, offset int, onlyChanges bool) ([]*models.ReplayResult, int, error)
}

// NewCreateReplayHandler returns an http.HandlerFunc for POST /api/v1/replays.
func NewCreateReplayHandler(svc ReplayService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			TraceIDs    []string `json:"trace_ids"`
			TargetModel string   `json:"target_model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}
		if len(req.TraceIDs) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "trace_ids is required", nil)
			return
		}

		set, err := svc.CreateSet(r.Context(), req.Name, req.Description, req.TraceIDs, req.TargetModel)
		if err != nil {
			switch {
			case errors.Is(err, replay.ErrUnknownTraces):
				response.Error(w, http.StatusBadRequest, "UNKNOWN_TRACES", err.Error(), nil)
			case errors.Is(err, replay.ErrEmptyTraceSet):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "trace_ids is required", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Created(w, set)
	}
}

// NewRunReplayHandler returns an http.HandlerFunc for
// POST /api/v1/replays/{replayID}/run. Execution happens in the background;
// progress is visible on the status endpoint. Running a completed set is a
// no-op and an interrupted run picks up where it left off.
func NewRunReplayHandler(svc ReplayService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := replayID(w, r)
		if !ok {
			return
		}

		set, err := svc.Get(r.Context(), id)
		if err != nil {
			replayError(w, err)
			return
		}

		go func() {
			// Detached from the request context: the run outlives the request.
			if _, err := svc.RunSet(context.Background(), id); err != nil {
				slog.Error("replay run failed", "replay_id", id, "error", err)
			}
		}()

		response.Accepted(w, set)
	}
}

// NewGetReplayHandler returns an http.HandlerFunc for GET /api/v1/replays/{replayID}.
// The response includes the set itself and aggregate stats over the results
// written so far.
func NewGetReplayHandler(svc ReplayService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := replayID(w, r)
		if !ok {
			return
		}

		summary, err := svc.Summarize(r.Context(), id)
		if err != nil {
			replayError(w, err)
			return
		}
		response.JSON(w, summary)
	}
}

// NewListReplayDiffsHandler returns an http.HandlerFunc for
// GET /api/v1/replays/{replayID}/diffs.
func NewListReplayDiffsHandler(svc ReplayService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := replayID(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		limit := queryInt(q.Get("limit"), 50, 1, 200)
		offset := queryInt(q.Get("offset"), 0, 0, 1<<30)
		onlyChanges := q.Get("only_changes") == "true"

		results, total, err := svc.Diffs(r.Context(), id, limit, offset, onlyChanges)
		if err != nil {
			replayError(w, err)
			return
		}

		response.CollectionOffset(w, results, response.OffsetMeta{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasNext: offset+limit < total,
		})
	}
}

func replayID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "replayID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "replayID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func replayError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Replay set not found", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
