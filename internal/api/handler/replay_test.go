package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lumina-ai/lumina/internal/replay"
	"github.com/lumina-ai/lumina/internal/store"
	"github.com/lumina-ai/lumina/pkg/models"
)

// --- mock replay service ---

type mockReplayService struct {
	createFn    func(ctx context.Context, name, description string, traceIDs []string, targetModel string) (*models.ReplaySet, error)
	getFn       func(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error)
	runFn       func(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error)
	summarizeFn func(ctx context.Context, id uuid.UUID) (*replay.Summary, error)
	diffsFn     func(ctx context.Context, id uuid.UUID, limit, offset int, onlyChanges bool) ([]*models.ReplayResult, int, error)
}

func (m *mockReplayService) CreateSet(ctx context.Context, name, description string, traceIDs []string, targetModel string) (*models.ReplaySet, error) {
	return m.createFn(ctx, name, description, traceIDs, targetModel)
}

func (m *mockReplayService) Get(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error) {
	return m.getFn(ctx, id)
}

func (m *mockReplayService) RunSet(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error) {
	return m.runFn(ctx, id)
}

func (m *mockReplayService) Summarize(ctx context.Context, id uuid.UUID) (*replay.Summary, error) {
	return m.summarizeFn(ctx, id)
}

func (m *mockReplayService) Diffs(ctx context.Context, id uuid.UUID, limit, offset int, onlyChanges bool) ([]*models.ReplayResult, int, error) {
	return m.diffsFn(ctx, id, limit, offset, onlyChanges)
}

func testReplaySet(id uuid.UUID) *models.ReplaySet {
	return &models.ReplaySet{
		ReplayID:    id,
		Name:        "regression-check",
		TraceIDs:    []string{"tr-1", "tr-2"},
		Status:      models.ReplayStatusPending,
		TotalTraces: 2,
	}
}

// --- create ---

func TestCreateReplayHandler_Created(t *testing.T) {
	id := uuid.New()
	svc := &mockReplayService{
		createFn: func(_ context.Context, name, _ string, traceIDs []string, targetModel string) (*models.ReplaySet, error) {
			if name != "regression-check" || len(traceIDs) != 2 || targetModel != "gpt-4o-mini" {
				t.Errorf("unexpected args: %s %v %s", name, traceIDs, targetModel)
			}
			return testReplaySet(id), nil
		},
	}

	body, _ := json.Marshal(map[string]any{
		"name":         "regression-check",
		"trace_ids":    []string{"tr-1", "tr-2"},
		"target_model": "gpt-4o-mini",
	})

	h := NewCreateReplayHandler(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/replays", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateReplayHandler_MissingName(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"trace_ids": []string{"tr-1"}})

	h := NewCreateReplayHandler(&mockReplayService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/replays", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateReplayHandler_MissingTraceIDs(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"name": "empty"})

	h := NewCreateReplayHandler(&mockReplayService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/replays", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateReplayHandler_UnknownTraces(t *testing.T) {
	svc := &mockReplayService{
		createFn: func(_ context.Context, _, _ string, _ []string, _ string) (*models.ReplaySet, error) {
			return nil, replay.ErrUnknownTraces
		},
	}

	body, _ := json.Marshal(map[string]any{
		"name":      "bad",
		"trace_ids": []string{"tr-missing"},
	})

	h := NewCreateReplayHandler(svc)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/replays", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := parseErrCode(t, rec); code != "UNKNOWN_TRACES" {
		t.Errorf("expected UNKNOWN_TRACES, got %s", code)
	}
}

// --- run ---

func TestRunReplayHandler_Accepted(t *testing.T) {
	id := uuid.New()
	ran := make(chan uuid.UUID, 1)
	svc := &mockReplayService{
		getFn: func(_ context.Context, got uuid.UUID) (*models.ReplaySet, error) {
			return testReplaySet(got), nil
		},
		runFn: func(_ context.Context, got uuid.UUID) (*models.ReplaySet, error) {
			ran <- got
			return testReplaySet(got), nil
		},
	}

	h := NewRunReplayHandler(svc)
	rec := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodPost,
		"/api/v1/replays/"+id.String()+"/run", nil), "replayID", id.String())
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	select {
	case got := <-ran:
		if got != id {
			t.Errorf("expected run for %s, got %s", id, got)
		}
	case <-time.After(time.Second):
		t.Fatal("run was never started")
	}
}

func TestRunReplayHandler_NotFound(t *testing.T) {
	svc := &mockReplayService{
		getFn: func(_ context.Context, _ uuid.UUID) (*models.ReplaySet, error) {
			return nil, store.ErrNotFound
		},
	}

	id := uuid.New()
	h := NewRunReplayHandler(svc)
	rec := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodPost,
		"/api/v1/replays/"+id.String()+"/run", nil), "replayID", id.String())
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// --- get / summary ---

func TestGetReplayHandler(t *testing.T) {
	id := uuid.New()
	svc := &mockReplayService{
		summarizeFn: func(_ context.Context, got uuid.UUID) (*replay.Summary, error) {
			set := testReplaySet(got)
			set.Status = models.ReplayStatusCompleted
			return &replay.Summary{
				Set:   set,
				Stats: models.AggregateStats{TotalResults: 2, ResponseChanges: 1},
			}, nil
		},
	}

	h := NewGetReplayHandler(svc)
	rec := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodGet,
		"/api/v1/replays/"+id.String(), nil), "replayID", id.String())
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var env struct {
		Data struct {
			Set     models.ReplaySet      `json:"replay_set"`
			Summary models.AggregateStats `json:"summary"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Set.Status != models.ReplayStatusCompleted {
		t.Errorf("unexpected status %q", env.Data.Set.Status)
	}
	if env.Data.Summary.ResponseChanges != 1 {
		t.Errorf("unexpected response_changes %d", env.Data.Summary.ResponseChanges)
	}
}

// --- diffs ---

func TestListReplayDiffsHandler_QueryParsing(t *testing.T) {
	id := uuid.New()
	var gotLimit, gotOffset int
	var gotOnlyChanges bool
	svc := &mockReplayService{
		diffsFn: func(_ context.Context, _ uuid.UUID, limit, offset int, onlyChanges bool) ([]*models.ReplayResult, int, error) {
			gotLimit, gotOffset, gotOnlyChanges = limit, offset, onlyChanges
			return []*models.ReplayResult{{ReplayID: id, TraceID: "tr-1"}}, 30, nil
		},
	}

	h := NewListReplayDiffsHandler(svc)
	rec := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodGet,
		"/api/v1/replays/"+id.String()+"/diffs?limit=10&offset=20&only_changes=true", nil),
		"replayID", id.String())
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 10 || gotOffset != 20 || !gotOnlyChanges {
		t.Errorf("query not parsed: limit=%d offset=%d only_changes=%v", gotLimit, gotOffset, gotOnlyChanges)
	}

	var env struct {
		Meta struct {
			Limit   int  `json:"limit"`
			Offset  int  `json:"offset"`
			Total   int  `json:"total"`
			HasNext bool `json:"has_next"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Meta.Total != 30 || !env.Meta.HasNext {
		t.Errorf("unexpected meta: %+v", env.Meta)
	}
}

func TestListReplayDiffsHandler_Defaults(t *testing.T) {
	id := uuid.New()
	var gotLimit, gotOffset int
	svc := &mockReplayService{
		diffsFn: func(_ context.Context, _ uuid.UUID, limit, offset int, _ bool) ([]*models.ReplayResult, int, error) {
			gotLimit, gotOffset = limit, offset
			return nil, 0, nil
		},
	}

	h := NewListReplayDiffsHandler(svc)
	rec := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodGet,
		"/api/v1/replays/"+id.String()+"/diffs", nil), "replayID", id.String())
	h.ServeHTTP(rec, r)

	if gotLimit != 50 || gotOffset != 0 {
		t.Errorf("expected defaults limit 50 offset 0, got %d %d", gotLimit, gotOffset)
	}
}

func TestListReplayDiffsHandler_NotFound(t *testing.T) {
	svc := &mockReplayService{
		diffsFn: func(_ context.Context, _ uuid.UUID, _, _ int, _ bool) ([]*models.ReplayResult, int, error) {
			return nil, 0, store.ErrNotFound
		},
	}

	id := uuid.New()
	h := NewListReplayDiffsHandler(svc)
	rec := httptest.NewRecorder()
	r := withURLParam(httptest.NewRequest(http.MethodGet,
		"/api/v1/replays/"+id.String()+"/diffs", nil), "replayID", id.String())
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
