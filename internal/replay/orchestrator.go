package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumina-ai/lumina/internal/diffs"
	"github.com/lumina-ai/lumina/internal/store"
	"github.com/lumina-ai/lumina/pkg/models"
)

var (
	ErrUnknownTraces = errors.New("replay set references unknown traces")
	ErrEmptyTraceSet = errors.New("replay set needs at least one trace")
)

// Summary is the status + aggregate view of a replay set.
type Summary struct {
	Set   *models.ReplaySet     `json:"replay_set"`
	Stats models.AggregateStats `json:"summary"`
}

// Orchestrator drives replay sets: creation, sequential execution with
// persisted per-trace progress, and result reads. Execution is resumable;
// traces that already have a result are skipped on re-run.
type Orchestrator struct {
	store    store.Store
	executor Executor
}

func NewOrchestrator(s store.Store, executor Executor) *Orchestrator {
	return &Orchestrator{store: s, executor: executor}
}

// CreateSet validates every trace ID exists and persists a pending set.
// Any unknown ID rejects the whole set before any processing.
func (o *Orchestrator) CreateSet(ctx context.Context, name, description string, traceIDs []string, targetModel string) (*models.ReplaySet, error) {
	if len(traceIDs) == 0 {
		return nil, ErrEmptyTraceSet
	}

	missing, err := o.store.MissingTraceIDs(ctx, traceIDs)
	if err != nil {
		return nil, fmt.Errorf("validate trace ids: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownTraces, missing)
	}

	now := time.Now().UTC()
	set := &models.ReplaySet{
		ReplayID:    uuid.New(),
		Name:        name,
		Description: description,
		TraceIDs:    traceIDs,
		TargetModel: targetModel,
		Status:      models.ReplayStatusPending,
		TotalTraces: len(traceIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.store.CreateReplaySet(ctx, set); err != nil {
		return nil, fmt.Errorf("create replay set: %w", err)
	}
	return set, nil
}

// RunSet executes all member traces sequentially. Legal from pending,
// failed, or a crashed run left in running; a completed set is returned
// unchanged. Progress is persisted after every trace, so a re-run resumes
// from the last written result.
func (o *Orchestrator) RunSet(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error) {
	set, err := o.store.GetReplaySet(ctx, id)
	if err != nil {
		return nil, err
	}
	if set.Status == models.ReplayStatusCompleted {
		return set, nil
	}

	if err := o.store.UpdateReplaySetStatus(ctx, id, models.ReplayStatusRunning); err != nil {
		return nil, fmt.Errorf("mark replay running: %w", err)
	}

	for _, traceID := range set.TraceIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		done, err := o.store.HasReplayResult(ctx, id, traceID)
		if err != nil {
			return nil, o.fail(ctx, id, fmt.Errorf("check existing result: %w", err))
		}
		if done {
			continue
		}

		if err := o.replayOne(ctx, set, traceID); err != nil {
			return nil, o.fail(ctx, id, err)
		}
	}

	if err := o.store.UpdateReplaySetStatus(ctx, id, models.ReplayStatusCompleted); err != nil {
		return nil, fmt.Errorf("mark replay completed: %w", err)
	}
	return o.store.GetReplaySet(ctx, id)
}

func (o *Orchestrator) replayOne(ctx context.Context, set *models.ReplaySet, traceID string) error {
	trace, err := o.store.GetTrace(ctx, traceID)
	if err != nil {
		return fmt.Errorf("trace %s: %w", traceID, err)
	}

	replayed, err := o.executor.Execute(ctx, trace, Target{Model: set.TargetModel})
	if err != nil {
		return fmt.Errorf("trace %s: %w", traceID, err)
	}

	original := models.TraceObservation{
		Response:         trace.Response,
		CostUsd:          trace.CostUsd,
		LatencyMs:        trace.LatencyMs,
		PromptTokens:     trace.PromptTokens,
		CompletionTokens: trace.CompletionTokens,
	}
	diff := diffs.Compare(original, replayed)

	result := &models.ReplayResult{
		ID:               uuid.New(),
		ReplayID:         set.ReplayID,
		TraceID:          traceID,
		OriginalResponse: trace.Response,
		ReplayResponse:   replayed.Response,
		OriginalCostUsd:  trace.CostUsd,
		ReplayCostUsd:    replayed.CostUsd,
		OriginalLatency:  trace.LatencyMs,
		ReplayLatency:    replayed.LatencyMs,
		HashSimilarity:   diff.HashSimilarity,
		SemanticScore:    diff.SemanticScore,
		Diff:             diff,
		ExecutedAt:       time.Now().UTC(),
	}
	if err := o.store.CreateReplayResult(ctx, result); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// A concurrent or resumed run already wrote this trace.
			return nil
		}
		return fmt.Errorf("persist result for trace %s: %w", traceID, err)
	}

	if err := o.store.IncrementReplayProgress(ctx, set.ReplayID); err != nil {
		return fmt.Errorf("record progress for trace %s: %w", traceID, err)
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, id uuid.UUID, cause error) error {
	if err := o.store.UpdateReplaySetStatus(ctx, id, models.ReplayStatusFailed,
		store.WithReplayError(cause.Error())); err != nil {
		slog.Error("mark replay failed", "replay_id", id, "error", err)
	}
	return cause
}

// Get returns a replay set by ID.
func (o *Orchestrator) Get(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error) {
	return o.store.GetReplaySet(ctx, id)
}

// Summarize returns the set plus aggregate stats over its written results.
func (o *Orchestrator) Summarize(ctx context.Context, id uuid.UUID) (*Summary, error) {
	set, err := o.store.GetReplaySet(ctx, id)
	if err != nil {
		return nil, err
	}

	results, _, err := o.store.ListReplayResults(ctx, store.ReplayResultFilter{
		ReplayID: id,
		Limit:    set.TotalTraces,
	})
	if err != nil {
		return nil, fmt.Errorf("load replay results: %w", err)
	}

	flat := make([]models.ReplayResult, len(results))
	for i, r := range results {
		flat[i] = *r
	}
	return &Summary{Set: set, Stats: diffs.Aggregate(flat)}, nil
}

// Diffs returns one page of per-trace results for a set.
func (o *Orchestrator) Diffs(ctx context.Context, id uuid.UUID, limit, offset int, onlyChanges bool) ([]*models.ReplayResult, int, error) {
	if _, err := o.store.GetReplaySet(ctx, id); err != nil {
		return nil, 0, err
	}
	return o.store.ListReplayResults(ctx, store.ReplayResultFilter{
		ReplayID:        id,
		ShowOnlyChanges: onlyChanges,
		Limit:           limit,
		Offset:          offset,
	})
}
