package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumina-ai/lumina/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Traces (read-only) ---

const traceColumns = `trace_id, span_id, parent_span_id, customer_id, service_name, endpoint,
	environment, model, provider, prompt, response, response_hash,
	prompt_tokens, completion_tokens, total_tokens, latency_ms, cost_usd,
	timestamp, status, error_message, metadata, tags`

func (s *PostgresStore) GetTrace(ctx context.Context, traceID string) (*models.Trace, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+traceColumns+` FROM traces WHERE trace_id = $1`, traceID)

	t, err := scanTrace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trace: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) MissingTraceIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT trace_id FROM traces WHERE trace_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("check trace ids: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan trace id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *PostgresStore) RecentCostSamples(ctx context.Context, service, endpoint string, since time.Time, limit int) ([]models.CostSample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cost_usd, latency_ms, timestamp FROM traces
		 WHERE service_name = $1 AND endpoint = $2 AND timestamp >= $3 AND status = 'success'
		 ORDER BY timestamp DESC LIMIT $4`, service, endpoint, since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent cost samples: %w", err)
	}
	defer rows.Close()

	var samples []models.CostSample
	for rows.Next() {
		var c models.CostSample
		if err := rows.Scan(&c.CostUsd, &c.LatencyMs, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan cost sample: %w", err)
		}
		samples = append(samples, c)
	}
	return samples, rows.Err()
}

func (s *PostgresStore) RecentResponses(ctx context.Context, service, endpoint string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT response FROM traces
		 WHERE service_name = $1 AND endpoint = $2 AND status = 'success'
		 ORDER BY timestamp DESC LIMIT $3`, service, endpoint, limit)
	if err != nil {
		return nil, fmt.Errorf("recent responses: %w", err)
	}
	defer rows.Close()

	var responses []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// --- Alerts ---

const alertColumns = `alert_id, trace_id, span_id, customer_id, service_name, endpoint, model,
	alert_type, severity, current_cost_usd, baseline_cost_usd, threshold_usd,
	cost_increase_percent, hash_similarity, semantic_score, scoring_method,
	current_latency_ms, baseline_latency_ms, reasoning, status, created_at,
	acknowledged_at, resolved_at`

func (s *PostgresStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	var (
		currentCost, baselineCost, thresholdUsd, increasePct *float64
		hashSim, semScore                                    *float64
		scoringMethod                                        *string
		currentLatency                                       *int64
		baselineLatency                                      *float64
	)
	if a.Cost != nil {
		currentCost = &a.Cost.CurrentCostUsd
		baselineCost = &a.Cost.BaselineCostUsd
		thresholdUsd = &a.Cost.ThresholdUsd
		increasePct = &a.Cost.CostIncreasePercent
	}
	if a.Quality != nil {
		hashSim = &a.Quality.HashSimilarity
		semScore = &a.Quality.SemanticScore
		scoringMethod = &a.Quality.ScoringMethod
	}
	if a.Latency != nil {
		currentLatency = &a.Latency.CurrentLatencyMs
		baselineLatency = &a.Latency.BaselineLatencyMs
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO alerts (`+alertColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		 ON CONFLICT (alert_id) DO NOTHING`,
		a.AlertID, a.TraceID, a.SpanID, a.CustomerID, a.ServiceName, a.Endpoint, a.Model,
		a.AlertType, a.Severity, currentCost, baselineCost, thresholdUsd,
		increasePct, hashSim, semScore, scoringMethod,
		currentLatency, baselineLatency, a.Reasoning, a.Status, a.CreatedAt,
		a.AcknowledgedAt, a.ResolvedAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE alert_id = $1`, id)

	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) UpdateAlertStatus(ctx context.Context, id uuid.UUID, status string, opts ...AlertUpdateOption) error {
	var params alertUpdateParams
	for _, opt := range opts {
		opt(&params)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = $2,
		        acknowledged_at = COALESCE($3, acknowledged_at),
		        resolved_at = COALESCE($4, resolved_at)
		 WHERE alert_id = $1`,
		id, status, params.AcknowledgedAt, params.ResolvedAt)
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, int, error) {
	where := `WHERE ($1 = '' OR customer_id = $1)
	  AND ($2 = '' OR service_name = $2)
	  AND ($3 = '' OR alert_type = $3)
	  AND ($4 = '' OR severity = $4)
	  AND ($5 = '' OR status = $5)
	  AND created_at >= $6`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	args := []any{filter.CustomerID, filter.ServiceName, filter.AlertType,
		filter.Severity, filter.Status, filter.Since}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts `+where+
			` ORDER BY created_at DESC LIMIT $7 OFFSET $8`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, total, rows.Err()
}

// --- Replay sets ---

func (s *PostgresStore) CreateReplaySet(ctx context.Context, set *models.ReplaySet) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO replay_sets (replay_id, name, description, trace_ids, target_model,
		    status, total_traces, completed_traces, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		set.ReplayID, set.Name, set.Description, set.TraceIDs, set.TargetModel,
		set.Status, set.TotalTraces, set.CompletedTraces, set.CreatedAt, set.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create replay set: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReplaySet(ctx context.Context, id uuid.UUID) (*models.ReplaySet, error) {
	var set models.ReplaySet
	err := s.pool.QueryRow(ctx,
		`SELECT replay_id, name, description, trace_ids, target_model, status,
		        total_traces, completed_traces, error_message, created_at, updated_at
		 FROM replay_sets WHERE replay_id = $1`, id).
		Scan(&set.ReplayID, &set.Name, &set.Description, &set.TraceIDs, &set.TargetModel,
			&set.Status, &set.TotalTraces, &set.CompletedTraces, &set.ErrorMessage,
			&set.CreatedAt, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get replay set: %w", err)
	}
	return &set, nil
}

func (s *PostgresStore) UpdateReplaySetStatus(ctx context.Context, id uuid.UUID, status string, opts ...ReplayUpdateOption) error {
	var params replayUpdateParams
	for _, opt := range opts {
		opt(&params)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE replay_sets SET status = $2,
		        error_message = COALESCE($3, error_message),
		        updated_at = NOW()
		 WHERE replay_id = $1`,
		id, status, params.ErrorMessage)
	if err != nil {
		return fmt.Errorf("update replay set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementReplayProgress(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE replay_sets
		 SET completed_traces = LEAST(completed_traces + 1, total_traces), updated_at = NOW()
		 WHERE replay_id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment replay progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Replay results ---

func (s *PostgresStore) CreateReplayResult(ctx context.Context, r *models.ReplayResult) error {
	diffJSON, err := json.Marshal(r.Diff)
	if err != nil {
		return fmt.Errorf("encode diff summary: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO replay_results (id, replay_id, trace_id, original_response, replay_response,
		    original_cost_usd, replay_cost_usd, original_latency_ms, replay_latency_ms,
		    hash_similarity, semantic_score, diff_summary, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.ReplayID, r.TraceID, r.OriginalResponse, r.ReplayResponse,
		r.OriginalCostUsd, r.ReplayCostUsd, r.OriginalLatency, r.ReplayLatency,
		r.HashSimilarity, r.SemanticScore, diffJSON, r.ExecutedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create replay result: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasReplayResult(ctx context.Context, replayID uuid.UUID, traceID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM replay_results WHERE replay_id = $1 AND trace_id = $2)`,
		replayID, traceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check replay result: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListReplayResults(ctx context.Context, filter ReplayResultFilter) ([]*models.ReplayResult, int, error) {
	where := `WHERE replay_id = $1 AND ($2 = false OR (diff_summary->>'response_changed')::boolean)`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM replay_results `+where,
		filter.ReplayID, filter.ShowOnlyChanges).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count replay results: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, replay_id, trace_id, original_response, replay_response,
		        original_cost_usd, replay_cost_usd, original_latency_ms, replay_latency_ms,
		        hash_similarity, semantic_score, diff_summary, executed_at
		 FROM replay_results `+where+`
		 ORDER BY executed_at ASC LIMIT $3 OFFSET $4`,
		filter.ReplayID, filter.ShowOnlyChanges, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list replay results: %w", err)
	}
	defer rows.Close()

	var results []*models.ReplayResult
	for rows.Next() {
		var (
			r        models.ReplayResult
			diffJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.ReplayID, &r.TraceID, &r.OriginalResponse, &r.ReplayResponse,
			&r.OriginalCostUsd, &r.ReplayCostUsd, &r.OriginalLatency, &r.ReplayLatency,
			&r.HashSimilarity, &r.SemanticScore, &diffJSON, &r.ExecutedAt); err != nil {
			return nil, 0, fmt.Errorf("scan replay result: %w", err)
		}
		if err := json.Unmarshal(diffJSON, &r.Diff); err != nil {
			return nil, 0, fmt.Errorf("decode diff summary: %w", err)
		}
		results = append(results, &r)
	}
	return results, total, rows.Err()
}

// --- scan helpers ---

func scanTrace(row pgx.Row) (*models.Trace, error) {
	var (
		t            models.Trace
		metadataJSON []byte
	)
	err := row.Scan(&t.TraceID, &t.SpanID, &t.ParentSpanID, &t.CustomerID, &t.ServiceName,
		&t.Endpoint, &t.Environment, &t.Model, &t.Provider, &t.Prompt, &t.Response,
		&t.ResponseHash, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens,
		&t.LatencyMs, &t.CostUsd, &t.Timestamp, &t.Status, &t.ErrorMessage,
		&metadataJSON, &t.Tags)
	if err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode trace metadata: %w", err)
		}
	}
	return &t, nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var (
		a models.Alert

		currentCost, baselineCost, thresholdUsd, increasePct *float64
		hashSim, semScore                                    *float64
		scoringMethod                                        *string
		currentLatency                                       *int64
		baselineLatency                                      *float64
	)
	err := row.Scan(&a.AlertID, &a.TraceID, &a.SpanID, &a.CustomerID, &a.ServiceName,
		&a.Endpoint, &a.Model, &a.AlertType, &a.Severity,
		&currentCost, &baselineCost, &thresholdUsd, &increasePct,
		&hashSim, &semScore, &scoringMethod,
		&currentLatency, &baselineLatency,
		&a.Reasoning, &a.Status, &a.CreatedAt, &a.AcknowledgedAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}

	if currentCost != nil {
		a.Cost = &models.CostDetail{
			CurrentCostUsd:      *currentCost,
			BaselineCostUsd:     deref(baselineCost),
			ThresholdUsd:        deref(thresholdUsd),
			CostIncreasePercent: deref(increasePct),
		}
	}
	if hashSim != nil {
		a.Quality = &models.QualityDetail{
			HashSimilarity: *hashSim,
			SemanticScore:  deref(semScore),
		}
		if scoringMethod != nil {
			a.Quality.ScoringMethod = *scoringMethod
		}
	}
	if currentLatency != nil {
		a.Latency = &models.LatencyDetail{
			CurrentLatencyMs:  *currentLatency,
			BaselineLatencyMs: deref(baselineLatency),
		}
	}
	return &a, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
