package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReplayStatusPending   = "pending"
	ReplayStatusRunning   = "running"
	ReplayStatusCompleted = "completed"
	ReplayStatusFailed    = "failed"
)

// ReplaySet is a named, immutable list of trace IDs selected for
// re-execution and comparison.
type ReplaySet struct {
	ReplayID        uuid.UUID `db:"replay_id"        json:"replay_id"`
	Name            string    `db:"name"             json:"name"`
	Description     string    `db:"description"      json:"description,omitempty"`
	TraceIDs        []string  `db:"trace_ids"        json:"trace_ids"`
	TargetModel     string    `db:"target_model"     json:"target_model,omitempty"`
	Status          string    `db:"status"           json:"status"`
	TotalTraces     int       `db:"total_traces"     json:"total_traces"`
	CompletedTraces int       `db:"completed_traces" json:"completed_traces"`
	ErrorMessage    *string   `db:"error_message"    json:"error_message,omitempty"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"       json:"updated_at"`
}

// ReplayResult is one (original, replay) comparison row belonging to a
// ReplaySet. Rows are immutable once written.
type ReplayResult struct {
	ID               uuid.UUID   `db:"id"                json:"id"`
	ReplayID         uuid.UUID   `db:"replay_id"         json:"replay_id"`
	TraceID          string      `db:"trace_id"          json:"trace_id"`
	OriginalResponse string      `db:"original_response" json:"original_response"`
	ReplayResponse   string      `db:"replay_response"   json:"replay_response"`
	OriginalCostUsd  float64     `db:"original_cost_usd" json:"original_cost_usd"`
	ReplayCostUsd    float64     `db:"replay_cost_usd"   json:"replay_cost_usd"`
	OriginalLatency  int64       `db:"original_latency_ms" json:"original_latency_ms"`
	ReplayLatency    int64       `db:"replay_latency_ms" json:"replay_latency_ms"`
	HashSimilarity   float64     `db:"hash_similarity"   json:"hash_similarity"`
	SemanticScore    float64     `db:"semantic_score"    json:"semantic_score"`
	Diff             DiffSummary `db:"diff_summary"      json:"diff_summary"`
	ExecutedAt       time.Time   `db:"executed_at"       json:"executed_at"`
}

// TraceObservation is one side of a diff comparison: the measurable outputs
// of a single LLM call.
type TraceObservation struct {
	Response         string  `json:"response"`
	CostUsd          float64 `json:"cost_usd"`
	LatencyMs        int64   `json:"latency_ms"`
	PromptTokens     *int    `json:"prompt_tokens,omitempty"`
	CompletionTokens *int    `json:"completion_tokens,omitempty"`
}

// Delta is an absolute + percent change between two observations.
// Percent is 0 when the original value is 0, never NaN or Inf.
type Delta struct {
	Absolute float64 `json:"absolute"`
	Percent  float64 `json:"percent"`
}

// TokenDelta reports token count changes when both sides report them.
type TokenDelta struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// DiffSummary is the structured delta between an original trace and its
// replay.
type DiffSummary struct {
	HashSimilarity  float64     `json:"hash_similarity"`
	SemanticScore   float64     `json:"semantic_score"`
	CostDelta       Delta       `json:"cost_delta"`
	LatencyDelta    Delta       `json:"latency_delta"`
	TokenDelta      *TokenDelta `json:"token_delta,omitempty"`
	ResponseChanged bool        `json:"response_changed"`
}

// RegressionCounts tallies replays that got worse on each axis.
type RegressionCounts struct {
	Cost    int `json:"cost"`
	Latency int `json:"latency"`
	Quality int `json:"quality"`
}

// AggregateStats reduces a batch of replay results to summary statistics.
type AggregateStats struct {
	TotalResults      int              `json:"total_results"`
	AvgHashSimilarity float64          `json:"avg_hash_similarity"`
	AvgSemanticScore  float64          `json:"avg_semantic_score"`
	AvgCostDelta      float64          `json:"avg_cost_diff"`
	AvgLatencyDelta   float64          `json:"avg_latency_diff"`
	ResponseChanges   int              `json:"response_changes"`
	Regressions       RegressionCounts `json:"regressions"`
}
