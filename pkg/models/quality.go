package models

import "context"

const (
	ScoringMethodHashOnly = "hash_only"
	ScoringMethodSemantic = "semantic"
	ScoringMethodHybrid   = "hybrid"
)

// QualityScore is the output of the tiered quality scorer for one trace.
type QualityScore struct {
	Score          float64 `json:"score"`
	HashSimilarity float64 `json:"hash_similarity"`
	SemanticScore  float64 `json:"semantic_score"`
	Method         string  `json:"scoring_method"`
	Reasoning      string  `json:"reasoning,omitempty"`
	CacheHit       bool    `json:"cache_hit"`
	Degraded       bool    `json:"degraded"`
}

// ScoreRequest is the input to an external quality judgment.
type ScoreRequest struct {
	Prompt   string
	Response string
}

// ScoreResult is one judge verdict: a calibrated 0-1 quality score with
// optional reasoning text.
type ScoreResult struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// QualityJudge is the interface all external judge integrations implement.
// Callers inject this interface rather than a specific provider.
type QualityJudge interface {
	// Score evaluates a (prompt, response) pair against a fixed rubric and
	// returns a 0-1 quality score.
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string
}
