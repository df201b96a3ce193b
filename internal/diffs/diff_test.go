package diffs

import (
	"math"
	"testing"

	"github.com/lumina-ai/lumina/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestCompare_IdenticalObservations(t *testing.T) {
	obs := models.TraceObservation{
		Response:  "The same response text.",
		CostUsd:   0.01,
		LatencyMs: 250,
	}

	d := Compare(obs, obs)

	if d.HashSimilarity != 1.0 {
		t.Errorf("HashSimilarity = %v, want 1.0", d.HashSimilarity)
	}
	if d.CostDelta.Absolute != 0 || d.CostDelta.Percent != 0 {
		t.Errorf("CostDelta = %+v, want zeros", d.CostDelta)
	}
	if d.ResponseChanged {
		t.Error("ResponseChanged = true for identical responses")
	}
}

func TestCompare_ZeroOriginalCost(t *testing.T) {
	original := models.TraceObservation{Response: "r", CostUsd: 0}
	replay := models.TraceObservation{Response: "r", CostUsd: 0.01}

	d := Compare(original, replay)

	if d.CostDelta.Absolute != 0.01 {
		t.Errorf("CostDelta.Absolute = %v, want 0.01", d.CostDelta.Absolute)
	}
	if d.CostDelta.Percent != 0 {
		t.Errorf("CostDelta.Percent = %v, want 0 (no division by zero)", d.CostDelta.Percent)
	}
	if math.IsNaN(d.CostDelta.Percent) || math.IsInf(d.CostDelta.Percent, 0) {
		t.Error("CostDelta.Percent is NaN or Inf")
	}
}

func TestCompare_CostAndLatencyDeltas(t *testing.T) {
	original := models.TraceObservation{Response: "a b c", CostUsd: 0.10, LatencyMs: 100}
	replay := models.TraceObservation{Response: "a b c", CostUsd: 0.15, LatencyMs: 50}

	d := Compare(original, replay)

	if math.Abs(d.CostDelta.Absolute-0.05) > 1e-9 {
		t.Errorf("CostDelta.Absolute = %v, want 0.05", d.CostDelta.Absolute)
	}
	if math.Abs(d.CostDelta.Percent-50) > 1e-9 {
		t.Errorf("CostDelta.Percent = %v, want 50", d.CostDelta.Percent)
	}
	if d.LatencyDelta.Absolute != -50 {
		t.Errorf("LatencyDelta.Absolute = %v, want -50", d.LatencyDelta.Absolute)
	}
	if d.LatencyDelta.Percent != -50 {
		t.Errorf("LatencyDelta.Percent = %v, want -50", d.LatencyDelta.Percent)
	}
}

func TestCompare_TokenDelta(t *testing.T) {
	original := models.TraceObservation{
		Response:         "r",
		PromptTokens:     intPtr(100),
		CompletionTokens: intPtr(200),
	}
	replay := models.TraceObservation{
		Response:         "r",
		PromptTokens:     intPtr(100),
		CompletionTokens: intPtr(250),
	}

	d := Compare(original, replay)
	if d.TokenDelta == nil {
		t.Fatal("TokenDelta = nil, want populated")
	}
	if d.TokenDelta.Prompt != 0 || d.TokenDelta.Completion != 50 {
		t.Errorf("TokenDelta = %+v, want {0 50}", d.TokenDelta)
	}
}

func TestCompare_TokenDeltaOmittedWhenMissing(t *testing.T) {
	original := models.TraceObservation{Response: "r", PromptTokens: intPtr(100)}
	replay := models.TraceObservation{Response: "r"}

	if d := Compare(original, replay); d.TokenDelta != nil {
		t.Errorf("TokenDelta = %+v, want nil when either side lacks counts", d.TokenDelta)
	}
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil)
	if stats.TotalResults != 0 || stats.AvgHashSimilarity != 0 || stats.ResponseChanges != 0 {
		t.Errorf("Aggregate(nil) = %+v, want zeroed struct", stats)
	}
}

func TestAggregate_CountsAndMeans(t *testing.T) {
	results := []models.ReplayResult{
		{
			HashSimilarity: 1.0,
			SemanticScore:  1.0,
			Diff:           models.DiffSummary{ResponseChanged: false},
		},
		{
			HashSimilarity: 0.9,
			SemanticScore:  0.96,
			Diff: models.DiffSummary{
				ResponseChanged: true,
				CostDelta:       models.Delta{Absolute: 0.02},
			},
		},
		{
			HashSimilarity: 0.5,
			SemanticScore:  0.4,
			Diff: models.DiffSummary{
				ResponseChanged: true,
				LatencyDelta:    models.Delta{Absolute: 120},
			},
		},
	}

	stats := Aggregate(results)

	if stats.TotalResults != 3 {
		t.Errorf("TotalResults = %d, want 3", stats.TotalResults)
	}
	if stats.ResponseChanges != 2 {
		t.Errorf("ResponseChanges = %d, want 2", stats.ResponseChanges)
	}
	if stats.Regressions.Quality != 1 {
		t.Errorf("Regressions.Quality = %d, want 1 (only the 0.5 result)", stats.Regressions.Quality)
	}
	if stats.Regressions.Cost != 1 {
		t.Errorf("Regressions.Cost = %d, want 1", stats.Regressions.Cost)
	}
	if stats.Regressions.Latency != 1 {
		t.Errorf("Regressions.Latency = %d, want 1", stats.Regressions.Latency)
	}
	if math.Abs(stats.AvgHashSimilarity-0.8) > 1e-9 {
		t.Errorf("AvgHashSimilarity = %v, want 0.8", stats.AvgHashSimilarity)
	}
}
