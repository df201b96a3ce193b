// Package diffs compares original and replayed trace observations and
// reduces batches of comparisons to aggregate statistics.
package diffs

import (
	"github.com/lumina-ai/lumina/pkg/models"
	"github.com/lumina-ai/lumina/pkg/similarity"
)

// qualityRegressionFloor marks a replay as a quality regression when its
// semantic score drops below this value.
const qualityRegressionFloor = 0.95

// Compare produces the structured delta between an original observation and
// its replay.
func Compare(original, replay models.TraceObservation) models.DiffSummary {
	hashSim := similarity.Structural(original.Response, replay.Response)

	d := models.DiffSummary{
		HashSimilarity:  hashSim,
		SemanticScore:   similarity.Lexical(original.Response, replay.Response),
		CostDelta:       delta(original.CostUsd, replay.CostUsd),
		LatencyDelta:    delta(float64(original.LatencyMs), float64(replay.LatencyMs)),
		ResponseChanged: hashSim < 1.0,
	}

	if original.PromptTokens != nil && replay.PromptTokens != nil &&
		original.CompletionTokens != nil && replay.CompletionTokens != nil {
		d.TokenDelta = &models.TokenDelta{
			Prompt:     *replay.PromptTokens - *original.PromptTokens,
			Completion: *replay.CompletionTokens - *original.CompletionTokens,
		}
	}

	return d
}

// delta computes absolute and percent change. Percent is defined as 0 when
// the original value is 0, never NaN or Inf.
func delta(original, replay float64) models.Delta {
	d := models.Delta{Absolute: replay - original}
	if original != 0 {
		d.Percent = d.Absolute / original * 100
	}
	return d
}

// Aggregate reduces a batch of replay results to summary statistics.
// An empty batch returns a zeroed struct.
func Aggregate(results []models.ReplayResult) models.AggregateStats {
	stats := models.AggregateStats{TotalResults: len(results)}
	if len(results) == 0 {
		return stats
	}

	var hashSum, semSum, costSum, latSum float64
	for _, r := range results {
		hashSum += r.HashSimilarity
		semSum += r.SemanticScore
		costSum += r.Diff.CostDelta.Absolute
		latSum += r.Diff.LatencyDelta.Absolute

		if r.Diff.ResponseChanged {
			stats.ResponseChanges++
		}
		if r.Diff.CostDelta.Absolute > 0 {
			stats.Regressions.Cost++
		}
		if r.Diff.LatencyDelta.Absolute > 0 {
			stats.Regressions.Latency++
		}
		if r.SemanticScore < qualityRegressionFloor {
			stats.Regressions.Quality++
		}
	}

	n := float64(len(results))
	stats.AvgHashSimilarity = hashSum / n
	stats.AvgSemanticScore = semSum / n
	stats.AvgCostDelta = costSum / n
	stats.AvgLatencyDelta = latSum / n
	return stats
}
