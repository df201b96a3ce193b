package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumina-ai/lumina/internal/baseline"
	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/pkg/models"
)

// Engine classifies analyzed traces into typed alerts. All thresholds come
// from configuration; the engine itself holds no policy constants.
type Engine struct {
	cfg config.AlertingConfig
}

func NewEngine(cfg config.AlertingConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate combines the baseline anomaly check and the quality score into at
// most one alert for the trace. Returns nil when nothing fired. The alert ID
// is derived from (traceID, alertType) so that reprocessing the same trace
// produces the same alert row.
func (e *Engine) Evaluate(trace *models.Trace, b models.Baseline, anomaly baseline.AnomalyCheck, quality models.QualityScore, meanLatencyMs float64) *models.Alert {
	costSpike := anomaly.Anomalous
	qualityDrop := quality.Score < e.cfg.QualityFloor
	latencySpike := e.cfg.LatencyMultiplier > 0 && meanLatencyMs > 0 &&
		float64(trace.LatencyMs) > e.cfg.LatencyMultiplier*meanLatencyMs

	var alertType string
	switch {
	case costSpike && qualityDrop:
		alertType = models.AlertTypeCostAndQuality
	case costSpike:
		alertType = models.AlertTypeCostSpike
	case qualityDrop:
		alertType = models.AlertTypeQualityDrop
	case latencySpike:
		alertType = models.AlertTypeLatencySpike
	default:
		return nil
	}

	alert := &models.Alert{
		AlertID:     models.DeterministicAlertID(trace.TraceID, alertType),
		TraceID:     trace.TraceID,
		SpanID:      trace.SpanID,
		CustomerID:  trace.CustomerID,
		ServiceName: trace.ServiceName,
		Endpoint:    trace.Endpoint,
		Model:       trace.Model,
		AlertType:   alertType,
		Severity:    e.severity(trace, anomaly, quality, costSpike, qualityDrop),
		Status:      models.AlertStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	var reasons []string
	if costSpike {
		alert.Cost = &models.CostDetail{
			CurrentCostUsd:      trace.CostUsd,
			BaselineCostUsd:     b.P50,
			ThresholdUsd:        anomaly.ThresholdUsed,
			CostIncreasePercent: anomaly.PercentageAboveP50,
		}
		reasons = append(reasons, fmt.Sprintf(
			"cost $%.4f exceeded %s threshold $%.4f (%.0f%% above baseline)",
			trace.CostUsd, e.cfg.Percentile, anomaly.ThresholdUsed, anomaly.PercentageAboveP50))
	}
	if qualityDrop {
		alert.Quality = &models.QualityDetail{
			HashSimilarity: quality.HashSimilarity,
			SemanticScore:  quality.SemanticScore,
			ScoringMethod:  quality.Method,
		}
		reasons = append(reasons, fmt.Sprintf(
			"quality score %.2f below floor %.2f (method %s)",
			quality.Score, e.cfg.QualityFloor, quality.Method))
	}
	if alertType == models.AlertTypeLatencySpike {
		alert.Latency = &models.LatencyDetail{
			CurrentLatencyMs:  trace.LatencyMs,
			BaselineLatencyMs: meanLatencyMs,
		}
		reasons = append(reasons, fmt.Sprintf(
			"latency %dms exceeded %.1fx trailing mean %.0fms",
			trace.LatencyMs, e.cfg.LatencyMultiplier, meanLatencyMs))
	}
	alert.Reasoning = strings.Join(reasons, "; ")

	return alert
}

// severity escalates to HIGH when the cost overshoot is large or the quality
// score is far below the floor.
func (e *Engine) severity(trace *models.Trace, anomaly baseline.AnomalyCheck, quality models.QualityScore, costSpike, qualityDrop bool) string {
	if costSpike && anomaly.ThresholdUsed > 0 &&
		trace.CostUsd > e.cfg.HighCostMultiplier*anomaly.ThresholdUsed {
		return models.SeverityHigh
	}
	if qualityDrop && quality.Score < e.cfg.HighScoreFloor {
		return models.SeverityHigh
	}
	if costSpike && qualityDrop {
		return models.SeverityHigh
	}
	if costSpike || qualityDrop {
		return models.SeverityMedium
	}
	return models.SeverityLow
}
