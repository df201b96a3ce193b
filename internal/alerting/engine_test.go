package alerting

import (
	"testing"

	"github.com/lumina-ai/lumina/internal/baseline"
	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlertingConfig() config.AlertingConfig {
	return config.AlertingConfig{
		QualityFloor:       0.70,
		MarginPercent:      20,
		Percentile:         "p95",
		HighCostMultiplier: 2.0,
		HighScoreFloor:     0.50,
		LatencyMultiplier:  0,
	}
}

func testTrace() *models.Trace {
	return &models.Trace{
		TraceID:     "tr-1",
		SpanID:      "sp-1",
		CustomerID:  "cust-1",
		ServiceName: "chat-svc",
		Endpoint:    "/v1/chat",
		Model:       "gpt-4o",
		CostUsd:     0.05,
		LatencyMs:   900,
	}
}

func okQuality() models.QualityScore {
	return models.QualityScore{Score: 0.9, HashSimilarity: 0.95, SemanticScore: 0.9, Method: "hash_only"}
}

func TestEvaluate_NoAlert(t *testing.T) {
	e := NewEngine(testAlertingConfig())

	alert := e.Evaluate(testTrace(), models.Baseline{P50: 0.04, P95: 0.06, P99: 0.07},
		baseline.AnomalyCheck{Anomalous: false}, okQuality(), 0)
	assert.Nil(t, alert)
}

func TestEvaluate_CostSpike(t *testing.T) {
	e := NewEngine(testAlertingConfig())

	trace := testTrace()
	trace.CostUsd = 0.30
	b := models.Baseline{P50: 0.10, P95: 0.20, P99: 0.22, SampleCount: 50}
	anomaly := baseline.AnomalyCheck{
		Anomalous:          true,
		ThresholdUsed:      0.24,
		BaselineValue:      0.20,
		PercentageAboveP50: 200,
	}

	alert := e.Evaluate(trace, b, anomaly, okQuality(), 0)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeCostSpike, alert.AlertType)
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, models.AlertStatusPending, alert.Status)
	require.NotNil(t, alert.Cost)
	assert.InDelta(t, 0.30, alert.Cost.CurrentCostUsd, 1e-9)
	assert.InDelta(t, 0.24, alert.Cost.ThresholdUsd, 1e-9)
	assert.Nil(t, alert.Quality)
	assert.Contains(t, alert.Reasoning, "p95")
}

func TestEvaluate_CostSpikeHighSeverity(t *testing.T) {
	// $0.50 against p95=$0.20 with 20% margin: threshold $0.24, and
	// 0.50 > 2 * 0.24 escalates to HIGH.
	e := NewEngine(testAlertingConfig())

	trace := testTrace()
	trace.CostUsd = 0.50
	b := models.Baseline{P50: 0.10, P95: 0.20, P99: 0.22, SampleCount: 50}
	anomaly := baseline.IsAnomalous(trace.CostUsd, b, baseline.P95, 20)
	require.True(t, anomaly.Anomalous)
	require.InDelta(t, 0.24, anomaly.ThresholdUsed, 1e-9)

	alert := e.Evaluate(trace, b, anomaly, okQuality(), 0)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeCostSpike, alert.AlertType)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
}

func TestEvaluate_QualityDrop(t *testing.T) {
	e := NewEngine(testAlertingConfig())

	quality := models.QualityScore{Score: 0.60, HashSimilarity: 0.55, SemanticScore: 0.60, Method: "semantic"}
	alert := e.Evaluate(testTrace(), models.Baseline{}, baseline.AnomalyCheck{}, quality, 0)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeQualityDrop, alert.AlertType)
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	require.NotNil(t, alert.Quality)
	assert.Equal(t, "semantic", alert.Quality.ScoringMethod)
	assert.Nil(t, alert.Cost)
}

func TestEvaluate_QualityDropHighSeverity(t *testing.T) {
	e := NewEngine(testAlertingConfig())

	quality := models.QualityScore{Score: 0.40, Method: "semantic"}
	alert := e.Evaluate(testTrace(), models.Baseline{}, baseline.AnomalyCheck{}, quality, 0)
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
}

func TestEvaluate_CostAndQuality(t *testing.T) {
	e := NewEngine(testAlertingConfig())

	trace := testTrace()
	trace.CostUsd = 0.30
	anomaly := baseline.AnomalyCheck{Anomalous: true, ThresholdUsed: 0.24, PercentageAboveP50: 200}
	quality := models.QualityScore{Score: 0.60, Method: "hybrid"}

	alert := e.Evaluate(trace, models.Baseline{P50: 0.10}, anomaly, quality, 0)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeCostAndQuality, alert.AlertType)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.NotNil(t, alert.Cost)
	assert.NotNil(t, alert.Quality)
}

func TestEvaluate_LatencySpikeDisabledByDefault(t *testing.T) {
	e := NewEngine(testAlertingConfig())

	trace := testTrace()
	trace.LatencyMs = 50000

	alert := e.Evaluate(trace, models.Baseline{}, baseline.AnomalyCheck{}, okQuality(), 400)
	assert.Nil(t, alert)
}

func TestEvaluate_LatencySpike(t *testing.T) {
	cfg := testAlertingConfig()
	cfg.LatencyMultiplier = 3.0
	e := NewEngine(cfg)

	trace := testTrace()
	trace.LatencyMs = 5000

	alert := e.Evaluate(trace, models.Baseline{}, baseline.AnomalyCheck{}, okQuality(), 400)
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeLatencySpike, alert.AlertType)
	assert.Equal(t, models.SeverityLow, alert.Severity)
	require.NotNil(t, alert.Latency)
	assert.Equal(t, int64(5000), alert.Latency.CurrentLatencyMs)
}

func TestEvaluate_DeterministicAlertID(t *testing.T) {
	e := NewEngine(testAlertingConfig())

	anomaly := baseline.AnomalyCheck{Anomalous: true, ThresholdUsed: 0.24}
	first := e.Evaluate(testTrace(), models.Baseline{}, anomaly, okQuality(), 0)
	second := e.Evaluate(testTrace(), models.Baseline{}, anomaly, okQuality(), 0)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.AlertID, second.AlertID)
}
