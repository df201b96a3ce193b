package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertTypeCostSpike      = "cost_spike"
	AlertTypeQualityDrop    = "quality_drop"
	AlertTypeLatencySpike   = "latency_spike"
	AlertTypeCostAndQuality = "cost_and_quality"
)

const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

const (
	AlertStatusPending      = "pending"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Alert represents one detected anomaly. Alerts are never deleted; status
// transitions are one-directional (pending -> acknowledged -> resolved,
// pending -> resolved) and idempotent.
type Alert struct {
	AlertID        uuid.UUID      `db:"alert_id"        json:"alert_id"`
	TraceID        string         `db:"trace_id"        json:"trace_id"`
	SpanID         string         `db:"span_id"         json:"span_id"`
	CustomerID     string         `db:"customer_id"     json:"customer_id"`
	ServiceName    string         `db:"service_name"    json:"service_name"`
	Endpoint       string         `db:"endpoint"        json:"endpoint"`
	Model          string         `db:"model"           json:"model"`
	AlertType      string         `db:"alert_type"      json:"alert_type"`
	Severity       string         `db:"severity"        json:"severity"`
	Cost           *CostDetail    `db:"-"               json:"cost,omitempty"`
	Quality        *QualityDetail `db:"-"               json:"quality,omitempty"`
	Latency        *LatencyDetail `db:"-"               json:"latency,omitempty"`
	Reasoning      string         `db:"reasoning"       json:"reasoning"`
	Status         string         `db:"status"          json:"status"`
	CreatedAt      time.Time      `db:"created_at"      json:"created_at"`
	AcknowledgedAt *time.Time     `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time     `db:"resolved_at"     json:"resolved_at,omitempty"`
}

// CostDetail carries the cost-specific fields of a cost_spike or
// cost_and_quality alert.
type CostDetail struct {
	CurrentCostUsd      float64 `json:"current_cost_usd"`
	BaselineCostUsd     float64 `json:"baseline_cost_usd"`
	ThresholdUsd        float64 `json:"threshold_usd"`
	CostIncreasePercent float64 `json:"cost_increase_percent"`
}

// QualityDetail carries the scoring fields of a quality_drop or
// cost_and_quality alert.
type QualityDetail struct {
	HashSimilarity float64 `json:"hash_similarity"`
	SemanticScore  float64 `json:"semantic_score"`
	ScoringMethod  string  `json:"scoring_method"`
}

// LatencyDetail carries the latency fields of a latency_spike alert.
type LatencyDetail struct {
	CurrentLatencyMs  int64   `json:"current_latency_ms"`
	BaselineLatencyMs float64 `json:"baseline_latency_ms"`
}

// DeterministicAlertID derives a stable alert ID from (traceID, alertType)
// so that reprocessing the same trace after a crash-before-ack creates the
// same alert row instead of a duplicate.
func DeterministicAlertID(traceID, alertType string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(traceID+":"+alertType))
}
