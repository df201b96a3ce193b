package models

import "time"

// Baseline holds cost percentiles for a (service, endpoint, window) triple.
// Computed on demand from historical samples, never stored long-term.
// Invariant: P50 <= P95 <= P99 for any non-empty sample set.
type Baseline struct {
	ServiceName string    `json:"service_name"`
	Endpoint    string    `json:"endpoint"`
	Window      string    `json:"window"`
	P50         float64   `json:"p50"`
	P95         float64   `json:"p95"`
	P99         float64   `json:"p99"`
	SampleCount int       `json:"sample_count"`
	ComputedAt  time.Time `json:"computed_at"`
}
