// Package baseline computes cost percentile baselines per
// (service, endpoint, time window) from historical samples.
package baseline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lumina-ai/lumina/pkg/models"
)

// Window is a supported baselining time window.
type Window string

const (
	Window1h  Window = "1h"
	Window24h Window = "24h"
	Window7d  Window = "7d"
)

// Duration returns the window length. Unknown windows default to 24h.
func (w Window) Duration() time.Duration {
	switch w {
	case Window1h:
		return time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ParseWindow validates a window string.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case Window1h, Window24h, Window7d:
		return Window(s), nil
	default:
		return "", fmt.Errorf("unknown baseline window %q: must be one of 1h, 24h, 7d", s)
	}
}

// Percentile selects which baseline percentile an anomaly check compares
// against.
type Percentile string

const (
	P50 Percentile = "p50"
	P95 Percentile = "p95"
	P99 Percentile = "p99"
)

// Calculate computes P50/P95/P99 cost percentiles for a sample set using
// linear interpolation between bracketing sorted indices. An empty sample
// set yields an all-zero baseline with SampleCount 0, never an error.
func Calculate(service, endpoint string, sampleCosts []float64, w Window) models.Baseline {
	b := models.Baseline{
		ServiceName: service,
		Endpoint:    endpoint,
		Window:      string(w),
		SampleCount: len(sampleCosts),
		ComputedAt:  time.Now().UTC(),
	}
	if len(sampleCosts) == 0 {
		return b
	}

	sorted := make([]float64, len(sampleCosts))
	copy(sorted, sampleCosts)
	sort.Float64s(sorted)

	b.P50 = percentile(sorted, 50)
	b.P95 = percentile(sorted, 95)
	b.P99 = percentile(sorted, 99)
	return b
}

// percentile computes a percentile over a sorted slice with linear
// interpolation: index = p/100 * (n-1).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	idx := p / 100 * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// FilterWindow restricts samples to [now - window, now].
func FilterWindow(samples []models.CostSample, now time.Time, w Window) []models.CostSample {
	cutoff := now.Add(-w.Duration())
	filtered := make([]models.CostSample, 0, len(samples))
	for _, s := range samples {
		if !s.Timestamp.Before(cutoff) && !s.Timestamp.After(now) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// AnomalyCheck reports the details of one anomaly evaluation for operator
// display.
type AnomalyCheck struct {
	Anomalous          bool    `json:"anomalous"`
	ThresholdUsed      float64 `json:"threshold_used"`
	BaselineValue      float64 `json:"baseline_value"`
	PercentageAboveP50 float64 `json:"percentage_above_baseline"`
}

// IsAnomalous reports whether cost exceeds the selected baseline percentile
// scaled by a margin: anomaly iff cost > baseline[p] * (1 + margin/100).
// Threshold and margin are caller-supplied configuration.
func IsAnomalous(cost float64, b models.Baseline, threshold Percentile, marginPercent float64) AnomalyCheck {
	var base float64
	switch threshold {
	case P50:
		base = b.P50
	case P99:
		base = b.P99
	default:
		base = b.P95
	}

	check := AnomalyCheck{
		BaselineValue: base,
		ThresholdUsed: base * (1 + marginPercent/100),
	}
	if b.SampleCount == 0 {
		// No history to compare against; never flag.
		return check
	}

	check.Anomalous = cost > check.ThresholdUsed
	if b.P50 > 0 {
		check.PercentageAboveP50 = (cost - b.P50) / b.P50 * 100
	}
	return check
}
