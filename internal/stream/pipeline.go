package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumina-ai/lumina/internal/alerting"
	"github.com/lumina-ai/lumina/internal/baseline"
	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/internal/scoring"
	"github.com/lumina-ai/lumina/internal/store"
	"github.com/lumina-ai/lumina/internal/webhook"
)

const historySampleLimit = 500

// Pipeline is the per-message analysis path: history fetch, baseline,
// quality score, alert evaluation, persistence, webhook fan-out. A message
// is either fully processed and acked or retried/dropped as a unit.
type Pipeline struct {
	store      store.Store
	scorer     *scoring.Scorer
	engine     *alerting.Engine
	dispatcher *webhook.Dispatcher

	window            baseline.Window
	percentile        baseline.Percentile
	marginPercent     float64
	baselineResponses int
	retryDelay        time.Duration
}

func NewPipeline(s store.Store, scorer *scoring.Scorer, engine *alerting.Engine,
	dispatcher *webhook.Dispatcher, alertCfg config.AlertingConfig,
	scoringCfg config.ScoringConfig, retryDelay time.Duration) (*Pipeline, error) {

	w, err := baseline.ParseWindow(alertCfg.BaselineWindow)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:             s,
		scorer:            scorer,
		engine:            engine,
		dispatcher:        dispatcher,
		window:            w,
		percentile:        baseline.Percentile(alertCfg.Percentile),
		marginPercent:     alertCfg.MarginPercent,
		baselineResponses: scoringCfg.BaselineResponses,
		retryDelay:        retryDelay,
	}, nil
}

// Handle processes one delivered trace. Transient store failures ask for a
// retry; the analysis itself never fails a message, it degrades instead.
func (p *Pipeline) Handle(ctx context.Context, msg Message) Outcome {
	trace := msg.Trace
	now := time.Now().UTC()

	samples, err := p.store.RecentCostSamples(ctx, trace.ServiceName, trace.Endpoint,
		now.Add(-p.window.Duration()), historySampleLimit)
	if err != nil {
		return Retry(p.retryDelay)
	}
	samples = baseline.FilterWindow(samples, now, p.window)

	costs := make([]float64, 0, len(samples))
	var latencySum float64
	for _, s := range samples {
		costs = append(costs, s.CostUsd)
		latencySum += float64(s.LatencyMs)
	}
	var meanLatency float64
	if len(samples) > 0 {
		meanLatency = latencySum / float64(len(samples))
	}

	b := baseline.Calculate(trace.ServiceName, trace.Endpoint, costs, p.window)
	anomaly := baseline.IsAnomalous(trace.CostUsd, b, p.percentile, p.marginPercent)

	responses, err := p.store.RecentResponses(ctx, trace.ServiceName, trace.Endpoint,
		p.baselineResponses)
	if err != nil {
		// Score without a baseline set rather than stalling the message.
		slog.Warn("fetch baseline responses", "trace_id", trace.TraceID, "error", err)
		responses = nil
	}
	quality := p.scorer.Score(ctx, trace, responses)

	alert := p.engine.Evaluate(trace, b, anomaly, quality, meanLatency)
	if alert == nil {
		return Ack()
	}

	if err := p.store.CreateAlert(ctx, alert); err != nil {
		return Retry(p.retryDelay)
	}
	slog.Info("alert created",
		"alert_id", alert.AlertID, "trace_id", trace.TraceID,
		"type", alert.AlertType, "severity", alert.Severity)

	// Non-live traffic is analyzed and recorded but never pages anyone.
	live := trace.Environment == "" || trace.Environment == "live"
	if live && p.dispatcher != nil && p.dispatcher.Enabled() {
		p.dispatcher.Dispatch(ctx, alert)
	}
	return Ack()
}
