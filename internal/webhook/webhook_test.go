package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlert() *models.Alert {
	return &models.Alert{
		AlertID:     models.DeterministicAlertID("tr-wh", models.AlertTypeCostSpike),
		TraceID:     "tr-wh",
		ServiceName: "chat-svc",
		Endpoint:    "/v1/chat",
		Model:       "gpt-4o",
		AlertType:   models.AlertTypeCostSpike,
		Severity:    models.SeverityHigh,
		Cost: &models.CostDetail{
			CurrentCostUsd:      0.50,
			BaselineCostUsd:     0.10,
			ThresholdUsd:        0.24,
			CostIncreasePercent: 400,
		},
		Reasoning: "cost $0.5000 exceeded p95 threshold $0.2400",
		Status:    models.AlertStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// --- Sender ---

func TestSender_SuccessFirstAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(5*time.Second, 3, time.Millisecond)
	attempts, err := s.Deliver(context.Background(), srv.URL, map[string]string{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSender_RetriesThenSucceeds(t *testing.T) {
	// 500 three times, then 200: with maxRetries=3 the fourth attempt
	// succeeds.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(5*time.Second, 3, time.Millisecond)
	attempts, err := s.Deliver(context.Background(), srv.URL, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, int32(4), calls.Load())
}

func TestSender_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSender(5*time.Second, 2, time.Millisecond)
	attempts, err := s.Deliver(context.Background(), srv.URL, map[string]string{})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestSender_PermanentFailureNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewSender(5*time.Second, 3, time.Millisecond)
	attempts, err := s.Deliver(context.Background(), srv.URL, map[string]string{})
	require.ErrorIs(t, err, ErrPermanentFailure)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSender_TooManyRequestsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(5*time.Second, 3, time.Millisecond)
	attempts, err := s.Deliver(context.Background(), srv.URL, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestSender_TransportErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	s := NewSender(time.Second, 1, time.Millisecond)
	attempts, err := s.Deliver(context.Background(), srv.URL, map[string]string{})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

// --- Formatters ---

func TestFormatSlack(t *testing.T) {
	payload := FormatSlack(testAlert(), Links{
		TraceURL:     "https://lumina.example.com/traces/tr-wh",
		DashboardURL: "https://lumina.example.com/alerts/x",
	})

	assert.Contains(t, payload.Text, "HIGH")
	assert.Contains(t, payload.Text, models.AlertTypeCostSpike)
	require.NotEmpty(t, payload.Blocks)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "chat-svc")
	assert.Contains(t, string(raw), "$0.5000")
	assert.Contains(t, string(raw), "https://lumina.example.com/traces/tr-wh")
}

func TestFormatDiscord(t *testing.T) {
	alert := testAlert()
	alert.Quality = &models.QualityDetail{HashSimilarity: 0.4, SemanticScore: 0.55, ScoringMethod: "semantic"}

	payload := FormatDiscord(alert, Links{DashboardURL: "https://lumina.example.com/alerts/x"})
	require.Len(t, payload.Embeds, 1)
	embed := payload.Embeds[0]
	assert.Contains(t, embed.Title, "cost_spike")
	assert.Equal(t, 0xE01E5A, embed.Color)

	names := make([]string, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "Cost")
	assert.Contains(t, names, "Quality")
}

func TestFormatPagerDuty(t *testing.T) {
	alert := testAlert()
	payload := FormatPagerDuty(alert, "rk-123", Links{TraceURL: "https://lumina.example.com/traces/tr-wh"})

	assert.Equal(t, "rk-123", payload.RoutingKey)
	assert.Equal(t, "trigger", payload.EventAction)
	assert.Equal(t, alert.AlertID.String(), payload.DedupKey)
	assert.Equal(t, "critical", payload.Payload.Severity)
	assert.Contains(t, payload.Payload.Summary, "chat-svc")
	assert.Equal(t, "tr-wh", payload.Payload.CustomDetails["trace_id"])
	require.Len(t, payload.Links, 1)
}

// --- Dispatcher ---

func TestDispatcher_FanOutAllSettled(t *testing.T) {
	var slackCalls, discordCalls atomic.Int32
	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slackCalls.Add(1)
		w.WriteHeader(http.StatusNotFound) // permanent failure
	}))
	defer slackSrv.Close()
	discordSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		discordCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer discordSrv.Close()

	d := NewDispatcher(NewSender(5*time.Second, 3, time.Millisecond), config.WebhookConfig{
		SlackURL:   slackSrv.URL,
		DiscordURL: discordSrv.URL,
	})

	results := d.Dispatch(context.Background(), testAlert())
	require.Len(t, results, 2)

	byChannel := make(map[Channel]DeliveryResult)
	for _, r := range results {
		byChannel[r.Channel] = r
	}
	assert.Error(t, byChannel[ChannelSlack].Err)
	assert.Equal(t, 1, byChannel[ChannelSlack].Attempts)
	assert.NoError(t, byChannel[ChannelDiscord].Err)
	assert.Equal(t, int32(1), discordCalls.Load())
}

func TestDispatcher_NoChannelsConfigured(t *testing.T) {
	d := NewDispatcher(NewSender(time.Second, 1, time.Millisecond), config.WebhookConfig{})
	assert.False(t, d.Enabled())
	assert.Nil(t, d.Dispatch(context.Background(), testAlert()))
}

func TestDispatcher_PagerDutyRequiresRoutingKey(t *testing.T) {
	// The PagerDuty URL carries a default pointing at the public Events API,
	// so the URL alone must not light the channel up.
	d := NewDispatcher(NewSender(time.Second, 1, time.Millisecond), config.WebhookConfig{
		PagerDutyURL: "https://events.pagerduty.com/v2/enqueue",
	})
	assert.False(t, d.Enabled())
	assert.Nil(t, d.Dispatch(context.Background(), testAlert()))
}

func TestDispatcher_PagerDutyWithRoutingKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewDispatcher(NewSender(time.Second, 1, time.Millisecond), config.WebhookConfig{
		PagerDutyURL:        srv.URL,
		PagerDutyRoutingKey: "rk-123",
	})
	assert.True(t, d.Enabled())

	results := d.Dispatch(context.Background(), testAlert())
	require.Len(t, results, 1)
	assert.Equal(t, ChannelPagerDuty, results[0].Channel)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, int32(1), calls.Load())
}
