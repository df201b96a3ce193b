package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/pkg/models"
)

// DeliveryResult is the per-channel outcome of a dispatch. Channels are
// independent; one failing never blocks or rolls back the others.
type DeliveryResult struct {
	Channel  Channel
	Attempts int
	Err      error
}

// Dispatcher fans an alert out to every configured channel concurrently and
// joins on all outcomes.
type Dispatcher struct {
	sender *Sender
	cfg    config.WebhookConfig
}

func NewDispatcher(sender *Sender, cfg config.WebhookConfig) *Dispatcher {
	return &Dispatcher{sender: sender, cfg: cfg}
}

// Enabled reports whether at least one channel is configured.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.SlackURL != "" || d.cfg.DiscordURL != "" || d.pagerDutyEnabled()
}

// pagerDutyEnabled requires a routing key, not just the URL: the URL has a
// default pointing at the public Events API, and posting there without a
// routing key can never succeed.
func (d *Dispatcher) pagerDutyEnabled() bool {
	return d.cfg.PagerDutyURL != "" && d.cfg.PagerDutyRoutingKey != ""
}

// Dispatch delivers alert to all configured channels and returns one result
// per channel attempted. Never returns an error; failures are per-channel.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) []DeliveryResult {
	links := d.links(alert)

	type task struct {
		channel Channel
		url     string
		payload any
	}
	var tasks []task
	if d.cfg.SlackURL != "" {
		tasks = append(tasks, task{ChannelSlack, d.cfg.SlackURL, FormatSlack(alert, links)})
	}
	if d.cfg.DiscordURL != "" {
		tasks = append(tasks, task{ChannelDiscord, d.cfg.DiscordURL, FormatDiscord(alert, links)})
	}
	if d.pagerDutyEnabled() {
		tasks = append(tasks, task{ChannelPagerDuty, d.cfg.PagerDutyURL,
			FormatPagerDuty(alert, d.cfg.PagerDutyRoutingKey, links)})
	}
	if len(tasks) == 0 {
		return nil
	}

	results := make([]DeliveryResult, len(tasks))
	var wg sync.WaitGroup
	for i, tk := range tasks {
		wg.Add(1)
		go func(i int, tk task) {
			defer wg.Done()
			attempts, err := d.sender.Deliver(ctx, tk.url, tk.payload)
			results[i] = DeliveryResult{Channel: tk.channel, Attempts: attempts, Err: err}
		}(i, tk)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			slog.Warn("webhook delivery failed",
				"channel", r.Channel, "attempts", r.Attempts,
				"alert_id", alert.AlertID, "error", r.Err)
		} else {
			slog.Info("webhook delivered",
				"channel", r.Channel, "attempts", r.Attempts, "alert_id", alert.AlertID)
		}
	}
	return results
}

func (d *Dispatcher) links(alert *models.Alert) Links {
	if d.cfg.DashboardBaseURL == "" {
		return Links{}
	}
	return Links{
		TraceURL:     fmt.Sprintf("%s/traces/%s", d.cfg.DashboardBaseURL, alert.TraceID),
		DashboardURL: fmt.Sprintf("%s/alerts/%s", d.cfg.DashboardBaseURL, alert.AlertID),
	}
}
