package webhook

import (
	"fmt"
	"strings"

	"github.com/lumina-ai/lumina/pkg/models"
)

// Channel identifies a delivery target.
type Channel string

const (
	ChannelSlack     Channel = "slack"
	ChannelDiscord   Channel = "discord"
	ChannelPagerDuty Channel = "pagerduty"
)

// Links carries the deep links embedded in every payload.
type Links struct {
	TraceURL     string
	DashboardURL string
}

// slackPayload is the Slack incoming-webhook body.
type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// discordPayload is the Discord webhook body.
type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	URL         string         `json:"url,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// pagerDutyPayload is the PagerDuty Events API v2 body.
type pagerDutyPayload struct {
	RoutingKey  string             `json:"routing_key"`
	EventAction string             `json:"event_action"`
	DedupKey    string             `json:"dedup_key"`
	Payload     pagerDutyEventBody `json:"payload"`
	Links       []pagerDutyLink    `json:"links,omitempty"`
}

type pagerDutyEventBody struct {
	Summary       string         `json:"summary"`
	Source        string         `json:"source"`
	Severity      string         `json:"severity"`
	CustomDetails map[string]any `json:"custom_details,omitempty"`
}

type pagerDutyLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// FormatSlack renders an alert as a Slack incoming-webhook message.
func FormatSlack(alert *models.Alert, links Links) slackPayload {
	header := fmt.Sprintf("%s %s alert: %s", severityEmoji(alert.Severity),
		strings.ToUpper(alert.Severity), alert.AlertType)

	fields := []slackText{
		{Type: "mrkdwn", Text: "*Service:*\n" + alert.ServiceName},
		{Type: "mrkdwn", Text: "*Endpoint:*\n" + alert.Endpoint},
		{Type: "mrkdwn", Text: "*Model:*\n" + alert.Model},
		{Type: "mrkdwn", Text: "*Trace:*\n" + alert.TraceID},
	}
	if alert.Cost != nil {
		fields = append(fields,
			slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Cost:*\n$%.4f (baseline $%.4f, +%.0f%%)",
				alert.Cost.CurrentCostUsd, alert.Cost.BaselineCostUsd, alert.Cost.CostIncreasePercent)})
	}
	if alert.Quality != nil {
		fields = append(fields,
			slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Quality:*\nhash %.0f%%, semantic %.0f%% (%s)",
				alert.Quality.HashSimilarity*100, alert.Quality.SemanticScore*100, alert.Quality.ScoringMethod)})
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: header}},
		{Type: "section", Fields: fields},
	}
	if alert.Reasoning != "" {
		blocks = append(blocks, slackBlock{Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: alert.Reasoning}})
	}
	if links.TraceURL != "" || links.DashboardURL != "" {
		blocks = append(blocks, slackBlock{Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: formatSlackLinks(links)}})
	}

	return slackPayload{Text: header, Blocks: blocks}
}

func formatSlackLinks(links Links) string {
	var parts []string
	if links.TraceURL != "" {
		parts = append(parts, fmt.Sprintf("<%s|View trace>", links.TraceURL))
	}
	if links.DashboardURL != "" {
		parts = append(parts, fmt.Sprintf("<%s|Open dashboard>", links.DashboardURL))
	}
	return strings.Join(parts, " | ")
}

// FormatDiscord renders an alert as a Discord webhook message.
func FormatDiscord(alert *models.Alert, links Links) discordPayload {
	embed := discordEmbed{
		Title: fmt.Sprintf("%s %s: %s", severityEmoji(alert.Severity),
			strings.ToUpper(alert.Severity), alert.AlertType),
		Description: alert.Reasoning,
		Color:       severityColor(alert.Severity),
		URL:         links.DashboardURL,
		Fields: []discordField{
			{Name: "Service", Value: alert.ServiceName, Inline: true},
			{Name: "Endpoint", Value: alert.Endpoint, Inline: true},
			{Name: "Model", Value: alert.Model, Inline: true},
		},
	}
	if alert.Cost != nil {
		embed.Fields = append(embed.Fields, discordField{
			Name: "Cost",
			Value: fmt.Sprintf("$%.4f (baseline $%.4f, +%.0f%%)",
				alert.Cost.CurrentCostUsd, alert.Cost.BaselineCostUsd, alert.Cost.CostIncreasePercent),
		})
	}
	if alert.Quality != nil {
		embed.Fields = append(embed.Fields, discordField{
			Name: "Quality",
			Value: fmt.Sprintf("hash %.0f%%, semantic %.0f%% (%s)",
				alert.Quality.HashSimilarity*100, alert.Quality.SemanticScore*100, alert.Quality.ScoringMethod),
		})
	}
	if links.TraceURL != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "Trace", Value: links.TraceURL})
	}

	return discordPayload{Embeds: []discordEmbed{embed}}
}

// FormatPagerDuty renders an alert as a PagerDuty Events API v2 trigger.
// The dedup key reuses the alert ID so redelivered alerts collapse into one
// incident.
func FormatPagerDuty(alert *models.Alert, routingKey string, links Links) pagerDutyPayload {
	details := map[string]any{
		"trace_id":   alert.TraceID,
		"endpoint":   alert.Endpoint,
		"model":      alert.Model,
		"alert_type": alert.AlertType,
		"reasoning":  alert.Reasoning,
	}
	if alert.Cost != nil {
		details["current_cost_usd"] = alert.Cost.CurrentCostUsd
		details["baseline_cost_usd"] = alert.Cost.BaselineCostUsd
		details["cost_increase_percent"] = alert.Cost.CostIncreasePercent
	}
	if alert.Quality != nil {
		details["hash_similarity"] = alert.Quality.HashSimilarity
		details["semantic_score"] = alert.Quality.SemanticScore
		details["scoring_method"] = alert.Quality.ScoringMethod
	}

	var pdLinks []pagerDutyLink
	if links.TraceURL != "" {
		pdLinks = append(pdLinks, pagerDutyLink{Href: links.TraceURL, Text: "View trace"})
	}
	if links.DashboardURL != "" {
		pdLinks = append(pdLinks, pagerDutyLink{Href: links.DashboardURL, Text: "Open dashboard"})
	}

	return pagerDutyPayload{
		RoutingKey:  routingKey,
		EventAction: "trigger",
		DedupKey:    alert.AlertID.String(),
		Payload: pagerDutyEventBody{
			Summary: fmt.Sprintf("[%s] %s on %s %s", strings.ToUpper(alert.Severity),
				alert.AlertType, alert.ServiceName, alert.Endpoint),
			Source:        alert.ServiceName,
			Severity:      pagerDutySeverity(alert.Severity),
			CustomDetails: details,
		},
		Links: pdLinks,
	}
}

func severityEmoji(severity string) string {
	switch severity {
	case models.SeverityHigh:
		return "\U0001F6A8"
	case models.SeverityMedium:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func severityColor(severity string) int {
	switch severity {
	case models.SeverityHigh:
		return 0xE01E5A
	case models.SeverityMedium:
		return 0xECB22E
	default:
		return 0x36C5F0
	}
}

func pagerDutySeverity(severity string) string {
	switch severity {
	case models.SeverityHigh:
		return "critical"
	case models.SeverityMedium:
		return "warning"
	default:
		return "info"
	}
}
