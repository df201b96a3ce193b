package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Lumina analysis pipeline server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Stream   StreamConfig
	Judge    JudgeConfig
	Scoring  ScoringConfig
	Alerting AlertingConfig
	Webhooks WebhookConfig
	Replay   ReplayConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// StreamConfig controls the durable trace stream and its consumer group.
type StreamConfig struct {
	Name       string
	Group      string
	Consumer   string
	MaxLen     int64
	MaxRetries int
	RetryDelay time.Duration
	Block      time.Duration
}

// JudgeConfig selects and configures the external quality judge.
// Provider "none" disables tier-2 scoring entirely.
type JudgeConfig struct {
	Provider  string
	Timeout   time.Duration
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ScoringConfig holds the tiered scorer's heuristic constants. These are
// operational knobs, not verified policy, and stay injectable.
type ScoringConfig struct {
	NearExactThreshold float64
	Tier1Quorum        float64
	NeutralScore       float64
	CacheTTL           time.Duration
	BaselineResponses  int
}

// AlertingConfig holds the alert engine's classification thresholds.
type AlertingConfig struct {
	QualityFloor       float64
	MarginPercent      float64
	Percentile         string
	HighCostMultiplier float64
	HighScoreFloor     float64
	LatencyMultiplier  float64
	BaselineWindow     string
}

// WebhookConfig configures alert fan-out channels. Empty URLs disable a
// channel.
type WebhookConfig struct {
	SlackURL            string
	DiscordURL          string
	PagerDutyURL        string
	PagerDutyRoutingKey string
	DashboardBaseURL    string
	MaxRetries          int
	BackoffBase         time.Duration
}

// ReplayConfig selects the replay executor.
type ReplayConfig struct {
	Executor string
	OpenAI   OpenAIConfig
}

var validJudgeProviders = map[string]bool{
	"none":      true,
	"openai":    true,
	"anthropic": true,
	"mock":      true,
}

var validExecutors = map[string]bool{
	"simulate": true,
	"openai":   true,
}

// Load reads configuration from environment variables and returns a
// validated Config. Returns an error with a descriptive message if any
// required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LUMINA_PORT", 8080),
			Env:  envString("LUMINA_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Stream: StreamConfig{
			Name:       envString("LUMINA_STREAM", "lumina:traces"),
			Group:      envString("LUMINA_STREAM_GROUP", "analysis"),
			Consumer:   envString("LUMINA_STREAM_CONSUMER", defaultConsumerName()),
			MaxLen:     int64(envInt("LUMINA_STREAM_MAXLEN", 100_000)),
			MaxRetries: envInt("LUMINA_STREAM_MAX_RETRIES", 3),
			RetryDelay: envDuration("LUMINA_STREAM_RETRY_DELAY", 10*time.Second),
			Block:      envDuration("LUMINA_STREAM_BLOCK", 5*time.Second),
		},
		Judge: JudgeConfig{
			Provider: envString("LUMINA_JUDGE_PROVIDER", "none"),
			Timeout:  envDuration("LUMINA_JUDGE_TIMEOUT", 30*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: os.Getenv("OPENAI_BASE_URL"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			},
		},
		Scoring: ScoringConfig{
			NearExactThreshold: envFloat("LUMINA_SCORING_NEAR_EXACT", 0.90),
			Tier1Quorum:        envFloat("LUMINA_SCORING_TIER1_QUORUM", 0.30),
			NeutralScore:       envFloat("LUMINA_SCORING_NEUTRAL", 0.75),
			CacheTTL:           envDuration("LUMINA_SCORING_CACHE_TTL", 24*time.Hour),
			BaselineResponses:  envInt("LUMINA_SCORING_BASELINE_RESPONSES", 20),
		},
		Alerting: AlertingConfig{
			QualityFloor:       envFloat("LUMINA_ALERT_QUALITY_FLOOR", 0.70),
			MarginPercent:      envFloat("LUMINA_ALERT_MARGIN_PERCENT", 20),
			Percentile:         envString("LUMINA_ALERT_PERCENTILE", "p95"),
			HighCostMultiplier: envFloat("LUMINA_ALERT_HIGH_COST_MULTIPLIER", 2.0),
			HighScoreFloor:     envFloat("LUMINA_ALERT_HIGH_SCORE_FLOOR", 0.50),
			LatencyMultiplier:  envFloat("LUMINA_ALERT_LATENCY_MULTIPLIER", 0),
			BaselineWindow:     envString("LUMINA_ALERT_BASELINE_WINDOW", "24h"),
		},
		Webhooks: WebhookConfig{
			SlackURL:            os.Getenv("LUMINA_WEBHOOK_SLACK_URL"),
			DiscordURL:          os.Getenv("LUMINA_WEBHOOK_DISCORD_URL"),
			PagerDutyURL:        envString("LUMINA_WEBHOOK_PAGERDUTY_URL", "https://events.pagerduty.com/v2/enqueue"),
			PagerDutyRoutingKey: os.Getenv("LUMINA_WEBHOOK_PAGERDUTY_ROUTING_KEY"),
			DashboardBaseURL:    envString("LUMINA_DASHBOARD_URL", "http://localhost:3000"),
			MaxRetries:          envInt("LUMINA_WEBHOOK_MAX_RETRIES", 3),
			BackoffBase:         envDuration("LUMINA_WEBHOOK_BACKOFF_BASE", time.Second),
		},
		Replay: ReplayConfig{
			Executor: envString("LUMINA_REPLAY_EXECUTOR", "simulate"),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: os.Getenv("OPENAI_BASE_URL"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validJudgeProviders[c.Judge.Provider] {
		return fmt.Errorf("LUMINA_JUDGE_PROVIDER must be one of none, openai, anthropic, mock; got %q", c.Judge.Provider)
	}
	if c.Judge.Provider == "openai" && c.Judge.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when LUMINA_JUDGE_PROVIDER is openai")
	}
	if c.Judge.Provider == "anthropic" && c.Judge.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when LUMINA_JUDGE_PROVIDER is anthropic")
	}

	if !validExecutors[c.Replay.Executor] {
		return fmt.Errorf("LUMINA_REPLAY_EXECUTOR must be one of simulate, openai; got %q", c.Replay.Executor)
	}
	if c.Replay.Executor == "openai" && c.Replay.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when LUMINA_REPLAY_EXECUTOR is openai")
	}

	switch c.Alerting.Percentile {
	case "p50", "p95", "p99":
	default:
		return fmt.Errorf("LUMINA_ALERT_PERCENTILE must be one of p50, p95, p99; got %q", c.Alerting.Percentile)
	}
	switch c.Alerting.BaselineWindow {
	case "1h", "24h", "7d":
	default:
		return fmt.Errorf("LUMINA_ALERT_BASELINE_WINDOW must be one of 1h, 24h, 7d; got %q", c.Alerting.BaselineWindow)
	}
	if c.Alerting.MarginPercent < 0 {
		return fmt.Errorf("LUMINA_ALERT_MARGIN_PERCENT must be >= 0")
	}

	if c.Stream.MaxRetries < 0 {
		return fmt.Errorf("LUMINA_STREAM_MAX_RETRIES must be >= 0")
	}
	if c.Webhooks.MaxRetries < 0 {
		return fmt.Errorf("LUMINA_WEBHOOK_MAX_RETRIES must be >= 0")
	}

	return nil
}

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "consumer-1"
	}
	return host
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
