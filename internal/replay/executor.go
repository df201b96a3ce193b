package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/lumina-ai/lumina/internal/costs"
	"github.com/lumina-ai/lumina/pkg/models"
)

var ErrEmptyCompletion = errors.New("empty completion from model")

// Target describes what a trace is replayed against. An empty Model means
// "same model as the original trace".
type Target struct {
	Model string
}

// Executor re-runs one captured trace against a target model and returns the
// measurable outputs of the new call.
type Executor interface {
	Execute(ctx context.Context, trace *models.Trace, target Target) (models.TraceObservation, error)
	Name() string
}

// SimulatingExecutor echoes the original response and re-prices it for the
// target model. It exists for dry runs: what would this trace set cost on a
// cheaper model, assuming identical output.
type SimulatingExecutor struct{}

func NewSimulatingExecutor() *SimulatingExecutor {
	return &SimulatingExecutor{}
}

func (e *SimulatingExecutor) Name() string { return "simulate" }

func (e *SimulatingExecutor) Execute(_ context.Context, trace *models.Trace, target Target) (models.TraceObservation, error) {
	model := target.Model
	if model == "" {
		model = trace.Model
	}

	obs := models.TraceObservation{
		Response:         trace.Response,
		LatencyMs:        trace.LatencyMs,
		PromptTokens:     trace.PromptTokens,
		CompletionTokens: trace.CompletionTokens,
	}
	if trace.PromptTokens != nil && trace.CompletionTokens != nil {
		obs.CostUsd = costs.Estimate(model, *trace.PromptTokens, *trace.CompletionTokens)
	} else if trace.TotalTokens != nil {
		obs.CostUsd = costs.EstimateTotal(model, *trace.TotalTokens)
	}
	return obs, nil
}

// OpenAIExecutor replays the trace's prompt against a live model through the
// chat completions API.
type OpenAIExecutor struct {
	client *goopenai.Client
	model  string
}

func NewOpenAIExecutor(apiKey, baseURL, defaultModel string) *OpenAIExecutor {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIExecutor{client: goopenai.NewClientWithConfig(cfg), model: defaultModel}
}

func (e *OpenAIExecutor) Name() string { return "openai" }

func (e *OpenAIExecutor) Execute(ctx context.Context, trace *models.Trace, target Target) (models.TraceObservation, error) {
	model := target.Model
	if model == "" {
		model = trace.Model
	}
	if model == "" {
		model = e.model
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: trace.Prompt},
		},
	})
	if err != nil {
		return models.TraceObservation{}, fmt.Errorf("replay completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.TraceObservation{}, ErrEmptyCompletion
	}

	promptTokens := resp.Usage.PromptTokens
	completionTokens := resp.Usage.CompletionTokens
	return models.TraceObservation{
		Response:         resp.Choices[0].Message.Content,
		CostUsd:          costs.Estimate(model, promptTokens, completionTokens),
		LatencyMs:        time.Since(start).Milliseconds(),
		PromptTokens:     &promptTokens,
		CompletionTokens: &completionTokens,
	}, nil
}
