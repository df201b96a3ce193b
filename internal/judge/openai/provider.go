package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/lumina-ai/lumina/internal/config"
	judge "github.com/lumina-ai/lumina/internal/judge/rubric"
	"github.com/lumina-ai/lumina/pkg/models"
)

// Provider implements models.QualityJudge using the OpenAI chat API.
type Provider struct {
	client *goopenai.Client
	model  string
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Score(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: judge.RubricSystemPrompt()},
			{Role: goopenai.ChatMessageRoleUser, Content: judge.BuildPrompt(req)},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.ScoreResult{}, judge.ErrJudgeTimeout
		}
		return models.ScoreResult{}, fmt.Errorf("%w: %v", judge.ErrJudgeUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return models.ScoreResult{}, judge.ErrInvalidVerdict
	}
	return judge.ParseVerdict(resp.Choices[0].Message.Content)
}

var _ models.QualityJudge = (*Provider)(nil)
