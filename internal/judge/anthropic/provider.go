package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/lumina-ai/lumina/internal/config"
	judge "github.com/lumina-ai/lumina/internal/judge/rubric"
	"github.com/lumina-ai/lumina/pkg/models"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 512
)

// Provider implements models.QualityJudge using Anthropic's Messages API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
	}
}

func (p *Provider) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Score(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		System:    judge.RubricSystemPrompt(),
		Messages:  []message{{Role: "user", Content: judge.BuildPrompt(req)}},
	})
	if err != nil {
		return models.ScoreResult{}, fmt.Errorf("encoding judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return models.ScoreResult{}, fmt.Errorf("building judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.ScoreResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ScoreResult{}, fmt.Errorf("%w: status %d", judge.ErrJudgeUnavailable, resp.StatusCode)
	}

	var apiResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return models.ScoreResult{}, fmt.Errorf("decoding judge response: %w", err)
	}

	for _, block := range apiResp.Content {
		if block.Type == "text" {
			return judge.ParseVerdict(block.Text)
		}
	}
	return models.ScoreResult{}, judge.ErrInvalidVerdict
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", judge.ErrJudgeTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", judge.ErrJudgeTimeout, err)
	}
	return fmt.Errorf("%w: %v", judge.ErrJudgeUnavailable, err)
}

var _ models.QualityJudge = (*Provider)(nil)
