package judge_test

import (
	"testing"
	"time"

	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/internal/judge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJudge(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{name: "none disables the judge", provider: "none", wantNil: true},
		{name: "openai", provider: "openai", wantName: "openai"},
		{name: "anthropic", provider: "anthropic", wantName: "anthropic"},
		{name: "mock", provider: "mock", wantName: "mock"},
		{name: "unknown", provider: "cohere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := judge.NewJudge(config.JudgeConfig{
				Provider:  tt.provider,
				Timeout:   time.Second,
				OpenAI:    config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
				Anthropic: config.AnthropicConfig{APIKey: "sk-test", Model: "claude-3-5-haiku", BaseURL: "https://api.anthropic.com"},
			})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, j)
				return
			}
			require.NotNil(t, j)
			assert.Equal(t, tt.wantName, j.Name())
		})
	}
}
