// Package judge provides external LLM-as-judge quality scoring with a fixed
// evaluation rubric. Providers implement models.QualityJudge; the scorer
// treats a nil or failing judge as a signal to degrade, never as a fatal
// error.
package judge

import (
	"fmt"

	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/internal/judge/anthropic"
	"github.com/lumina-ai/lumina/internal/judge/mock"
	"github.com/lumina-ai/lumina/internal/judge/openai"
	"github.com/lumina-ai/lumina/pkg/models"
)

// NewJudge constructs the configured quality judge. Provider "none"
// returns (nil, nil): the scorer runs tier-1 only and degrades to the
// neutral score where a judgment would be needed.
func NewJudge(cfg config.JudgeConfig) (models.QualityJudge, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "mock":
		return mock.NewMockJudge(), nil
	default:
		return nil, fmt.Errorf("unknown judge provider %q: must be one of none, openai, anthropic, mock", cfg.Provider)
	}
}
