package mock

import (
	"context"

	judge "github.com/lumina-ai/lumina/internal/judge/rubric"
	"github.com/lumina-ai/lumina/pkg/models"
)

// MockJudge satisfies models.QualityJudge for testing.
type MockJudge struct {
	Name_     string
	ScoreFunc func(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error)
	Calls     int
}

func (m *MockJudge) Name() string { return m.Name_ }

func (m *MockJudge) Score(ctx context.Context, req models.ScoreRequest) (models.ScoreResult, error) {
	m.Calls++
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, req)
	}
	return models.ScoreResult{}, nil
}

// NewMockJudge returns a MockJudge with a sensible default verdict.
func NewMockJudge() *MockJudge {
	return &MockJudge{
		Name_: "mock",
		ScoreFunc: func(_ context.Context, _ models.ScoreRequest) (models.ScoreResult, error) {
			return models.ScoreResult{
				Score:     0.85,
				Reasoning: "Simulated verdict from mock judge",
			}, nil
		},
	}
}

// NewFailingJudge returns a MockJudge that always returns the given error.
func NewFailingJudge(err error) *MockJudge {
	return &MockJudge{
		Name_: "mock-failing",
		ScoreFunc: func(_ context.Context, _ models.ScoreRequest) (models.ScoreResult, error) {
			return models.ScoreResult{}, err
		},
	}
}

// NewTimeoutJudge returns a MockJudge that blocks until context cancellation.
func NewTimeoutJudge() *MockJudge {
	return &MockJudge{
		Name_: "mock-timeout",
		ScoreFunc: func(ctx context.Context, _ models.ScoreRequest) (models.ScoreResult, error) {
			<-ctx.Done()
			return models.ScoreResult{}, judge.ErrJudgeTimeout
		},
	}
}

// Compile-time check that MockJudge implements QualityJudge.
var _ models.QualityJudge = (*MockJudge)(nil)
