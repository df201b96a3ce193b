// Package rubric holds the shared evaluation rubric, prompt rendering, and
// verdict parsing used by the judge providers.
package rubric

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lumina-ai/lumina/pkg/models"
)

// rubricSystemPrompt fixes the evaluation dimensions so that scores stay
// comparable across providers and over time.
const rubricSystemPrompt = `You are a strict quality evaluator for LLM API responses.

Evaluate the response to the given prompt on four dimensions:
- relevance: does the response address the prompt?
- factual accuracy: are the claims correct and consistent?
- completeness: does it cover what was asked, without major gaps?
- tone: is the style appropriate for the request?

Respond with ONLY a JSON object in this exact format:
{"score": <number between 0.0 and 1.0>, "reasoning": "<one or two sentences>"}`

// RubricSystemPrompt returns the shared system prompt for judge providers.
func RubricSystemPrompt() string { return rubricSystemPrompt }

// BuildPrompt renders the user message for a score request.
func BuildPrompt(req models.ScoreRequest) string {
	var sb strings.Builder
	sb.WriteString("## Prompt\n")
	sb.WriteString(req.Prompt)
	sb.WriteString("\n\n## Response\n")
	sb.WriteString(req.Response)
	return sb.String()
}

// ParseVerdict extracts the JSON verdict from raw judge output. Models
// sometimes wrap the JSON in prose or code fences, so it scans for the
// outermost object. The score is clamped to [0, 1].
func ParseVerdict(raw string) (models.ScoreResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return models.ScoreResult{}, fmt.Errorf("%w: no JSON object in %q", ErrInvalidVerdict, truncate(raw, 200))
	}

	var verdict models.ScoreResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &verdict); err != nil {
		return models.ScoreResult{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}

	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 1 {
		verdict.Score = 1
	}
	return verdict, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
