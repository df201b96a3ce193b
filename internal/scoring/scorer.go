// Package scoring implements the tiered quality scorer: a free structural
// tier that short-circuits on "nothing changed", escalating to a cached
// external LLM judgment when inconclusive. A scoring outage degrades to a
// neutral score; it must never block alerting on cost.
package scoring

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lumina-ai/lumina/internal/cache"
	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/pkg/models"
	"github.com/lumina-ai/lumina/pkg/similarity"
)

// tier1Score is the confidence assigned when enough baseline responses are
// near-exact matches for the candidate.
const tier1Score = 0.9

// Scorer computes quality scores for traces against recent baseline
// responses.
type Scorer struct {
	judge        models.QualityJudge
	cache        cache.Cache
	cfg          config.ScoringConfig
	judgeTimeout time.Duration
}

// NewScorer creates a Scorer. judge may be nil, in which case tier 2 always
// degrades to the configured neutral score.
func NewScorer(j models.QualityJudge, c cache.Cache, cfg config.ScoringConfig, judgeTimeout time.Duration) *Scorer {
	return &Scorer{judge: j, cache: c, cfg: cfg, judgeTimeout: judgeTimeout}
}

// Score evaluates one trace's response against recent baseline responses
// for the same (service, endpoint). It never returns an error: every
// failure mode resolves to a usable score with Degraded set.
func (s *Scorer) Score(ctx context.Context, trace *models.Trace, baselineResponses []string) models.QualityScore {
	bestHash, nearExact := s.tier1(trace.Response, baselineResponses)
	proxy := lexicalProxy(trace.Response, baselineResponses)

	// Tier 1: enough near-exact matches means nothing changed.
	if len(baselineResponses) > 0 &&
		float64(nearExact)/float64(len(baselineResponses)) >= s.cfg.Tier1Quorum {
		return models.QualityScore{
			Score:          tier1Score,
			HashSimilarity: bestHash,
			SemanticScore:  proxy,
			Method:         models.ScoringMethodHashOnly,
		}
	}

	// Tier 2: external judgment, cached by content hash.
	method := models.ScoringMethodSemantic
	if len(baselineResponses) > 0 {
		method = models.ScoringMethodHybrid
	}

	if s.judge == nil {
		return models.QualityScore{
			Score:          s.cfg.NeutralScore,
			HashSimilarity: bestHash,
			SemanticScore:  proxy,
			Method:         models.ScoringMethodHashOnly,
			Degraded:       true,
		}
	}

	key := cache.QualityScoreKey(trace.ContentHash())
	if verdict, ok := s.cachedVerdict(ctx, key); ok {
		return models.QualityScore{
			Score:          verdict.Score,
			HashSimilarity: bestHash,
			SemanticScore:  verdict.Score,
			Method:         method,
			Reasoning:      verdict.Reasoning,
			CacheHit:       true,
		}
	}

	judgeCtx, cancel := context.WithTimeout(ctx, s.judgeTimeout)
	defer cancel()

	verdict, err := s.judge.Score(judgeCtx, models.ScoreRequest{
		Prompt:   trace.Prompt,
		Response: trace.Response,
	})
	if err != nil {
		slog.Warn("quality judge failed, using neutral score",
			"trace_id", trace.TraceID, "judge", s.judge.Name(), "error", err)
		return models.QualityScore{
			Score:          s.cfg.NeutralScore,
			HashSimilarity: bestHash,
			SemanticScore:  proxy,
			Method:         models.ScoringMethodHashOnly,
			Degraded:       true,
		}
	}

	s.storeVerdict(ctx, key, verdict)

	return models.QualityScore{
		Score:          verdict.Score,
		HashSimilarity: bestHash,
		SemanticScore:  verdict.Score,
		Method:         method,
		Reasoning:      verdict.Reasoning,
	}
}

// tier1 returns the best structural similarity and the count of baseline
// responses exceeding the near-exact threshold.
func (s *Scorer) tier1(response string, baselines []string) (best float64, nearExact int) {
	for _, b := range baselines {
		sim := similarity.Structural(response, b)
		if sim > best {
			best = sim
		}
		if sim >= s.cfg.NearExactThreshold {
			nearExact++
		}
	}
	return best, nearExact
}

// lexicalProxy is the cost-free semantic stand-in: the best word-overlap
// score against the baseline set.
func lexicalProxy(response string, baselines []string) float64 {
	var best float64
	for _, b := range baselines {
		if score := similarity.Lexical(response, b); score > best {
			best = score
		}
	}
	return best
}

func (s *Scorer) cachedVerdict(ctx context.Context, key string) (models.ScoreResult, bool) {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil || !found {
		return models.ScoreResult{}, false
	}
	var verdict models.ScoreResult
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return models.ScoreResult{}, false
	}
	return verdict, true
}

func (s *Scorer) storeVerdict(ctx context.Context, key string, verdict models.ScoreResult) {
	raw, err := json.Marshal(verdict)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.CacheTTL); err != nil {
		slog.Debug("caching judge verdict failed", "key", key, "error", err)
	}
}
