package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/logger"
)

// Ensure Reranker can receive custom prompts.
var _ driven.PromptStoreAware = (*Reranker)(nil)

const (
	// rerankCandidateMaxLen bounds how much of each candidate enters the prompt.
	rerankCandidateMaxLen = 500

	// rerankSyntheticStep spaces the fallback scores so order survives sorting.
	rerankSyntheticStep = 0.1
)

// defaultRerankPrompt scores candidates against a premise.
// Placeholders: premise, numbered candidate list.
const defaultRerankPrompt = `You are ranking evidence for relevance to a premise.

Premise: %s

Candidates:
%s

Score every candidate for how directly it bears on the premise.
1.0 means the candidate directly addresses the premise. 0.0 means it is unrelated.
Respond with only a JSON array, one entry per candidate:
[{"index": 0, "score": 0.95}, {"index": 1, "score": 0.4}]`

// Reranker reorders vector-search candidates by model-judged relevance.
// Reranking is precision-improving, not correctness-critical: every failure
// path falls back to the candidates' original order with synthetic scores,
// logged but never surfaced as an error.
type Reranker struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewReranker creates a new reranker.
// The llm parameter is optional (can be nil) - without it every call
// takes the fallback path, so callers should check Enabled first.
func NewReranker(llm driven.LLMService) *Reranker {
	return &Reranker{llm: llm}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (r *Reranker) SetPromptStore(store driven.PromptStore) {
	r.prompts = store
}

// Enabled reports whether a remote model is configured.
// Callers are expected to skip reranking when this is false rather than
// pay for a guaranteed-fallback call. Safe on a nil receiver.
func (r *Reranker) Enabled() bool {
	return r != nil && r.llm != nil
}

// Rerank scores candidates against the premise and returns the topK best,
// sorted by descending score. When the candidate set already fits in topK,
// it is returned in original order with synthetic scores and no remote call.
func (r *Reranker) Rerank(ctx context.Context, premise string, candidates []string, topK int) ([]domain.RerankResult, error) {
	if topK <= 0 {
		topK = domain.DefaultLinkRerankK
	}
	if len(candidates) == 0 {
		return []domain.RerankResult{}, nil
	}
	if len(candidates) <= topK {
		logger.Debug("Rerank short-circuit: %d candidates fit in topK=%d", len(candidates), topK)
		return syntheticRerank(candidates, topK), nil
	}
	if r.llm == nil {
		logger.Warn("Rerank requested without a model, using vector order")
		return syntheticRerank(candidates, topK), nil
	}

	prompt := fmt.Sprintf(r.rerankPrompt(), premise, formatCandidates(candidates))
	logger.Debug("Reranking %d candidates (premise %d chars)", len(candidates), len(premise))

	response, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   1024,
		Temperature: 0,
	})
	if err != nil {
		logger.Warn("Rerank model call failed: %v (using vector order)", err)
		return syntheticRerank(candidates, topK), nil
	}

	scored, ok := parseRerankResponse(response, candidates)
	if !ok {
		logger.Warn("Rerank response unparseable (%d chars), using vector order", len(response))
		return syntheticRerank(candidates, topK), nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	logger.Debug("Rerank kept %d candidates, best score %.2f", len(scored), scored[0].Score)
	return scored, nil
}

// rerankPrompt returns the custom rerank prompt if one is configured,
// otherwise the built-in default.
func (r *Reranker) rerankPrompt() string {
	if r.prompts != nil {
		if p, err := r.prompts.Load(driven.PromptRerank); err == nil && p != "" {
			return p
		}
	}
	return defaultRerankPrompt
}

// formatCandidates renders a numbered candidate list for the prompt,
// truncating each entry so one long candidate cannot crowd out the rest.
func formatCandidates(candidates []string) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i, domain.TruncateText(strings.TrimSpace(c), rerankCandidateMaxLen))
	}
	return b.String()
}

// syntheticRerank returns the first topK candidates in original order with
// descending scores, so downstream sorting and thresholds still behave.
func syntheticRerank(candidates []string, topK int) []domain.RerankResult {
	n := min(len(candidates), topK)
	results := make([]domain.RerankResult, n)
	for i := 0; i < n; i++ {
		results[i] = domain.RerankResult{
			Text:          candidates[i],
			Score:         max(0, 1.0-float64(i)*rerankSyntheticStep),
			OriginalIndex: i,
		}
	}
	return results
}

// parseRerankResponse extracts the JSON array of index/score pairs the
// model was asked for. Models wrap JSON in prose or code fences, so the
// array is located by its brackets rather than parsed from position zero.
func parseRerankResponse(response string, candidates []string) ([]domain.RerankResult, bool) {
	raw, ok := extractJSONArray(response)
	if !ok {
		return nil, false
	}

	var entries []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}

	seen := make(map[int]bool, len(entries))
	results := make([]domain.RerankResult, 0, len(entries))
	for _, e := range entries {
		if e.Index < 0 || e.Index >= len(candidates) || seen[e.Index] {
			continue
		}
		seen[e.Index] = true
		results = append(results, domain.RerankResult{
			Text:          candidates[e.Index],
			Score:         clampScore(e.Score),
			OriginalIndex: e.Index,
		})
	}
	if len(results) == 0 {
		return nil, false
	}
	return results, true
}

// extractJSONArray returns the first '['..last ']' slice of s.
func extractJSONArray(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// extractJSONObject returns the first '{'..last '}' slice of s.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// clampScore forces a model-reported score into [0, 1].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
