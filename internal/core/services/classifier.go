package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/logger"
)

// Ensure Classifier can receive custom prompts.
var _ driven.PromptStoreAware = (*Classifier)(nil)

// classifyInterval paces classification calls so batch runs stay under
// upstream rate limits. One call per interval, no bursting.
const classifyInterval = 200 * time.Millisecond

// defaultClassifySystemPrompt frames the classification task.
const defaultClassifySystemPrompt = `You judge the relationship between a premise and a piece of evidence.
The only valid relationships are: supports, partial_support, refutes, partial_refute, neutral.
Answer with a single JSON object and nothing else.`

// defaultClassifyPrompt asks for one premise/evidence judgement.
// Placeholders: premise, evidence.
const defaultClassifyPrompt = `Premise: %s

Evidence: %s

How does the evidence relate to the premise?
Respond with only a JSON object:
{"relationship": "supports", "confidence": 0.85, "reasoning": "one sentence"}`

// Classifier labels the relationship between a premise and one piece of
// evidence. Each call is a single remote-model request; the batch variant
// is strictly sequential so a burst of pairs cannot trip provider limits.
type Classifier struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	limiter *rate.Limiter
}

// NewClassifier creates a new classifier.
// The llm parameter is optional (can be nil) - without it Classify returns
// ErrLLMUnavailable and callers should check Enabled first.
func NewClassifier(llm driven.LLMService) *Classifier {
	return &Classifier{
		llm:     llm,
		limiter: rate.NewLimiter(rate.Every(classifyInterval), 1),
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (c *Classifier) SetPromptStore(store driven.PromptStore) {
	c.prompts = store
}

// Enabled reports whether a remote model is configured.
// Safe on a nil receiver.
func (c *Classifier) Enabled() bool {
	return c != nil && c.llm != nil
}

// Classify labels one premise/evidence pair.
// A response that cannot be reduced to a valid label is reported as
// ErrMalformedResponse; the caller decides whether that is fatal.
func (c *Classifier) Classify(ctx context.Context, premise, evidence string) (*domain.Classification, error) {
	if c.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if strings.TrimSpace(premise) == "" || strings.TrimSpace(evidence) == "" {
		return nil, fmt.Errorf("%w: premise and evidence are required", domain.ErrInvalidInput)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("classification rate limit: %w", err)
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: c.systemPrompt()},
		{Role: "user", Content: fmt.Sprintf(c.classifyPrompt(), premise, evidence)},
	}
	response, err := c.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("classification call: %w", err)
	}

	classification, err := parseClassification(response)
	if err != nil {
		return nil, err
	}
	logger.Debug("Classified pair (evidence %d chars): %s at %.2f",
		len(evidence), classification.Relationship, classification.Confidence)
	return classification, nil
}

// ClassifyBatch labels each premise/evidence pair sequentially and returns
// one classification per pair, in input order. The first failure aborts the
// batch; partial tolerance belongs to the caller, who knows which pairs
// are optional.
func (c *Classifier) ClassifyBatch(ctx context.Context, premise string, evidences []string) ([]domain.Classification, error) {
	results := make([]domain.Classification, 0, len(evidences))
	for i, evidence := range evidences {
		classification, err := c.Classify(ctx, premise, evidence)
		if err != nil {
			return nil, fmt.Errorf("classify pair %d: %w", i, err)
		}
		results = append(results, *classification)
	}
	return results, nil
}

// systemPrompt returns the custom system prompt if one is configured,
// otherwise the built-in default.
func (c *Classifier) systemPrompt() string {
	if c.prompts != nil {
		if p, err := c.prompts.Load(driven.PromptClassifySystem); err == nil && p != "" {
			return p
		}
	}
	return defaultClassifySystemPrompt
}

// classifyPrompt returns the custom classify prompt if one is configured,
// otherwise the built-in default.
func (c *Classifier) classifyPrompt() string {
	if c.prompts != nil {
		if p, err := c.prompts.Load(driven.PromptClassify); err == nil && p != "" {
			return p
		}
	}
	return defaultClassifyPrompt
}

// parseClassification extracts the JSON object the model was asked for and
// validates its label. Confidence is clamped to [0, 1].
func parseClassification(response string) (*domain.Classification, error) {
	raw, ok := extractJSONObject(response)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in classification response", domain.ErrMalformedResponse)
	}

	var parsed struct {
		Relationship string  `json:"relationship"`
		Confidence   float64 `json:"confidence"`
		Reasoning    string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	relationship := domain.RelationshipType(strings.ToLower(strings.TrimSpace(parsed.Relationship)))
	if !relationship.IsValid() {
		return nil, fmt.Errorf("%w: unknown relationship %q", domain.ErrMalformedResponse, parsed.Relationship)
	}

	return &domain.Classification{
		Relationship: relationship,
		Confidence:   clampScore(parsed.Confidence),
		Reasoning:    strings.TrimSpace(parsed.Reasoning),
	}, nil
}
