package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockIndexService implements driving.VectorIndexService for testing.
type mockIndexService struct {
	enabled bool

	searchHits  []domain.SimilarityResult
	searchFn    func(query string) []domain.SimilarityResult
	searchErr   error
	searchCalls int
	lastQuery   string
	lastProject string
	lastOpts    driving.IndexSearchOptions

	upserted  []domain.Evidence
	upsertErr error

	batched     [][]domain.Evidence
	batchResult *driving.BatchIndexResult
	batchErr    error

	dupMatch         *domain.SimilarityResult
	dupErr           error
	dupCalls         int
	lastDupText      string
	lastDupThreshold float64

	deletedIDs []string
	deleteErr  error

	status    *driving.IndexStatus
	statusErr error
}

func (m *mockIndexService) Enabled() bool {
	return m.enabled
}

func (m *mockIndexService) UpsertEvidence(_ context.Context, ev domain.Evidence) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, ev)
	return nil
}

func (m *mockIndexService) UpsertBatch(_ context.Context, evs []domain.Evidence) (*driving.BatchIndexResult, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	m.batched = append(m.batched, evs)
	if m.batchResult != nil {
		return m.batchResult, nil
	}
	return &driving.BatchIndexResult{Success: len(evs)}, nil
}

func (m *mockIndexService) Search(_ context.Context, query, projectID string, opts driving.IndexSearchOptions) ([]domain.SimilarityResult, error) {
	m.searchCalls++
	m.lastQuery = query
	m.lastProject = projectID
	m.lastOpts = opts
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.searchFn != nil {
		return m.searchFn(query), nil
	}
	return m.searchHits, nil
}

func (m *mockIndexService) CheckDuplicate(_ context.Context, text, _ string, threshold float64) (*domain.SimilarityResult, bool, error) {
	m.dupCalls++
	m.lastDupText = text
	m.lastDupThreshold = threshold
	if m.dupErr != nil {
		return nil, false, m.dupErr
	}
	return m.dupMatch, m.dupMatch != nil, nil
}

func (m *mockIndexService) DeleteEvidence(_ context.Context, _ string, ids []string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, ids...)
	return nil
}

func (m *mockIndexService) DeleteProject(_ context.Context, _ string) error {
	return m.deleteErr
}

func (m *mockIndexService) Stats(_ context.Context) (*driving.IndexStatus, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

// --- Test helpers ---

func linkHits(n int) []domain.SimilarityResult {
	hits := make([]domain.SimilarityResult, n)
	for i := range hits {
		hits[i] = domain.SimilarityResult{
			ID:    fmt.Sprintf("ev-%d", i),
			Score: 0.9 - float64(i)*0.05,
			Metadata: domain.VectorMetadata{
				Text:        fmt.Sprintf("Evidence text number %d.", i),
				SourceURL:   fmt.Sprintf("https://example.org/%d", i),
				SourceTitle: fmt.Sprintf("Source %d", i),
			},
		}
	}
	return hits
}

// skipAll turns off the model stages so tests can focus on retrieval
// and filtering.
var skipAll = domain.LinkOptions{SkipReranking: true, SkipClassification: true}

// --- Tests ---

func TestLinking_Link_BlankPremise(t *testing.T) {
	index := &mockIndexService{enabled: true}
	linking := NewLinking(index, nil, nil)

	result, err := linking.Link(context.Background(), "   \n ", "proj-1", domain.LinkOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.Premise)
	assert.Empty(t, result.LinkedEvidence)
	assert.Equal(t, domain.LinkStats{}, result.Stats)
	assert.Zero(t, index.searchCalls)
}

func TestLinking_Link_MissingProject(t *testing.T) {
	linking := NewLinking(&mockIndexService{enabled: true}, nil, nil)

	_, err := linking.Link(context.Background(), "premise", "", domain.LinkOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLinking_Link_IndexUnavailable(t *testing.T) {
	_, err := NewLinking(nil, nil, nil).Link(context.Background(), "premise", "proj-1", domain.LinkOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	disabled := &mockIndexService{enabled: false}
	_, err = NewLinking(disabled, nil, nil).Link(context.Background(), "premise", "proj-1", domain.LinkOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestLinking_Link_NoCandidates(t *testing.T) {
	index := &mockIndexService{enabled: true}
	linking := NewLinking(index, nil, nil)

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.LinkedEvidence)
	assert.Zero(t, result.Stats.CandidatesFound)
	assert.Equal(t, 1, index.searchCalls)
}

func TestLinking_Link_FullPipeline(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: linkHits(6)}
	rerankLLM := &mockLLM{
		response: `[{"index": 0, "score": 0.9}, {"index": 3, "score": 0.7},
			{"index": 5, "score": 0.4}, {"index": 1, "score": 0.2},
			{"index": 2, "score": 0.1}, {"index": 4, "score": 0.05}]`,
	}
	classifyLLM := &mockLLM{chatResponses: []string{
		`{"relationship": "supports", "confidence": 0.9, "reasoning": "Direct match."}`,
		`{"relationship": "refutes", "confidence": 0.85, "reasoning": "Contradicts the claim."}`,
	}}
	linking := NewLinking(index, NewReranker(rerankLLM), NewClassifier(classifyLLM))

	result, err := linking.Link(context.Background(), "warming accelerated", "proj-1", domain.LinkOptions{
		TopK:     6,
		RerankK:  3,
		MinScore: 0.5,
	})

	require.NoError(t, err)
	assert.Equal(t, "warming accelerated", result.Premise)
	assert.Equal(t, "proj-1", result.ProjectID)

	assert.Equal(t, 6, result.Stats.CandidatesFound)
	assert.Equal(t, 3, result.Stats.AfterReranking)
	assert.Equal(t, 2, result.Stats.AfterFiltering)

	require.Len(t, result.LinkedEvidence, 2)

	first := result.LinkedEvidence[0]
	assert.Equal(t, "ev-0", first.EvidenceID)
	assert.Equal(t, "Evidence text number 0.", first.EvidenceText)
	assert.InDelta(t, 0.9, first.VectorScore, 1e-9)
	assert.InDelta(t, 0.9, first.RerankScore, 1e-9)
	assert.Equal(t, domain.RelationshipSupports, first.Relationship)
	assert.Equal(t, "Direct match.", first.Reasoning)
	assert.Equal(t, "https://example.org/0", first.SourceURL)
	assert.Equal(t, "Source 0", first.SourceTitle)

	second := result.LinkedEvidence[1]
	assert.Equal(t, "ev-3", second.EvidenceID)
	assert.InDelta(t, 0.7, second.RerankScore, 1e-9)
	assert.Equal(t, domain.RelationshipRefutes, second.Relationship)

	assert.Equal(t, 1, rerankLLM.generateCalls)
	assert.Equal(t, 2, classifyLLM.chatCalls)
}

func TestLinking_Link_DefaultOptions(t *testing.T) {
	index := &mockIndexService{enabled: true}
	linking := NewLinking(index, nil, nil)

	_, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLinkTopK, index.lastOpts.TopK)
	// Retrieval never pre-filters; thresholds apply to rerank scores
	assert.Zero(t, index.lastOpts.MinScore)
}

func TestLinking_Link_EvidenceTypeForwarded(t *testing.T) {
	index := &mockIndexService{enabled: true}
	linking := NewLinking(index, nil, nil)

	_, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{
		EvidenceType: domain.EvidenceTypeStudy,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.EvidenceTypeStudy, index.lastOpts.EvidenceType)
}

func TestLinking_Link_MinScoreAppliedToRerankScores(t *testing.T) {
	// High vector scores with low rerank scores must still be dropped.
	hits := linkHits(6)
	for i := range hits {
		hits[i].Score = 0.99
	}
	index := &mockIndexService{enabled: true, searchHits: hits}
	rerankLLM := &mockLLM{
		response: `[{"index": 0, "score": 0.9}, {"index": 1, "score": 0.1},
			{"index": 2, "score": 0.08}, {"index": 3, "score": 0.6},
			{"index": 4, "score": 0.05}, {"index": 5, "score": 0.02}]`,
	}
	linking := NewLinking(index, NewReranker(rerankLLM), nil)

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{
		RerankK:  3,
		MinScore: 0.5,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Stats.AfterReranking)
	assert.Equal(t, 2, result.Stats.AfterFiltering)
	require.Len(t, result.LinkedEvidence, 2)
	assert.Equal(t, "ev-0", result.LinkedEvidence[0].EvidenceID)
	assert.Equal(t, "ev-3", result.LinkedEvidence[1].EvidenceID)
}

func TestLinking_Link_DefaultMinScore(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: []domain.SimilarityResult{
		{ID: "ev-strong", Score: 0.35, Metadata: domain.VectorMetadata{Text: "strong"}},
		{ID: "ev-weak", Score: 0.25, Metadata: domain.VectorMetadata{Text: "weak"}},
	}}
	linking := NewLinking(index, nil, nil)

	result, err := linking.Link(context.Background(), "premise", "proj-1", skipAll)

	require.NoError(t, err)
	require.Len(t, result.LinkedEvidence, 1)
	assert.Equal(t, "ev-strong", result.LinkedEvidence[0].EvidenceID)
}

func TestLinking_Link_SkipRerankingKeepsVectorScores(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: linkHits(8)}
	rerankLLM := &mockLLM{}
	linking := NewLinking(index, NewReranker(rerankLLM), nil)

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{
		RerankK:       3,
		SkipReranking: true,
	})

	require.NoError(t, err)
	assert.Zero(t, rerankLLM.generateCalls)
	require.NotEmpty(t, result.LinkedEvidence)
	for _, le := range result.LinkedEvidence {
		assert.InDelta(t, le.VectorScore, le.RerankScore, 1e-9)
	}
}

func TestLinking_Link_SmallCandidateSetSkipsRerank(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: linkHits(3)}
	rerankLLM := &mockLLM{}
	linking := NewLinking(index, NewReranker(rerankLLM), nil)

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{RerankK: 5})

	require.NoError(t, err)
	assert.Zero(t, rerankLLM.generateCalls)
	assert.Equal(t, 3, result.Stats.AfterReranking)
}

func TestLinking_Link_NoModelsLabelsSupporting(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: linkHits(2)}
	linking := NewLinking(index, nil, nil)

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{})

	require.NoError(t, err)
	require.Len(t, result.LinkedEvidence, 2)
	for _, le := range result.LinkedEvidence {
		assert.Equal(t, domain.RelationshipSupports, le.Relationship)
		assert.InDelta(t, le.RerankScore, le.Confidence, 1e-9)
		assert.Empty(t, le.Reasoning)
	}
}

func TestLinking_Link_SkipClassification(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: linkHits(2)}
	classifyLLM := &mockLLM{}
	linking := NewLinking(index, nil, NewClassifier(classifyLLM))

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{
		SkipClassification: true,
	})

	require.NoError(t, err)
	assert.Zero(t, classifyLLM.chatCalls)
	require.Len(t, result.LinkedEvidence, 2)
	assert.Equal(t, domain.RelationshipSupports, result.LinkedEvidence[0].Relationship)
}

func TestLinking_Link_SearchErrorYieldsEmptyResult(t *testing.T) {
	index := &mockIndexService{enabled: true, searchErr: errors.New("index offline")}
	linking := NewLinking(index, nil, nil)

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.LinkedEvidence)
	assert.Zero(t, result.Stats.CandidatesFound)
	assert.GreaterOrEqual(t, result.Stats.ProcessingTimeMs, int64(0))
}

func TestLinking_Link_ClassifierErrorYieldsEmptyResult(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: linkHits(2)}
	classifyLLM := &mockLLM{chatErr: errors.New("model offline")}
	linking := NewLinking(index, nil, NewClassifier(classifyLLM))

	result, err := linking.Link(context.Background(), "premise", "proj-1", domain.LinkOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.LinkedEvidence)
	assert.Equal(t, 1, classifyLLM.chatCalls)
}

func TestLinking_LinkBatch(t *testing.T) {
	index := &mockIndexService{enabled: true, searchHits: linkHits(2)}
	linking := NewLinking(index, nil, nil)

	results, err := linking.LinkBatch(context.Background(), []string{"first premise", "", "third premise"}, "proj-1", skipAll)

	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "first premise", results[0].Premise)
	assert.Len(t, results[0].LinkedEvidence, 2)

	// Blank premises produce an empty result without touching the index
	assert.Empty(t, results[1].Premise)
	assert.Empty(t, results[1].LinkedEvidence)

	assert.Equal(t, "third premise", results[2].Premise)
	assert.Equal(t, 2, index.searchCalls)
}

func TestLinking_LinkBatch_PropagatesInvalidInput(t *testing.T) {
	linking := NewLinking(&mockIndexService{enabled: true}, nil, nil)

	_, err := linking.LinkBatch(context.Background(), []string{"premise"}, "", domain.LinkOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
