package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	embedding  []float32
	embedErr   error
	batchErr   error
	dims       int
	embedCalls int
	batchCalls int
	lastTexts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	m.lastTexts = texts
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 4
}

func (m *mockEmbedder) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbedder) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbedder) Close() error {
	return nil
}

// mockVectorStore implements driven.VectorStore for testing.
type mockVectorStore struct {
	mu sync.Mutex

	upserts     map[string][][]driven.VectorRecord
	upsertCalls int
	failOnCall  int // 1-based upsert call that fails; 0 means never
	upsertErr   error

	hits               []domain.SimilarityResult
	queryErr           error
	lastQueryNamespace string
	lastQueryOpts      driven.QueryOptions

	deletedIDs        map[string][]string
	deleteErr         error
	filterDeleteCalls int

	stats    *driven.IndexStats
	statsErr error
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{
		upserts:    make(map[string][][]driven.VectorRecord),
		deletedIDs: make(map[string][]string),
	}
}

func (m *mockVectorStore) Upsert(_ context.Context, namespace string, records []driven.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.failOnCall > 0 && m.upsertCalls == m.failOnCall {
		return fmt.Errorf("simulated upsert failure")
	}
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts[namespace] = append(m.upserts[namespace], records)
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, namespace string, _ []float32, opts driven.QueryOptions) ([]domain.SimilarityResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQueryNamespace = namespace
	m.lastQueryOpts = opts
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if opts.TopK > 0 && opts.TopK < len(m.hits) {
		return m.hits[:opts.TopK], nil
	}
	return m.hits, nil
}

func (m *mockVectorStore) DeleteByIDs(_ context.Context, namespace string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs[namespace] = append(m.deletedIDs[namespace], ids...)
	return nil
}

func (m *mockVectorStore) DeleteByFilter(_ context.Context, _ string, _ driven.MetadataFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filterDeleteCalls++
	return m.deleteErr
}

func (m *mockVectorStore) DescribeStats(_ context.Context) (*driven.IndexStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &driven.IndexStats{}, nil
}

func (m *mockVectorStore) Ping(_ context.Context) error {
	return nil
}

func (m *mockVectorStore) Close() error {
	return nil
}

// storedRecords flattens all upserted batches for one namespace.
func (m *mockVectorStore) storedRecords(namespace string) []driven.VectorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []driven.VectorRecord
	for _, batch := range m.upserts[namespace] {
		all = append(all, batch...)
	}
	return all
}

// --- Test helpers ---

func testIndex() (*VectorIndex, *mockEmbedder, *mockVectorStore) {
	embedder := &mockEmbedder{embedding: []float32{0.1, 0.2, 0.3, 0.4}}
	store := newMockVectorStore()
	return NewVectorIndex(embedder, store, "memory"), embedder, store
}

func indexedEvidence(id, projectID, text string) domain.Evidence {
	return domain.Evidence{
		ID:        id,
		ProjectID: projectID,
		Text:      text,
		Type:      domain.EvidenceTypeArticle,
	}
}

// --- Tests ---

func TestVectorIndex_Enabled(t *testing.T) {
	embedder := &mockEmbedder{}
	store := newMockVectorStore()

	assert.True(t, NewVectorIndex(embedder, store, "memory").Enabled())
	assert.False(t, NewVectorIndex(nil, store, "memory").Enabled())
	assert.False(t, NewVectorIndex(embedder, nil, "memory").Enabled())
	assert.False(t, NewVectorIndex(nil, nil, "memory").Enabled())
}

func TestVectorIndex_Disabled_AllOperationsUnavailable(t *testing.T) {
	index := NewVectorIndex(nil, nil, "")
	ctx := context.Background()

	err := index.UpsertEvidence(ctx, indexedEvidence("ev-1", "proj-1", "text"))
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, err = index.UpsertBatch(ctx, []domain.Evidence{indexedEvidence("ev-1", "proj-1", "text")})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, err = index.Search(ctx, "query", "proj-1", driving.IndexSearchOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, _, err = index.CheckDuplicate(ctx, "text", "proj-1", 0.9)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	err = index.DeleteEvidence(ctx, "proj-1", []string{"ev-1"})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	err = index.DeleteProject(ctx, "proj-1")
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, err = index.Stats(ctx)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestVectorIndex_UpsertEvidence(t *testing.T) {
	index, embedder, store := testIndex()

	ev := indexedEvidence("ev-1", "proj-1", "Solar output doubled between 2015 and 2020.")
	err := index.UpsertEvidence(context.Background(), ev)

	require.NoError(t, err)
	assert.Equal(t, 1, embedder.embedCalls)

	records := store.storedRecords("proj-1")
	require.Len(t, records, 1)
	assert.Equal(t, "ev-1", records[0].ID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, records[0].Values)
	assert.Equal(t, ev.Text, records[0].Metadata.Text)
	assert.Equal(t, domain.EvidenceTypeArticle, records[0].Metadata.EvidenceType)
	assert.Equal(t, "proj-1", records[0].Metadata.ProjectID)
}

func TestVectorIndex_UpsertEvidence_EmptyTextSkipped(t *testing.T) {
	index, embedder, store := testIndex()

	err := index.UpsertEvidence(context.Background(), indexedEvidence("ev-1", "proj-1", "   "))

	require.NoError(t, err)
	assert.Zero(t, embedder.embedCalls)
	assert.Empty(t, store.storedRecords("proj-1"))
}

func TestVectorIndex_UpsertEvidence_MissingID(t *testing.T) {
	index, _, _ := testIndex()

	err := index.UpsertEvidence(context.Background(), indexedEvidence("", "proj-1", "some text"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndex_UpsertEvidence_MissingProject(t *testing.T) {
	index, _, _ := testIndex()

	err := index.UpsertEvidence(context.Background(), indexedEvidence("ev-1", "", "some text"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndex_UpsertEvidence_EmbedError(t *testing.T) {
	index, embedder, store := testIndex()
	cause := errors.New("model offline")
	embedder.embedErr = cause

	err := index.UpsertEvidence(context.Background(), indexedEvidence("ev-1", "proj-1", "some text"))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var embErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, len("some text"), embErr.InputLen)
	assert.Empty(t, store.storedRecords("proj-1"))
}

func TestVectorIndex_UpsertBatch(t *testing.T) {
	index, embedder, store := testIndex()

	evs := []domain.Evidence{
		indexedEvidence("ev-1", "proj-1", "First claim."),
		indexedEvidence("ev-2", "proj-1", "Second claim."),
		indexedEvidence("ev-3", "proj-1", ""),
		indexedEvidence("ev-4", "proj-1", "Fourth claim."),
	}

	result, err := index.UpsertBatch(context.Background(), evs)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ev-3")

	// One embedding call for the whole batch, empty text excluded
	assert.Equal(t, 1, embedder.batchCalls)
	assert.Equal(t, []string{"First claim.", "Second claim.", "Fourth claim."}, embedder.lastTexts)

	assert.Len(t, store.storedRecords("proj-1"), 3)
}

func TestVectorIndex_UpsertBatch_Empty(t *testing.T) {
	index, embedder, _ := testIndex()

	result, err := index.UpsertBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, result.Success)
	assert.Zero(t, result.Failed)
	assert.Zero(t, embedder.batchCalls)
}

func TestVectorIndex_UpsertBatch_EmbedErrorFailsAll(t *testing.T) {
	index, embedder, store := testIndex()
	embedder.batchErr = errors.New("quota exceeded")

	evs := []domain.Evidence{
		indexedEvidence("ev-1", "proj-1", "First claim."),
		indexedEvidence("ev-2", "proj-1", "Second claim."),
	}

	result, err := index.UpsertBatch(context.Background(), evs)

	require.NoError(t, err)
	assert.Zero(t, result.Success)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "quota exceeded")
	assert.Empty(t, store.storedRecords("proj-1"))
}

func TestVectorIndex_UpsertBatch_SubBatches(t *testing.T) {
	index, _, store := testIndex()

	evs := make([]domain.Evidence, 250)
	for i := range evs {
		evs[i] = indexedEvidence(fmt.Sprintf("ev-%d", i), "proj-1", fmt.Sprintf("Claim number %d.", i))
	}

	result, err := index.UpsertBatch(context.Background(), evs)

	require.NoError(t, err)
	assert.Equal(t, 250, result.Success)
	assert.Zero(t, result.Failed)

	// 250 records in one namespace split into batches of at most 100
	batches := store.upserts["proj-1"]
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)
}

func TestVectorIndex_UpsertBatch_SubBatchIsolation(t *testing.T) {
	index, _, store := testIndex()
	store.failOnCall = 1

	evs := make([]domain.Evidence, 150)
	for i := range evs {
		evs[i] = indexedEvidence(fmt.Sprintf("ev-%d", i), "proj-1", fmt.Sprintf("Claim number %d.", i))
	}

	result, err := index.UpsertBatch(context.Background(), evs)

	require.NoError(t, err)
	// First sub-batch of 100 fails, second of 50 still lands
	assert.Equal(t, 50, result.Success)
	assert.Equal(t, 100, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "simulated upsert failure")
}

func TestVectorIndex_UpsertBatch_GroupsByProject(t *testing.T) {
	index, _, store := testIndex()

	evs := []domain.Evidence{
		indexedEvidence("ev-1", "proj-a", "Claim in project A."),
		indexedEvidence("ev-2", "proj-b", "Claim in project B."),
		indexedEvidence("ev-3", "proj-a", "Another claim in project A."),
	}

	result, err := index.UpsertBatch(context.Background(), evs)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Success)
	assert.Len(t, store.storedRecords("proj-a"), 2)
	assert.Len(t, store.storedRecords("proj-b"), 1)
}

func TestVectorIndex_Search(t *testing.T) {
	index, _, store := testIndex()
	store.hits = []domain.SimilarityResult{
		{ID: "ev-1", Score: 0.91},
		{ID: "ev-2", Score: 0.72},
	}

	hits, err := index.Search(context.Background(), "renewable energy growth", "proj-1", driving.IndexSearchOptions{})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "ev-1", hits[0].ID)
	assert.Equal(t, "proj-1", store.lastQueryNamespace)
	assert.Equal(t, defaultSearchTopK, store.lastQueryOpts.TopK)
	assert.Nil(t, store.lastQueryOpts.Filter)
}

func TestVectorIndex_Search_EmptyQuery(t *testing.T) {
	index, embedder, _ := testIndex()

	hits, err := index.Search(context.Background(), "  \n ", "proj-1", driving.IndexSearchOptions{})

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
	assert.Zero(t, embedder.embedCalls)
}

func TestVectorIndex_Search_MissingProject(t *testing.T) {
	index, _, _ := testIndex()

	_, err := index.Search(context.Background(), "query", "", driving.IndexSearchOptions{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndex_Search_MinScoreInclusive(t *testing.T) {
	index, _, store := testIndex()
	store.hits = []domain.SimilarityResult{
		{ID: "ev-1", Score: 0.9},
		{ID: "ev-2", Score: 0.5},
		{ID: "ev-3", Score: 0.3},
	}

	hits, err := index.Search(context.Background(), "query", "proj-1", driving.IndexSearchOptions{MinScore: 0.5})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "ev-1", hits[0].ID)
	assert.Equal(t, "ev-2", hits[1].ID)
}

func TestVectorIndex_Search_EvidenceTypeFilter(t *testing.T) {
	index, _, store := testIndex()

	_, err := index.Search(context.Background(), "query", "proj-1", driving.IndexSearchOptions{
		EvidenceType: domain.EvidenceTypeStudy,
	})

	require.NoError(t, err)
	require.NotNil(t, store.lastQueryOpts.Filter)
	assert.Equal(t, domain.EvidenceTypeStudy, store.lastQueryOpts.Filter.EvidenceType)
}

func TestVectorIndex_Search_CustomTopK(t *testing.T) {
	index, _, store := testIndex()

	_, err := index.Search(context.Background(), "query", "proj-1", driving.IndexSearchOptions{TopK: 25})

	require.NoError(t, err)
	assert.Equal(t, 25, store.lastQueryOpts.TopK)
}

func TestVectorIndex_Search_QueryError(t *testing.T) {
	index, _, store := testIndex()
	store.queryErr = errors.New("connection refused")

	_, err := index.Search(context.Background(), "query", "proj-1", driving.IndexSearchOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector query")
}

func TestVectorIndex_CheckDuplicate_Found(t *testing.T) {
	index, _, store := testIndex()
	store.hits = []domain.SimilarityResult{{ID: "ev-1", Score: 0.95}}

	best, isDup, err := index.CheckDuplicate(context.Background(), "near identical text", "proj-1", 0.92)

	require.NoError(t, err)
	assert.True(t, isDup)
	require.NotNil(t, best)
	assert.Equal(t, "ev-1", best.ID)
	// Only the best match is requested
	assert.Equal(t, 1, store.lastQueryOpts.TopK)
}

func TestVectorIndex_CheckDuplicate_ExactThresholdIsDuplicate(t *testing.T) {
	index, _, store := testIndex()
	store.hits = []domain.SimilarityResult{{ID: "ev-1", Score: 0.92}}

	_, isDup, err := index.CheckDuplicate(context.Background(), "text", "proj-1", 0.92)

	require.NoError(t, err)
	assert.True(t, isDup)
}

func TestVectorIndex_CheckDuplicate_BelowThreshold(t *testing.T) {
	index, _, store := testIndex()
	store.hits = []domain.SimilarityResult{{ID: "ev-1", Score: 0.5}}

	best, isDup, err := index.CheckDuplicate(context.Background(), "unrelated text", "proj-1", 0.92)

	require.NoError(t, err)
	assert.False(t, isDup)
	assert.Nil(t, best)
}

func TestVectorIndex_CheckDuplicate_NoHits(t *testing.T) {
	index, _, _ := testIndex()

	best, isDup, err := index.CheckDuplicate(context.Background(), "text", "proj-1", 0.92)

	require.NoError(t, err)
	assert.False(t, isDup)
	assert.Nil(t, best)
}

func TestVectorIndex_CheckDuplicate_DefaultThreshold(t *testing.T) {
	index, _, store := testIndex()
	store.hits = []domain.SimilarityResult{{ID: "ev-1", Score: 0.93}}

	// Zero threshold falls back to the default of 0.92
	_, isDup, err := index.CheckDuplicate(context.Background(), "text", "proj-1", 0)

	require.NoError(t, err)
	assert.True(t, isDup)
}

func TestVectorIndex_DeleteEvidence(t *testing.T) {
	index, _, store := testIndex()

	err := index.DeleteEvidence(context.Background(), "proj-1", []string{"ev-1", "ev-2"})

	require.NoError(t, err)
	assert.Equal(t, []string{"ev-1", "ev-2"}, store.deletedIDs["proj-1"])
}

func TestVectorIndex_DeleteEvidence_EmptyIDs(t *testing.T) {
	index, _, store := testIndex()

	err := index.DeleteEvidence(context.Background(), "proj-1", nil)

	require.NoError(t, err)
	assert.Empty(t, store.deletedIDs)
}

func TestVectorIndex_DeleteEvidence_SwallowsStoreError(t *testing.T) {
	index, _, store := testIndex()
	store.deleteErr = errors.New("connection refused")

	err := index.DeleteEvidence(context.Background(), "proj-1", []string{"ev-1"})

	assert.NoError(t, err)
}

func TestVectorIndex_DeleteProject(t *testing.T) {
	index, _, store := testIndex()

	err := index.DeleteProject(context.Background(), "proj-1")

	require.NoError(t, err)
	assert.Equal(t, 1, store.filterDeleteCalls)
}

func TestVectorIndex_DeleteProject_MissingProject(t *testing.T) {
	index, _, _ := testIndex()

	err := index.DeleteProject(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndex_DeleteProject_SwallowsStoreError(t *testing.T) {
	index, _, store := testIndex()
	store.deleteErr = errors.New("connection refused")

	err := index.DeleteProject(context.Background(), "proj-1")

	assert.NoError(t, err)
}

func TestVectorIndex_Stats(t *testing.T) {
	index, _, store := testIndex()
	store.stats = &driven.IndexStats{
		TotalVectors: 1234,
		Dimension:    768,
		Namespaces:   map[string]int{"proj-1": 1000, "proj-2": 234},
	}

	status, err := index.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "memory", status.Provider)
	assert.Equal(t, "mock-embed", status.EmbeddingModel)
	assert.Equal(t, 768, status.Dimension)
	assert.Equal(t, 1234, status.TotalVectors)
	assert.Equal(t, 1000, status.Namespaces["proj-1"])
}

func TestVectorIndex_Stats_DimensionFallsBackToEmbedder(t *testing.T) {
	index, embedder, store := testIndex()
	embedder.dims = 1536
	store.stats = &driven.IndexStats{TotalVectors: 5}

	status, err := index.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1536, status.Dimension)
}

func TestVectorIndex_Stats_StoreError(t *testing.T) {
	index, _, store := testIndex()
	store.statsErr = errors.New("unreachable")

	_, err := index.Stats(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "describe index")
}
