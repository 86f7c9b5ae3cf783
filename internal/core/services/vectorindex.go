package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
	"github.com/custodia-labs/claimlens/internal/logger"
)

// Ensure VectorIndex implements the interface.
var _ driving.VectorIndexService = (*VectorIndex)(nil)

const (
	// upsertBatchSize bounds a single vector store write.
	upsertBatchSize = 100

	// defaultSearchTopK is the result limit when the caller passes zero.
	defaultSearchTopK = 10
)

// VectorIndex pairs the embedding provider with the vector store.
// Callers hand it evidence and query text; it owns embedding, namespace
// selection (one namespace per project), and sub-batching.
//
// The index is an optimisation layer over the canonical evidence store.
// When it is not configured, mutating and query operations report
// ErrVectorIndexUnavailable so callers can distinguish "disabled" from
// "no results". Delete failures are logged and swallowed: the two stores
// are eventually consistent, and the next upsert of the same IDs converges.
type VectorIndex struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	provider string
}

// NewVectorIndex creates a new vector index service.
// Both embedder and store are optional (can be nil); the index reports
// itself disabled until both are present. Provider is the backend name
// surfaced in Stats.
func NewVectorIndex(embedder driven.EmbeddingService, store driven.VectorStore, provider string) *VectorIndex {
	return &VectorIndex{
		embedder: embedder,
		store:    store,
		provider: provider,
	}
}

// Enabled reports whether both an embedding provider and a vector store
// are configured.
func (s *VectorIndex) Enabled() bool {
	return s.embedder != nil && s.store != nil
}

// UpsertEvidence embeds a single evidence text and stores it in the
// project's namespace. Evidence with empty text is skipped silently.
func (s *VectorIndex) UpsertEvidence(ctx context.Context, ev domain.Evidence) error {
	if !s.Enabled() {
		return domain.ErrVectorIndexUnavailable
	}
	if strings.TrimSpace(ev.Text) == "" {
		logger.Debug("Skipping index upsert for %s: empty text", ev.ID)
		return nil
	}
	if ev.ID == "" {
		return fmt.Errorf("%w: evidence id is required", domain.ErrInvalidInput)
	}
	if ev.ProjectID == "" {
		return fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}

	vector, err := s.embedder.Embed(ctx, ev.Text)
	if err != nil {
		return domain.NewEmbeddingError(len(ev.Text), err)
	}

	record := driven.VectorRecord{
		ID:       ev.ID,
		Values:   vector,
		Metadata: domain.NewVectorMetadata(ev),
	}
	if err := s.store.Upsert(ctx, ev.ProjectID, []driven.VectorRecord{record}); err != nil {
		return fmt.Errorf("upsert evidence %s: %w", ev.ID, err)
	}

	logger.Debug("Indexed evidence %s (%d dims) in project %s", ev.ID, len(vector), ev.ProjectID)
	return nil
}

// UpsertBatch indexes many evidence records. Empty-text records are counted
// as failed upfront. The remainder is embedded in one batched call and
// written in sub-batches; a failed sub-batch fails only its own records.
func (s *VectorIndex) UpsertBatch(ctx context.Context, evs []domain.Evidence) (*driving.BatchIndexResult, error) {
	if !s.Enabled() {
		return nil, domain.ErrVectorIndexUnavailable
	}

	result := &driving.BatchIndexResult{}
	if len(evs) == 0 {
		return result, nil
	}

	logger.Section("Vector Index Batch Upsert")
	logger.Debug("Indexing %d evidence records", len(evs))

	// Filter out empty-text records before spending embedding calls.
	indexable := make([]domain.Evidence, 0, len(evs))
	for _, ev := range evs {
		if strings.TrimSpace(ev.Text) == "" || ev.ID == "" || ev.ProjectID == "" {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("evidence %q: missing text, id, or project", ev.ID))
			continue
		}
		indexable = append(indexable, ev)
	}
	if len(indexable) == 0 {
		return result, nil
	}

	texts := make([]string, len(indexable))
	for i, ev := range indexable {
		texts[i] = ev.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		result.Failed += len(indexable)
		result.Errors = append(result.Errors, fmt.Sprintf("batch embedding: %v", err))
		logger.Warn("Batch embedding failed for %d records: %v", len(indexable), err)
		return result, nil
	}

	// Group records by project so each sub-batch targets one namespace.
	byProject := make(map[string][]driven.VectorRecord)
	for i, ev := range indexable {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("evidence %q: no embedding produced", ev.ID))
			continue
		}
		byProject[ev.ProjectID] = append(byProject[ev.ProjectID], driven.VectorRecord{
			ID:       ev.ID,
			Values:   vectors[i],
			Metadata: domain.NewVectorMetadata(ev),
		})
	}

	for projectID, records := range byProject {
		for start := 0; start < len(records); start += upsertBatchSize {
			end := min(start+upsertBatchSize, len(records))
			batch := records[start:end]
			if err := s.store.Upsert(ctx, projectID, batch); err != nil {
				result.Failed += len(batch)
				result.Errors = append(result.Errors, fmt.Sprintf("upsert sub-batch in project %s (%d records): %v", projectID, len(batch), err))
				logger.Warn("Upsert sub-batch failed in project %s: %v", projectID, err)
				continue
			}
			result.Success += len(batch)
		}
	}

	logger.Info("Indexed %d/%d evidence records", result.Success, len(evs))
	return result, nil
}

// Search embeds the query text and returns the most similar evidence in
// the project. Empty queries return empty results without a remote call.
// Query text is never logged, only its length.
func (s *VectorIndex) Search(ctx context.Context, query, projectID string, opts driving.IndexSearchOptions) ([]domain.SimilarityResult, error) {
	if !s.Enabled() {
		return nil, domain.ErrVectorIndexUnavailable
	}

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SimilarityResult{}, nil
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	logger.Debug("Vector search: query=%d chars, project=%s, topK=%d, minScore=%.2f",
		len(query), projectID, topK, opts.MinScore)

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.NewEmbeddingError(len(query), err)
	}

	qopts := driven.QueryOptions{TopK: topK}
	if opts.EvidenceType != "" {
		qopts.Filter = &driven.MetadataFilter{EvidenceType: opts.EvidenceType}
	}
	hits, err := s.store.Query(ctx, projectID, embedding, qopts)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	logger.Debug("Vector search: %d raw hits", len(hits))

	if opts.MinScore > 0 {
		filtered := make([]domain.SimilarityResult, 0, len(hits))
		for _, hit := range hits {
			if hit.Score >= opts.MinScore {
				filtered = append(filtered, hit)
			}
		}
		logger.Debug("Vector search: %d hits above min score", len(filtered))
		hits = filtered
	}

	return hits, nil
}

// CheckDuplicate reports whether text already has a near-identical entry
// in the project. A best match scoring exactly at the threshold counts
// as a duplicate.
func (s *VectorIndex) CheckDuplicate(ctx context.Context, text, projectID string, threshold float64) (*domain.SimilarityResult, bool, error) {
	if !s.Enabled() {
		return nil, false, domain.ErrVectorIndexUnavailable
	}
	if threshold <= 0 {
		threshold = domain.DefaultDuplicateThreshold
	}

	hits, err := s.Search(ctx, text, projectID, driving.IndexSearchOptions{TopK: 1})
	if err != nil {
		return nil, false, fmt.Errorf("duplicate check: %w", err)
	}
	if len(hits) == 0 {
		return nil, false, nil
	}

	best := hits[0]
	if best.Score >= threshold {
		logger.Debug("Duplicate found: %s at %.4f (threshold %.2f)", best.ID, best.Score, threshold)
		return &best, true, nil
	}
	return nil, false, nil
}

// DeleteEvidence removes the identified vectors from a project's namespace.
// Failures are logged and swallowed; the canonical store owns correctness.
func (s *VectorIndex) DeleteEvidence(ctx context.Context, projectID string, ids []string) error {
	if !s.Enabled() {
		return domain.ErrVectorIndexUnavailable
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.DeleteByIDs(ctx, projectID, ids); err != nil {
		logger.Warn("Vector delete failed for %d ids in project %s: %v", len(ids), projectID, err)
		return nil
	}
	logger.Debug("Deleted %d vectors from project %s", len(ids), projectID)
	return nil
}

// DeleteProject removes every vector in a project's namespace.
// Failures are logged and swallowed.
func (s *VectorIndex) DeleteProject(ctx context.Context, projectID string) error {
	if !s.Enabled() {
		return domain.ErrVectorIndexUnavailable
	}
	if projectID == "" {
		return fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	if err := s.store.DeleteByFilter(ctx, projectID, driven.MetadataFilter{}); err != nil {
		logger.Warn("Vector purge failed for project %s: %v", projectID, err)
		return nil
	}
	logger.Info("Purged vector namespace for project %s", projectID)
	return nil
}

// Stats reports the index state together with the active providers.
func (s *VectorIndex) Stats(ctx context.Context) (*driving.IndexStatus, error) {
	if !s.Enabled() {
		return nil, domain.ErrVectorIndexUnavailable
	}

	stats, err := s.store.DescribeStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe index: %w", err)
	}

	dimension := stats.Dimension
	if dimension == 0 {
		dimension = s.embedder.Dimensions()
	}
	return &driving.IndexStatus{
		Provider:       s.provider,
		EmbeddingModel: s.embedder.ModelName(),
		Dimension:      dimension,
		TotalVectors:   stats.TotalVectors,
		Namespaces:     stats.Namespaces,
	}, nil
}
