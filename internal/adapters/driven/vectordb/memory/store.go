// Package memory provides an in-memory vector store for tests and
// ephemeral runs. Queries are answered by exhaustive cosine comparison.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Vectors live in one map per namespace. All records must share the
// dimension of the first vector upserted.
type VectorStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]driven.VectorRecord
	dimension  int
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		namespaces: make(map[string]map[string]driven.VectorRecord),
	}
}

// Upsert inserts or replaces records in the given namespace.
func (s *VectorStore) Upsert(_ context.Context, namespace string, records []driven.VectorRecord) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]driven.VectorRecord)
		s.namespaces[namespace] = ns
	}

	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("%w: record ID is required", domain.ErrInvalidInput)
		}
		if len(rec.Values) == 0 {
			return fmt.Errorf("%w: record %s has an empty vector", domain.ErrInvalidInput, rec.ID)
		}
		if s.dimension == 0 {
			s.dimension = len(rec.Values)
		} else if len(rec.Values) != s.dimension {
			return fmt.Errorf("%w: record %s has dimension %d, index expects %d",
				domain.ErrInvalidInput, rec.ID, len(rec.Values), s.dimension)
		}

		// Copy the vector so later caller mutations cannot reach the store.
		values := make([]float32, len(rec.Values))
		copy(values, rec.Values)
		rec.Values = values
		ns[rec.ID] = rec
	}
	return nil
}

// Query finds the nearest neighbours by scoring every record in the
// namespace. Results are ordered by descending similarity, ties broken
// by ID for stable output.
func (s *VectorStore) Query(_ context.Context, namespace string, vector []float32, opts driven.QueryOptions) ([]domain.SimilarityResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.namespaces[namespace]
	results := make([]domain.SimilarityResult, 0, len(ns))
	for _, rec := range ns {
		if opts.Filter != nil && !opts.Filter.Matches(rec.Metadata) {
			continue
		}
		score, err := domain.CosineSimilarity(vector, rec.Values)
		if err != nil {
			return nil, fmt.Errorf("score record %s: %w", rec.ID, err)
		}
		results = append(results, domain.SimilarityResult{
			ID:       rec.ID,
			Score:    score,
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if opts.TopK > 0 && len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// DeleteByIDs removes the identified records. Missing IDs are not an error.
func (s *VectorStore) DeleteByIDs(_ context.Context, namespace string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

// DeleteByFilter removes all records matching the filter. An empty
// filter drops the whole namespace.
func (s *VectorStore) DeleteByFilter(_ context.Context, namespace string, filter driven.MetadataFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.IsZero() {
		delete(s.namespaces, namespace)
		return nil
	}

	ns := s.namespaces[namespace]
	for id, rec := range ns {
		if filter.Matches(rec.Metadata) {
			delete(ns, id)
		}
	}
	return nil
}

// DescribeStats reports totals and per-namespace counts.
func (s *VectorStore) DescribeStats(_ context.Context) (*driven.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &driven.IndexStats{
		Dimension:  s.dimension,
		Namespaces: make(map[string]int, len(s.namespaces)),
	}
	for name, ns := range s.namespaces {
		stats.Namespaces[name] = len(ns)
		stats.TotalVectors += len(ns)
	}
	return stats, nil
}

// Ping always succeeds.
func (s *VectorStore) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}
