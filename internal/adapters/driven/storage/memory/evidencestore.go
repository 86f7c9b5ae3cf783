package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
)

// Ensure EvidenceStore implements the interface.
var _ driven.EvidenceStore = (*EvidenceStore)(nil)

// EvidenceStore is an in-memory implementation of driven.EvidenceStore.
type EvidenceStore struct {
	mu       sync.RWMutex
	evidence map[string]domain.Evidence
}

// NewEvidenceStore creates a new in-memory evidence store.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{
		evidence: make(map[string]domain.Evidence),
	}
}

// Create stores a new evidence record.
func (s *EvidenceStore) Create(_ context.Context, ev *domain.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.evidence[ev.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.evidence[ev.ID] = *ev
	return nil
}

// Get retrieves evidence by ID.
func (s *EvidenceStore) Get(_ context.Context, id string) (*domain.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.evidence[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ev, nil
}

// ListByProject returns all active evidence for a project, oldest first.
func (s *EvidenceStore) ListByProject(_ context.Context, projectID string) ([]domain.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Evidence
	for id := range s.evidence {
		ev := s.evidence[id]
		if ev.ProjectID == projectID && ev.Status == domain.EvidenceStatusActive {
			result = append(result, ev)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListByArtifact returns all evidence from one ingestion run, by chunk index.
func (s *EvidenceStore) ListByArtifact(_ context.Context, artifactID string) ([]domain.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Evidence
	for id := range s.evidence {
		ev := s.evidence[id]
		if ev.ArtifactID == artifactID {
			result = append(result, ev)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ChunkIndex == result[j].ChunkIndex {
			return result[i].ID < result[j].ID
		}
		return result[i].ChunkIndex < result[j].ChunkIndex
	})
	return result, nil
}

// UpdateStatus changes the lifecycle status of an evidence record.
func (s *EvidenceStore) UpdateStatus(_ context.Context, id string, status domain.EvidenceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.evidence[id]
	if !ok {
		return domain.ErrNotFound
	}
	ev.Status = status
	ev.UpdatedAt = time.Now().UTC()
	s.evidence[id] = ev
	return nil
}

// Delete removes an evidence record. Missing IDs are not an error.
func (s *EvidenceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.evidence, id)
	return nil
}

// CountByProject returns the number of active evidence records in a project.
func (s *EvidenceStore) CountByProject(_ context.Context, projectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for id := range s.evidence {
		ev := s.evidence[id]
		if ev.ProjectID == projectID && ev.Status == domain.EvidenceStatusActive {
			count++
		}
	}
	return count, nil
}
