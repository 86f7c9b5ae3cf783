package driven

import (
	"context"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// EvidenceStore persists evidence metadata.
// Backed by SQLite for durable storage, with an in-memory variant for tests.
// The vector store holds the embeddings; this store is the source of truth
// for the evidence text and its provenance.
type EvidenceStore interface {
	// Create stores a new evidence record.
	// Returns ErrAlreadyExists if the ID is already present.
	Create(ctx context.Context, ev *domain.Evidence) error

	// Get retrieves evidence by ID.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, id string) (*domain.Evidence, error)

	// ListByProject returns all active evidence for a project,
	// ordered by creation time ascending (oldest first).
	ListByProject(ctx context.Context, projectID string) ([]domain.Evidence, error)

	// ListByArtifact returns all evidence extracted from a single
	// ingested artifact, ordered by chunk index.
	ListByArtifact(ctx context.Context, artifactID string) ([]domain.Evidence, error)

	// UpdateStatus changes the lifecycle status of an evidence record.
	// Returns ErrNotFound if no record exists.
	UpdateStatus(ctx context.Context, id string, status domain.EvidenceStatus) error

	// Delete removes an evidence record.
	// Missing IDs are not an error.
	Delete(ctx context.Context, id string) error

	// CountByProject returns the number of active evidence records in a project.
	CountByProject(ctx context.Context, projectID string) (int, error)
}
