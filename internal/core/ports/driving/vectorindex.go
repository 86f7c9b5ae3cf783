package driving

import (
	"context"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// VectorIndexService is the high-level face of the vector index: it pairs
// the embedding provider with the vector store so callers deal in evidence
// and query text, never raw vectors. Linking, ingestion, and dedup all
// drive the index through this interface, as does the stats CLI.
type VectorIndexService interface {
	// Enabled reports whether both an embedding provider and a vector
	// store are configured. Every other method returns
	// ErrVectorIndexUnavailable when this is false.
	Enabled() bool

	// UpsertEvidence embeds a single evidence text and stores it in the
	// project's namespace. Evidence with empty text is skipped silently.
	UpsertEvidence(ctx context.Context, ev domain.Evidence) error

	// UpsertBatch indexes many evidence records, splitting the work into
	// bounded sub-batches. A failed sub-batch fails only its own records;
	// the rest continue. Empty-text records count as failed.
	UpsertBatch(ctx context.Context, evs []domain.Evidence) (*BatchIndexResult, error)

	// Search embeds the query text and returns the most similar evidence
	// in the project, ordered by descending score.
	Search(ctx context.Context, query, projectID string, opts IndexSearchOptions) ([]domain.SimilarityResult, error)

	// CheckDuplicate reports whether text already has a near-identical
	// entry in the project. The best match is returned when found.
	CheckDuplicate(ctx context.Context, text, projectID string, threshold float64) (*domain.SimilarityResult, bool, error)

	// DeleteEvidence removes the identified vectors from a project's
	// namespace. Failures are logged and swallowed; the index converges
	// on the next upsert of the same IDs.
	DeleteEvidence(ctx context.Context, projectID string, ids []string) error

	// DeleteProject removes every vector in a project's namespace.
	DeleteProject(ctx context.Context, projectID string) error

	// Stats reports the index state together with the active providers.
	Stats(ctx context.Context) (*IndexStatus, error)
}

// BatchIndexResult reports the outcome of a batch upsert.
type BatchIndexResult struct {
	// Success is the number of records written to the index.
	Success int

	// Failed is the number of records that could not be written.
	Failed int

	// Errors describes each failure in input order.
	Errors []string
}

// IndexSearchOptions configures a vector index search.
type IndexSearchOptions struct {
	// TopK is the maximum number of results. Zero means the default.
	TopK int

	// MinScore drops results scoring below it. Zero keeps everything.
	MinScore float64

	// EvidenceType restricts results to one evidence type when set.
	EvidenceType domain.EvidenceType
}

// IndexStatus is the index state as reported to operators.
type IndexStatus struct {
	// Provider is the configured vector store backend.
	Provider string

	// EmbeddingModel is the model producing the stored vectors.
	EmbeddingModel string

	// Dimension is the vector size.
	Dimension int

	// TotalVectors is the number of vectors across all namespaces.
	TotalVectors int

	// Namespaces maps each project namespace to its vector count.
	Namespaces map[string]int
}
