package driven

import (
	"context"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// VectorStore provides vector persistence and similarity search.
// Vectors are partitioned into namespaces, one per project, so queries
// and deletes never cross project boundaries.
//
// Implementations may include:
//   - Pinecone (serverless index over HTTP)
//   - Bolt (local single-file store with exhaustive search)
//   - Memory (tests and ephemeral runs)
type VectorStore interface {
	// Upsert inserts or replaces records in the given namespace.
	// Records with IDs already present are overwritten.
	Upsert(ctx context.Context, namespace string, records []VectorRecord) error

	// Query finds the nearest neighbours to the query vector within a namespace.
	// Results are ordered by descending similarity score.
	Query(ctx context.Context, namespace string, vector []float32, opts QueryOptions) ([]domain.SimilarityResult, error)

	// DeleteByIDs removes the identified records from a namespace.
	// Missing IDs are not an error.
	DeleteByIDs(ctx context.Context, namespace string, ids []string) error

	// DeleteByFilter removes all records in a namespace matching the filter.
	// An empty filter removes the entire namespace.
	DeleteByFilter(ctx context.Context, namespace string, filter MetadataFilter) error

	// DescribeStats reports index-wide totals and per-namespace counts.
	DescribeStats(ctx context.Context) (*IndexStats, error)

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorRecord is a stored vector with its evidence metadata.
type VectorRecord struct {
	// ID is the evidence identifier the vector belongs to.
	ID string

	// Values is the embedding vector.
	Values []float32

	// Metadata carries the evidence fields stored alongside the vector.
	Metadata domain.VectorMetadata
}

// QueryOptions configures a similarity query.
type QueryOptions struct {
	// TopK is the maximum number of results to return.
	TopK int

	// Filter restricts results to records matching the given metadata.
	// Nil means no metadata filtering.
	Filter *MetadataFilter
}

// MetadataFilter restricts queries and deletes by metadata fields.
// Fields are combined with AND semantics; zero values are ignored.
// The filterable fields are fixed rather than an open map so every
// backend can translate them without schema negotiation.
type MetadataFilter struct {
	// ProjectID matches records belonging to a project.
	ProjectID string

	// EvidenceType matches records of a single evidence type.
	EvidenceType domain.EvidenceType

	// SourceType matches records from a single source kind.
	SourceType domain.SourceType
}

// IsZero reports whether the filter matches everything.
func (f MetadataFilter) IsZero() bool {
	return f.ProjectID == "" && f.EvidenceType == "" && f.SourceType == ""
}

// Matches reports whether metadata satisfies every set field.
func (f MetadataFilter) Matches(m domain.VectorMetadata) bool {
	if f.ProjectID != "" && m.ProjectID != f.ProjectID {
		return false
	}
	if f.EvidenceType != "" && m.EvidenceType != f.EvidenceType {
		return false
	}
	if f.SourceType != "" && m.SourceType != f.SourceType {
		return false
	}
	return true
}

// IndexStats describes the current state of a vector index.
type IndexStats struct {
	// TotalVectors is the number of vectors across all namespaces.
	TotalVectors int

	// Dimension is the vector size the index was created with.
	Dimension int

	// Namespaces maps namespace name to its vector count.
	Namespaces map[string]int
}
