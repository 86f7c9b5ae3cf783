package driving

import (
	"context"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// IngestionService turns raw documents into indexed evidence.
// Ingestion chunks the text, extracts claims from each chunk, and stores
// the surviving claims in both the evidence store and the vector index.
type IngestionService interface {
	// Ingest processes raw text under the given source description.
	// Per-chunk failures are recorded in the result's Errors rather than
	// aborting the run.
	Ingest(ctx context.Context, text string, source domain.IngestSource, projectID, userID string, opts domain.IngestOptions) (*domain.IngestionResult, error)

	// IngestURL fetches a remote document and ingests its readable text.
	IngestURL(ctx context.Context, url, projectID, userID string, opts domain.IngestOptions) (*domain.IngestionResult, error)

	// IngestFile reads a local text or HTML file and ingests its contents.
	IngestFile(ctx context.Context, path, projectID, userID string, opts domain.IngestOptions) (*domain.IngestionResult, error)

	// IngestDirectory walks a directory tree and ingests every file
	// matching the include/exclude patterns. A failing file is recorded in
	// the result's Errors and the walk continues.
	IngestDirectory(ctx context.Context, root, projectID, userID string, opts domain.DirectoryOptions) (*domain.DirectoryResult, error)

	// RemoveArtifact deletes all evidence created from a previously
	// ingested artifact, from both the evidence store and the vector index.
	RemoveArtifact(ctx context.Context, artifactID, projectID string) (int, error)
}
