package driving

import (
	"context"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// DedupService detects near-duplicate evidence within a project.
type DedupService interface {
	// FindClusters groups a project's evidence into duplicate clusters by
	// vector similarity. Threshold is the minimum similarity for cluster
	// membership; pass 0 to use the configured default. Evidence with no
	// qualifying neighbour is left out rather than emitted as a singleton.
	FindClusters(ctx context.Context, projectID string, threshold float64) ([]domain.DuplicateCluster, error)

	// GenerateReport runs FindClusters and computes corpus-wide totals:
	// duplicate count and the storage savings available from archiving them.
	GenerateReport(ctx context.Context, projectID string, threshold float64) (*domain.DedupReport, error)

	// ArchiveDuplicates archives every cluster member in the report,
	// keeping each cluster's representative active. Returns the number
	// archived.
	ArchiveDuplicates(ctx context.Context, report *domain.DedupReport) (int, error)
}
