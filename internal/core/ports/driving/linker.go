package driving

import (
	"context"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// EvidenceLinker connects premises to relevant evidence.
// A link run retrieves candidates by vector similarity, reranks them with
// an LLM when one is configured, and classifies each survivor's relationship
// to the premise.
type EvidenceLinker interface {
	// Link finds and classifies evidence for a single premise within a project.
	// A failed premise yields a result with no linked evidence rather than
	// an error; only invalid input or a missing index fails outright.
	Link(ctx context.Context, premise, projectID string, opts domain.LinkOptions) (*domain.LinkingResult, error)

	// LinkBatch links several premises sequentially and returns one result
	// per premise, in input order.
	LinkBatch(ctx context.Context, premises []string, projectID string, opts domain.LinkOptions) ([]domain.LinkingResult, error)
}
