package driven

import (
	"context"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// ClaimExtractor identifies discrete factual claims within a passage of text.
// This is an optional service - when nil, ingestion falls back to treating
// each chunk as one claim at reduced confidence.
//
// The reference implementation is a separate ML inference service spoken to
// over HTTP, but anything that can split prose into claims satisfies this.
type ClaimExtractor interface {
	// Extract returns the claims found in text with confidence at or above
	// the given threshold. Span offsets refer to positions in text, or -1
	// when the extractor cannot locate the claim.
	Extract(ctx context.Context, text string, threshold float64) ([]domain.ExtractedClaim, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
