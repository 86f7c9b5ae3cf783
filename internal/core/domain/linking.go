package domain

// RelationshipType labels how a piece of evidence relates to a premise.
type RelationshipType string

// Available relationship types.
const (
	// RelationshipSupports means the evidence directly backs the premise.
	RelationshipSupports RelationshipType = "supports"

	// RelationshipPartialSupport means the evidence backs part of the premise.
	RelationshipPartialSupport RelationshipType = "partial_support"

	// RelationshipRefutes means the evidence directly contradicts the premise.
	RelationshipRefutes RelationshipType = "refutes"

	// RelationshipPartialRefute means the evidence contradicts part of the premise.
	RelationshipPartialRefute RelationshipType = "partial_refute"

	// RelationshipNeutral means the evidence is related but neither
	// supports nor refutes.
	RelationshipNeutral RelationshipType = "neutral"
)

// IsValid returns true if the relationship type is recognised.
func (r RelationshipType) IsValid() bool {
	switch r {
	case RelationshipSupports, RelationshipPartialSupport,
		RelationshipRefutes, RelationshipPartialRefute, RelationshipNeutral:
		return true
	default:
		return false
	}
}

// IsSupporting returns true for supports and partial_support.
func (r RelationshipType) IsSupporting() bool {
	return r == RelationshipSupports || r == RelationshipPartialSupport
}

// IsRefuting returns true for refutes and partial_refute.
func (r RelationshipType) IsRefuting() bool {
	return r == RelationshipRefutes || r == RelationshipPartialRefute
}

// String returns the string representation.
func (r RelationshipType) String() string {
	return string(r)
}

// SimilarityResult is a single vector search hit.
// Query-time only, never persisted.
type SimilarityResult struct {
	// ID is the matched record's identifier.
	ID string

	// Score is the similarity score. Cosine-based backends return [0,1]
	// after normalisation; raw backends may return [-1,1].
	Score float64

	// Metadata is the payload stored beside the vector.
	Metadata VectorMetadata
}

// Classification is the outcome of classifying one premise-evidence pair.
type Classification struct {
	// Relationship is the assigned label.
	Relationship RelationshipType

	// Confidence is the model's certainty (0-1).
	Confidence float64

	// Reasoning is an optional short justification from the model.
	Reasoning string
}

// RerankResult is one candidate after second-pass relevance scoring.
type RerankResult struct {
	// Text is the candidate text.
	Text string

	// Score is the relevance score in [0,1].
	Score float64

	// OriginalIndex is the candidate's position in the input slice.
	OriginalIndex int
}

// LinkedEvidence is one ranked, relationship-tagged match for a premise.
// Ephemeral output of a linking call; persistence is the caller's concern.
type LinkedEvidence struct {
	// EvidenceID identifies the matched evidence record.
	EvidenceID string

	// EvidenceText is the matched text (as stored in the vector index).
	EvidenceText string

	// Relationship is the classified relation to the premise.
	Relationship RelationshipType

	// Confidence is the classification confidence (0-1).
	Confidence float64

	// VectorScore is the first-stage similarity score.
	// Kept separate from RerankScore so callers can explain ranking.
	VectorScore float64

	// RerankScore is the second-stage relevance score.
	RerankScore float64

	// SourceURL is the evidence origin address, if any.
	SourceURL string

	// SourceTitle is the evidence origin name, if any.
	SourceTitle string

	// Reasoning is the classifier's justification, if any.
	Reasoning string
}

// LinkOptions configures one linking call.
type LinkOptions struct {
	// TopK is the number of vector search candidates to retrieve.
	TopK int

	// RerankK is the number of candidates kept after reranking.
	RerankK int

	// MinScore drops reranked candidates scoring below it.
	MinScore float64

	// EvidenceType optionally restricts candidates to one type.
	EvidenceType EvidenceType

	// SkipReranking bypasses the rerank stage.
	SkipReranking bool

	// SkipClassification bypasses the classify stage. Matches default
	// to supports with the rerank score as confidence.
	SkipClassification bool
}

// Default linking parameters.
const (
	DefaultLinkTopK     = 20
	DefaultLinkRerankK  = 5
	DefaultLinkMinScore = 0.3
)

// DefaultLinkOptions returns the standard linking configuration.
func DefaultLinkOptions() LinkOptions {
	return LinkOptions{
		TopK:     DefaultLinkTopK,
		RerankK:  DefaultLinkRerankK,
		MinScore: DefaultLinkMinScore,
	}
}

// LinkStats records pipeline stage counts for one linking call.
type LinkStats struct {
	// CandidatesFound is the vector search hit count.
	CandidatesFound int

	// AfterReranking is the candidate count surviving the rerank stage.
	AfterReranking int

	// AfterFiltering is the candidate count surviving the score filter.
	AfterFiltering int

	// ProcessingTimeMs is the wall-clock duration of the whole call.
	ProcessingTimeMs int64
}

// LinkingResult is the outcome of linking one premise.
type LinkingResult struct {
	// Premise is the input statement.
	Premise string

	// ProjectID scopes the search.
	ProjectID string

	// LinkedEvidence holds the ranked matches.
	LinkedEvidence []LinkedEvidence

	// Stats records per-stage counts and timing.
	Stats LinkStats
}

// FilterSupporting returns the entries whose relationship supports the
// premise (supports or partial_support).
func FilterSupporting(evidence []LinkedEvidence) []LinkedEvidence {
	filtered := make([]LinkedEvidence, 0)
	for _, ev := range evidence {
		if ev.Relationship.IsSupporting() {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

// FilterRefuting returns the entries whose relationship refutes the
// premise (refutes or partial_refute).
func FilterRefuting(evidence []LinkedEvidence) []LinkedEvidence {
	filtered := make([]LinkedEvidence, 0)
	for _, ev := range evidence {
		if ev.Relationship.IsRefuting() {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

// CoverageStats summarises how well a premise is covered by its linked
// evidence.
type CoverageStats struct {
	// SupportCount is the number of supporting entries.
	// Partial support counts fully.
	SupportCount int

	// RefuteCount is the number of refuting entries.
	// Partial refute counts fully.
	RefuteCount int

	// NeutralCount is the number of neutral entries.
	NeutralCount int

	// NetSupport is SupportCount - RefuteCount.
	NetSupport int

	// AverageConfidence is the mean confidence over all entries.
	AverageConfidence float64

	// HasEvidence is true when any evidence was linked.
	HasEvidence bool
}

// Coverage computes coverage statistics over linked evidence.
func Coverage(evidence []LinkedEvidence) CoverageStats {
	stats := CoverageStats{HasEvidence: len(evidence) > 0}

	var confidenceSum float64
	for _, ev := range evidence {
		switch {
		case ev.Relationship.IsSupporting():
			stats.SupportCount++
		case ev.Relationship.IsRefuting():
			stats.RefuteCount++
		default:
			stats.NeutralCount++
		}
		confidenceSum += ev.Confidence
	}

	stats.NetSupport = stats.SupportCount - stats.RefuteCount
	if len(evidence) > 0 {
		stats.AverageConfidence = confidenceSum / float64(len(evidence))
	}

	return stats
}
