package domain

import "time"

// EvidenceType categorises what kind of source material a piece of
// evidence is drawn from.
type EvidenceType string

// Available evidence types.
const (
	// EvidenceTypeStudy is a peer-reviewed study or paper.
	EvidenceTypeStudy EvidenceType = "study"

	// EvidenceTypeArticle is a news article or essay.
	EvidenceTypeArticle EvidenceType = "article"

	// EvidenceTypeDataset is a published dataset or statistic.
	EvidenceTypeDataset EvidenceType = "dataset"

	// EvidenceTypeTestimony is a first-hand account or expert statement.
	EvidenceTypeTestimony EvidenceType = "testimony"

	// EvidenceTypeOther is anything that fits no other category.
	EvidenceTypeOther EvidenceType = "other"
)

// IsValid returns true if the evidence type is recognised.
func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceTypeStudy, EvidenceTypeArticle, EvidenceTypeDataset,
		EvidenceTypeTestimony, EvidenceTypeOther:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t EvidenceType) String() string {
	return string(t)
}

// SourceType identifies how a piece of evidence entered the system.
type SourceType string

// Available source types.
const (
	// SourceTypeDocument is an uploaded or pasted document.
	SourceTypeDocument SourceType = "document"

	// SourceTypeURL is content fetched from a web address.
	SourceTypeURL SourceType = "url"

	// SourceTypeFile is a file ingested from disk.
	SourceTypeFile SourceType = "file"

	// SourceTypeManual is evidence entered directly by a user.
	SourceTypeManual SourceType = "manual"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeDocument, SourceTypeURL, SourceTypeFile, SourceTypeManual:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// EvidenceStatus tracks the lifecycle of an evidence record.
type EvidenceStatus string

// Available evidence statuses.
const (
	// EvidenceStatusActive is evidence visible to linking and dedup.
	EvidenceStatusActive EvidenceStatus = "active"

	// EvidenceStatusArchived is evidence kept for history but excluded
	// from retrieval.
	EvidenceStatusArchived EvidenceStatus = "archived"
)

// IsValid returns true if the status is recognised.
func (s EvidenceStatus) IsValid() bool {
	return s == EvidenceStatusActive || s == EvidenceStatusArchived
}

// String returns the string representation.
func (s EvidenceStatus) String() string {
	return string(s)
}

// Evidence is the canonical evidence record.
// It is the source of truth; the vector index holds a derived, eventually
// consistent copy keyed by the same ID.
type Evidence struct {
	// ID is the unique identifier, shared with the vector index.
	ID string

	// ProjectID scopes the evidence to one project.
	ProjectID string

	// Text is the evidence content.
	Text string

	// Type categorises the source material.
	Type EvidenceType

	// SourceType records how the evidence entered the system.
	SourceType SourceType

	// SourceURL is the origin address, if any.
	SourceURL string

	// SourceTitle is the human-readable origin name.
	SourceTitle string

	// Keywords are extracted index terms for the text.
	Keywords []string

	// ReliabilityScore estimates source trustworthiness (0-1).
	ReliabilityScore float64

	// RelevanceScore estimates topical relevance (0-1).
	RelevanceScore float64

	// Status is the lifecycle state.
	Status EvidenceStatus

	// ArtifactID traces the evidence back to the ingestion run that
	// created it. Empty for manually entered evidence.
	ArtifactID string

	// ChunkIndex is the position of the originating chunk within the
	// ingested document. -1 for manually entered evidence.
	ChunkIndex int

	// CreatedBy is the user who created the evidence.
	CreatedBy string

	// CreatedAt is when the evidence was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the evidence was last modified.
	UpdatedAt time.Time
}

// VectorMetadata is the fixed metadata payload stored beside each vector.
// The key set is closed; loose maps are deliberately avoided so that
// filters and round-trips stay typed.
type VectorMetadata struct {
	// Text is the evidence text, truncated to MaxStoredTextLen.
	Text string

	// EvidenceType categorises the source material.
	EvidenceType EvidenceType

	// SourceType records how the evidence entered the system.
	SourceType SourceType

	// SourceURL is the origin address, if any.
	SourceURL string

	// SourceTitle is the human-readable origin name.
	SourceTitle string

	// ProjectID scopes the vector to one project namespace.
	ProjectID string

	// CreatedAt is when the canonical record was created.
	CreatedAt time.Time

	// ReliabilityScore estimates source trustworthiness (0-1).
	ReliabilityScore float64

	// Keywords are extracted index terms for the text.
	Keywords []string
}

// MaxStoredTextLen bounds the text stored in vector metadata.
// The canonical record keeps the full text.
const MaxStoredTextLen = 1000

// NewVectorMetadata builds the vector payload for an evidence record,
// applying defaults and the stored-text bound.
func NewVectorMetadata(ev Evidence) VectorMetadata {
	evType := ev.Type
	if !evType.IsValid() {
		evType = EvidenceTypeOther
	}

	srcType := ev.SourceType
	if !srcType.IsValid() {
		srcType = SourceTypeManual
	}

	reliability := ev.ReliabilityScore
	if reliability <= 0 {
		reliability = DefaultReliabilityScore
	}

	return VectorMetadata{
		Text:             TruncateText(ev.Text, MaxStoredTextLen),
		EvidenceType:     evType,
		SourceType:       srcType,
		SourceURL:        ev.SourceURL,
		SourceTitle:      ev.SourceTitle,
		ProjectID:        ev.ProjectID,
		CreatedAt:        ev.CreatedAt,
		ReliabilityScore: reliability,
		Keywords:         ev.Keywords,
	}
}

// Default scores assigned when ingestion creates evidence without
// explicit assessments.
const (
	DefaultReliabilityScore = 0.5
	DefaultRelevanceScore   = 0.5
)

// TruncateText shortens s to at most maxLen bytes.
// Returns s unchanged when it already fits.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
