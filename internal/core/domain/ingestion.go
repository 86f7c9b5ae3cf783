package domain

// ClaimType labels the kind of statement an extracted claim makes.
type ClaimType string

// Available claim types.
const (
	// ClaimTypeAssertion is a statement of fact.
	ClaimTypeAssertion ClaimType = "assertion"

	// ClaimTypeHypothesis is a conditional or speculative statement.
	ClaimTypeHypothesis ClaimType = "hypothesis"

	// ClaimTypeQuestion is an interrogative statement.
	ClaimTypeQuestion ClaimType = "question"
)

// IsValid returns true if the claim type is recognised.
func (t ClaimType) IsValid() bool {
	return t == ClaimTypeAssertion || t == ClaimTypeHypothesis || t == ClaimTypeQuestion
}

// String returns the string representation.
func (t ClaimType) String() string {
	return string(t)
}

// ExtractedClaim is one candidate claim found in a chunk of text.
type ExtractedClaim struct {
	// Text is the claim statement.
	Text string

	// Type labels the kind of statement.
	Type ClaimType

	// Confidence is the extractor's certainty (0-1).
	Confidence float64

	// SpanStart and SpanEnd locate the claim within the chunk text.
	// Both are -1 when the extractor reports no position.
	SpanStart int
	SpanEnd   int

	// Keywords are index terms the extractor attached, if any.
	Keywords []string
}

// SplitMode selects the boundary chunking splits on.
type SplitMode string

// Available split modes.
const (
	// SplitModeParagraph splits on blank-line runs.
	SplitModeParagraph SplitMode = "paragraph"

	// SplitModeSentence splits on sentence terminators.
	SplitModeSentence SplitMode = "sentence"
)

// IsValid returns true if the split mode is recognised.
func (m SplitMode) IsValid() bool {
	return m == SplitModeParagraph || m == SplitModeSentence
}

// String returns the string representation.
func (m SplitMode) String() string {
	return string(m)
}

// ChunkConfig configures document chunking for ingestion.
type ChunkConfig struct {
	// MaxChunkSize is the target upper bound on chunk length in
	// characters. A single oversized segment is kept whole.
	MaxChunkSize int

	// OverlapSize is how many trailing characters of one chunk seed
	// the next.
	OverlapSize int

	// SplitOn selects the segment boundary.
	SplitOn SplitMode

	// MinChunkSize drops chunks shorter than this.
	MinChunkSize int

	// PreserveHeaders extracts heading/section metadata per chunk.
	PreserveHeaders bool
}

// StandardChunkConfig is the default chunking preset.
func StandardChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:    1000,
		OverlapSize:     100,
		SplitOn:         SplitModeParagraph,
		MinChunkSize:    50,
		PreserveHeaders: true,
	}
}

// FineChunkConfig is a sentence-level preset for short, dense texts.
func FineChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:    500,
		OverlapSize:     50,
		SplitOn:         SplitModeSentence,
		MinChunkSize:    30,
		PreserveHeaders: true,
	}
}

// CoarseChunkConfig is a large-window preset for long-form documents.
func CoarseChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:    2000,
		OverlapSize:     200,
		SplitOn:         SplitModeParagraph,
		MinChunkSize:    100,
		PreserveHeaders: true,
	}
}

// IngestSource describes where ingested text came from.
type IngestSource struct {
	// Type records the entry path.
	Type SourceType

	// URL is the origin address, if any.
	URL string

	// Title is the human-readable origin name.
	Title string
}

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// Chunk configures document segmentation.
	Chunk ChunkConfig

	// ConfidenceThreshold drops extracted claims below it.
	ConfidenceThreshold float64

	// SkipDuplicateCheck disables the duplicate check, admitting claims
	// already present in the vector index. Checking is the default.
	SkipDuplicateCheck bool

	// DuplicateThreshold is the similarity at or above which a claim
	// counts as a duplicate.
	DuplicateThreshold float64

	// EvidenceType assigned to created records.
	EvidenceType EvidenceType
}

// Default ingestion parameters.
const (
	DefaultConfidenceThreshold = 0.6
	DefaultDuplicateThreshold  = 0.92
)

// DefaultIngestOptions returns the standard ingestion configuration.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		Chunk:               StandardChunkConfig(),
		ConfidenceThreshold: DefaultConfidenceThreshold,
		DuplicateThreshold:  DefaultDuplicateThreshold,
		EvidenceType:        EvidenceTypeOther,
	}
}

// MaxIngestFileSize bounds how large a file may be for file ingestion.
const MaxIngestFileSize = 10 * 1024 * 1024

// DefaultIncludePatterns are the glob patterns directory ingestion
// matches when the caller supplies none.
var DefaultIncludePatterns = []string{"**/*.txt", "**/*.md", "**/*.html", "**/*.htm"}

// DirectoryOptions configures recursive directory ingestion.
type DirectoryOptions struct {
	// Ingest configures each file's ingestion run.
	Ingest IngestOptions

	// Include restricts the walk to files matching any of these glob
	// patterns, relative to the root. Empty means DefaultIncludePatterns.
	Include []string

	// Exclude drops files matching any of these glob patterns.
	Exclude []string

	// Progress, when set, is called after each file is processed.
	Progress func(path string, processed, total int)
}

// FileIngestion pairs one walked file with its ingestion outcome.
type FileIngestion struct {
	// Path is the file's path as walked.
	Path string

	// Result is the file's ingestion outcome.
	Result *IngestionResult
}

// DirectoryResult aggregates ingestion outcomes across a directory walk.
type DirectoryResult struct {
	// FilesMatched is the number of files the include/exclude patterns
	// selected.
	FilesMatched int

	// FilesIngested is the number of files ingested without a file-level
	// failure.
	FilesIngested int

	// EvidenceCreated sums created records over all files.
	EvidenceCreated int

	// DuplicatesSkipped sums skipped duplicates over all files.
	DuplicatesSkipped int

	// Files holds the per-file outcomes, in walk order.
	Files []FileIngestion

	// Errors lists per-file failures. A failing file never aborts the walk.
	Errors []string
}

// IngestionResult reports the outcome of one ingestion run.
// Failures during the run are captured in Errors; the run itself
// never aborts on a single chunk or claim.
type IngestionResult struct {
	// ArtifactID identifies this run, recorded on every created record.
	ArtifactID string

	// ChunksProcessed is the number of chunks examined.
	ChunksProcessed int

	// ClaimsExtracted is the number of claims surviving the confidence
	// filter, including fallback claims.
	ClaimsExtracted int

	// EvidenceCreated is the number of records written to the store.
	EvidenceCreated int

	// DuplicatesSkipped is the number of claims dropped as duplicates.
	DuplicatesSkipped int

	// EvidenceIDs lists the created record ids in creation order.
	EvidenceIDs []string

	// Errors lists per-chunk and per-claim failures.
	Errors []string

	// ElapsedMs is the wall-clock duration of the run.
	ElapsedMs int64
}
