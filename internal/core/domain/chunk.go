package domain

// Chunk is one segment of a document produced by chunking.
// Chunks form an ordered, 0-indexed sequence; neighbouring chunks may
// share overlap text for context. Immutable once produced and consumed
// once by the ingestion pipeline.
type Chunk struct {
	// Text is the chunk content, a contiguous slice of the normalised
	// document text.
	Text string

	// StartIndex is the chunk's first byte offset in the normalised text.
	StartIndex int

	// EndIndex is one past the chunk's last byte offset.
	EndIndex int

	// ChunkIndex is the ordinal position within the document.
	ChunkIndex int

	// Metadata carries structural hints extracted from the chunk.
	Metadata ChunkMetadata
}

// ChunkMetadata holds heading/section hints for a chunk.
// Fields are empty when no structure was detected.
type ChunkMetadata struct {
	// Heading is a leading Markdown or all-caps heading line.
	Heading string

	// Section is a "Section/Chapter/Part N" marker found in the text.
	Section string
}
