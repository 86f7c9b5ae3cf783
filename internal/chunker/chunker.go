// Package chunker splits raw document text into overlapping,
// size-bounded segments for ingestion.
//
// Chunking is pure computation: no I/O, no randomness. Given the same
// text and options it always produces the same chunks, a property the
// downstream duplicate check depends on.
package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// Default chunking parameters, matching domain.StandardChunkConfig.
const (
	DefaultMaxChunkSize = 1000
	DefaultOverlapSize  = 100
	DefaultMinChunkSize = 50
)

var (
	headingPattern  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	sectionPattern  = regexp.MustCompile(`(?i)\b(?:section|chapter|part)\s+\d+`)
	sentencePattern = regexp.MustCompile(`[.!?]\s+[A-Z]`)
	paragraphGap    = regexp.MustCompile(`\n\s*\n`)
)

// Chunker splits text into chunks according to its options.
type Chunker struct {
	maxChunkSize    int
	overlapSize     int
	splitOn         domain.SplitMode
	minChunkSize    int
	preserveHeaders bool
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChunkSize sets the target upper bound on chunk length in characters.
func WithMaxChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.maxChunkSize = size
		}
	}
}

// WithOverlapSize sets how many trailing characters of one chunk seed the next.
func WithOverlapSize(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlapSize = overlap
		}
	}
}

// WithSplitOn selects the segment boundary (paragraph or sentence).
func WithSplitOn(mode domain.SplitMode) Option {
	return func(c *Chunker) {
		if mode.IsValid() {
			c.splitOn = mode
		}
	}
}

// WithMinChunkSize drops chunks shorter than size characters.
func WithMinChunkSize(size int) Option {
	return func(c *Chunker) {
		if size >= 0 {
			c.minChunkSize = size
		}
	}
}

// WithPreserveHeaders toggles heading/section metadata extraction.
func WithPreserveHeaders(preserve bool) Option {
	return func(c *Chunker) {
		c.preserveHeaders = preserve
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChunkSize:    DefaultMaxChunkSize,
		overlapSize:     DefaultOverlapSize,
		splitOn:         domain.SplitModeParagraph,
		minChunkSize:    DefaultMinChunkSize,
		preserveHeaders: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlapSize >= c.maxChunkSize {
		c.overlapSize = c.maxChunkSize / 4
	}

	return c
}

// FromConfig creates a chunker from a domain chunk configuration.
// Zero-valued numeric fields fall back to the defaults.
func FromConfig(cfg domain.ChunkConfig) *Chunker {
	opts := []Option{
		WithSplitOn(cfg.SplitOn),
		WithPreserveHeaders(cfg.PreserveHeaders),
	}
	if cfg.MaxChunkSize > 0 {
		opts = append(opts, WithMaxChunkSize(cfg.MaxChunkSize))
	}
	if cfg.OverlapSize > 0 {
		opts = append(opts, WithOverlapSize(cfg.OverlapSize))
	}
	if cfg.MinChunkSize > 0 {
		opts = append(opts, WithMinChunkSize(cfg.MinChunkSize))
	}
	return New(opts...)
}

// span marks a half-open [start,end) byte range in the normalised text.
type span struct {
	start int
	end   int
}

// Chunk splits text into an ordered sequence of chunks.
// Empty or whitespace-only input produces an empty sequence, not an error.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	normalised := NormaliseLineEndings(text)
	if strings.TrimSpace(normalised) == "" {
		return nil
	}

	segments := c.splitSegments(normalised)
	if len(segments) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(normalised)/c.maxChunkSize+1)

	bufStart := segments[0].start
	bufEnd := segments[0].start
	buffered := 0

	flush := func() {
		s := trimSpan(normalised, span{start: bufStart, end: bufEnd})
		chunkText := normalised[s.start:s.end]
		if len(chunkText) < c.minChunkSize {
			return
		}
		chunk := domain.Chunk{
			Text:       chunkText,
			StartIndex: s.start,
			EndIndex:   s.end,
			ChunkIndex: len(chunks),
		}
		if c.preserveHeaders {
			chunk.Metadata = extractMetadata(chunkText)
		}
		chunks = append(chunks, chunk)
	}

	for _, seg := range segments {
		// Flush when the next segment would overflow a non-empty buffer.
		// An oversized single segment is kept whole rather than force-split.
		if buffered > 0 && seg.end-bufStart > c.maxChunkSize {
			flush()
			bufStart = c.overlapStart(normalised, bufEnd)
			buffered = 0
		}
		bufEnd = seg.end
		buffered++
	}

	if buffered > 0 {
		flush()
	}

	return chunks
}

// overlapStart returns where the next chunk's seed begins, given the
// previous chunk ended at end. The cut never lands mid-word: the first
// space in the first half of the overlap window wins.
func (c *Chunker) overlapStart(text string, end int) int {
	if c.overlapSize <= 0 {
		return end
	}

	start := end - c.overlapSize
	if start < 0 {
		start = 0
	}

	half := start + (end-start)/2
	for i := start; i < half; i++ {
		if text[i] == ' ' {
			return i + 1
		}
	}

	return start
}

// splitSegments cuts the normalised text into boundary-aligned spans.
// Spans are trimmed of surrounding whitespace; empty spans are dropped.
func (c *Chunker) splitSegments(text string) []span {
	var raw []span
	if c.splitOn == domain.SplitModeSentence {
		raw = sentenceSpans(text)
	} else {
		raw = paragraphSpans(text)
	}

	segments := make([]span, 0, len(raw))
	for _, s := range raw {
		trimmed := trimSpan(text, s)
		if trimmed.end > trimmed.start {
			segments = append(segments, trimmed)
		}
	}

	return segments
}

// paragraphSpans splits on blank-line runs.
func paragraphSpans(text string) []span {
	gaps := paragraphGap.FindAllStringIndex(text, -1)

	spans := make([]span, 0, len(gaps)+1)
	start := 0
	for _, gap := range gaps {
		spans = append(spans, span{start: start, end: gap[0]})
		start = gap[1]
	}
	spans = append(spans, span{start: start, end: len(text)})

	return spans
}

// sentenceSpans splits after terminator punctuation followed by an
// upper-case sentence start. The terminator stays with its sentence.
func sentenceSpans(text string) []span {
	bounds := sentencePattern.FindAllStringIndex(text, -1)

	spans := make([]span, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		// b[0] is the terminator, b[1]-1 the next sentence's first letter.
		spans = append(spans, span{start: start, end: b[0] + 1})
		start = b[1] - 1
	}
	spans = append(spans, span{start: start, end: len(text)})

	return spans
}

// trimSpan shrinks a span past surrounding whitespace.
func trimSpan(text string, s span) span {
	start, end := s.start, s.end
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return span{start: start, end: end}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

// extractMetadata pulls heading and section hints from chunk text.
func extractMetadata(chunkText string) domain.ChunkMetadata {
	meta := domain.ChunkMetadata{}

	firstLine := chunkText
	if idx := strings.IndexByte(chunkText, '\n'); idx >= 0 {
		firstLine = chunkText[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	if m := headingPattern.FindStringSubmatch(firstLine); m != nil {
		meta.Heading = strings.TrimSpace(m[2])
	} else if isAllCapsLine(firstLine) {
		meta.Heading = firstLine
	}

	if m := sectionPattern.FindString(chunkText); m != "" {
		meta.Section = m
	}

	return meta
}

// isAllCapsLine reports whether line looks like an ALL CAPS heading.
// Requires at least one letter and a plausible heading length.
func isAllCapsLine(line string) bool {
	if line == "" || len(line) > 100 {
		return false
	}

	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}

	return hasLetter
}

// NormaliseLineEndings converts CRLF and lone CR to LF.
func NormaliseLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// EstimateTokens approximates the token count of text.
// Uses the fixed heuristic of 4 characters per token; not calibrated
// to any particular model.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// SplitIntoSentences is a lighter-weight, heading-agnostic splitter for
// fine-grained work. Returns trimmed, non-empty sentences.
func SplitIntoSentences(text string) []string {
	normalised := NormaliseLineEndings(text)

	spans := sentenceSpans(normalised)
	sentences := make([]string, 0, len(spans))
	for _, s := range spans {
		sentence := strings.TrimSpace(normalised[s.start:s.end])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}
