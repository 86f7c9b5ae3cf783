package services

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/custodia-labs/claimlens/internal/chunker"
	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
	"github.com/custodia-labs/claimlens/internal/logger"
	"github.com/custodia-labs/claimlens/internal/normalisers/html"
	"github.com/custodia-labs/claimlens/internal/normalisers/markdown"
)

// Ensure Ingestion implements the interface.
var _ driving.IngestionService = (*Ingestion)(nil)

// fallbackClaimConfidence marks claims created when the extractor is down.
const fallbackClaimConfidence = 0.5

// Ingestion turns raw documents into indexed evidence: chunk, extract
// claims, drop duplicates, persist, index. One chunk's failure is recorded
// in the result and the run continues; a partially successful ingestion
// still yields usable evidence.
type Ingestion struct {
	extractor driven.ClaimExtractor
	index     driving.VectorIndexService
	store     driven.EvidenceStore
	fetcher   driven.ContentFetcher
}

// NewIngestion creates a new ingestion service.
// The extractor and fetcher parameters are optional (can be nil): without
// an extractor each chunk becomes one low-confidence claim, and without a
// fetcher URL ingestion is unavailable.
func NewIngestion(
	extractor driven.ClaimExtractor,
	index driving.VectorIndexService,
	store driven.EvidenceStore,
	fetcher driven.ContentFetcher,
) *Ingestion {
	return &Ingestion{
		extractor: extractor,
		index:     index,
		store:     store,
		fetcher:   fetcher,
	}
}

// Ingest processes raw text under the given source description.
func (s *Ingestion) Ingest(ctx context.Context, text string, source domain.IngestSource, projectID, userID string, opts domain.IngestOptions) (*domain.IngestionResult, error) {
	start := time.Now()
	result := &domain.IngestionResult{
		ArtifactID:  uuid.New().String(),
		EvidenceIDs: []string{},
		Errors:      []string{},
	}

	if strings.TrimSpace(text) == "" {
		result.Errors = append(result.Errors, "document text is empty")
		return result, nil
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}

	cfg := opts.Chunk
	if cfg == (domain.ChunkConfig{}) {
		cfg = domain.StandardChunkConfig()
	}
	confidenceThreshold := opts.ConfidenceThreshold
	if confidenceThreshold <= 0 {
		confidenceThreshold = domain.DefaultConfidenceThreshold
	}
	duplicateThreshold := opts.DuplicateThreshold
	if duplicateThreshold <= 0 {
		duplicateThreshold = domain.DefaultDuplicateThreshold
	}
	evidenceType := opts.EvidenceType
	if !evidenceType.IsValid() {
		evidenceType = domain.EvidenceTypeOther
	}
	sourceType := source.Type
	if !sourceType.IsValid() {
		sourceType = domain.SourceTypeManual
	}

	logger.Section("Ingestion")
	logger.Debug("Artifact %s: %d chars, project %s", result.ArtifactID, len(text), projectID)

	chunks := chunker.FromConfig(cfg).Chunk(text)
	result.ChunksProcessed = len(chunks)
	logger.Debug("Chunked into %d chunks", len(chunks))

	for _, chunk := range chunks {
		claims := s.extractClaims(ctx, chunk.Text, confidenceThreshold)
		result.ClaimsExtracted += len(claims)

		for _, claim := range claims {
			if !opts.SkipDuplicateCheck && s.index != nil && s.index.Enabled() {
				_, isDup, err := s.index.CheckDuplicate(ctx, claim.Text, projectID, duplicateThreshold)
				if err != nil {
					logger.Warn("Duplicate check failed on chunk %d: %v (keeping claim)", chunk.ChunkIndex, err)
				} else if isDup {
					result.DuplicatesSkipped++
					continue
				}
			}

			now := time.Now().UTC()
			ev := domain.Evidence{
				ID:               uuid.New().String(),
				ProjectID:        projectID,
				Text:             claim.Text,
				Type:             evidenceType,
				SourceType:       sourceType,
				SourceURL:        source.URL,
				SourceTitle:      source.Title,
				Keywords:         chunker.ExtractKeywords(claim.Text, chunker.DefaultKeywordLimit),
				ReliabilityScore: domain.DefaultReliabilityScore,
				RelevanceScore:   domain.DefaultRelevanceScore,
				Status:           domain.EvidenceStatusActive,
				ArtifactID:       result.ArtifactID,
				ChunkIndex:       chunk.ChunkIndex,
				CreatedBy:        userID,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := s.store.Create(ctx, &ev); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("chunk %d: create evidence: %v", chunk.ChunkIndex, err))
				continue
			}
			result.EvidenceCreated++
			result.EvidenceIDs = append(result.EvidenceIDs, ev.ID)

			// Index failures do not undo the created record: the stores
			// are eventually consistent and the canonical store wins.
			if s.index != nil && s.index.Enabled() {
				if err := s.index.UpsertEvidence(ctx, ev); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("chunk %d: index evidence %s: %v", chunk.ChunkIndex, ev.ID, err))
				}
			}
		}
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	logger.Info("Ingested artifact %s: %d chunks, %d claims, %d created, %d duplicates skipped, %d errors (%dms)",
		result.ArtifactID, result.ChunksProcessed, result.ClaimsExtracted,
		result.EvidenceCreated, result.DuplicatesSkipped, len(result.Errors), result.ElapsedMs)
	return result, nil
}

// IngestURL fetches a remote document and ingests its readable text.
func (s *Ingestion) IngestURL(ctx context.Context, rawURL, projectID, userID string, opts domain.IngestOptions) (*domain.IngestionResult, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("url ingestion: %w", domain.ErrNotImplemented)
	}
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}

	logger.Debug("Fetching %s", rawURL)
	fetched, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	title := fetched.Title
	if title == "" {
		title = titleFromURL(rawURL)
	}
	source := domain.IngestSource{
		Type:  domain.SourceTypeURL,
		URL:   rawURL,
		Title: title,
	}
	return s.Ingest(ctx, fetched.Body, source, projectID, userID, opts)
}

// IngestFile reads a local file and ingests its contents. HTML files have
// their tags stripped and Markdown files their syntax, with the document
// title taken from the markup where present; anything else is treated as
// plain text.
func (s *Ingestion) IngestFile(ctx context.Context, filePath, projectID, userID string, opts domain.IngestOptions) (*domain.IngestionResult, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("%w: file path is required", domain.ErrInvalidInput)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, filePath)
	}
	if info.Size() > domain.MaxIngestFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", domain.ErrInvalidInput, filePath, info.Size(), domain.MaxIngestFileSize)
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if isBinary(raw) {
		return nil, fmt.Errorf("%w: %s is not a text file", domain.ErrInvalidInput, filePath)
	}

	text := string(raw)
	title := titleFromPath(filePath)
	switch {
	case html.IsHTML(text):
		if t := html.ExtractTitle(text); t != "" {
			title = t
		}
		text = html.StripTags(text)
	case markdown.IsMarkdown(filePath):
		if t := markdown.ExtractTitle(text); t != "" {
			title = t
		}
		text = markdown.Strip(text)
	}

	source := domain.IngestSource{
		Type:  domain.SourceTypeFile,
		URL:   filePath,
		Title: title,
	}
	return s.Ingest(ctx, text, source, projectID, userID, opts)
}

// IngestDirectory walks a directory tree and ingests every file matching
// the include/exclude patterns. Patterns are globs matched against paths
// relative to the root. A failing file is recorded in the result's Errors
// and the walk continues; only cancellation aborts the run.
func (s *Ingestion) IngestDirectory(ctx context.Context, root, projectID, userID string, opts domain.DirectoryOptions) (*domain.DirectoryResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: directory path is required", domain.ErrInvalidInput)
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	include := opts.Include
	if len(include) == 0 {
		include = domain.DefaultIncludePatterns
	}

	result := &domain.DirectoryResult{
		Files:  []domain.FileIngestion{},
		Errors: []string{},
	}

	matched, walkErrors, err := matchFiles(root, include, opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	result.Errors = append(result.Errors, walkErrors...)
	result.FilesMatched = len(matched)

	logger.Section("Directory ingestion")
	logger.Info("Matched %d files under %s", len(matched), root)

	for i, filePath := range matched {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fileResult, err := s.IngestFile(ctx, filePath, projectID, userID, opts.Ingest)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", filePath, err))
		} else {
			result.FilesIngested++
			result.EvidenceCreated += fileResult.EvidenceCreated
			result.DuplicatesSkipped += fileResult.DuplicatesSkipped
			result.Files = append(result.Files, domain.FileIngestion{Path: filePath, Result: fileResult})
		}

		if opts.Progress != nil {
			opts.Progress(filePath, i+1, len(matched))
		}
	}

	logger.Info("Ingested %d/%d files under %s: %d evidence created, %d duplicates skipped, %d errors",
		result.FilesIngested, result.FilesMatched, root,
		result.EvidenceCreated, result.DuplicatesSkipped, len(result.Errors))
	return result, nil
}

// RemoveArtifact deletes all evidence created from a previously ingested
// artifact, from both the evidence store and the vector index.
func (s *Ingestion) RemoveArtifact(ctx context.Context, artifactID, projectID string) (int, error) {
	if artifactID == "" {
		return 0, fmt.Errorf("%w: artifact id is required", domain.ErrInvalidInput)
	}

	evs, err := s.store.ListByArtifact(ctx, artifactID)
	if err != nil {
		return 0, fmt.Errorf("list artifact %s: %w", artifactID, err)
	}

	removed := 0
	ids := make([]string, 0, len(evs))
	for _, ev := range evs {
		if err := s.store.Delete(ctx, ev.ID); err != nil {
			logger.Warn("Delete evidence %s failed: %v", ev.ID, err)
			continue
		}
		removed++
		ids = append(ids, ev.ID)
	}

	if s.index != nil && s.index.Enabled() && len(ids) > 0 {
		// Best-effort: the index swallows delete failures itself.
		_ = s.index.DeleteEvidence(ctx, projectID, ids)
	}

	logger.Info("Removed %d/%d evidence records for artifact %s", removed, len(evs), artifactID)
	return removed, nil
}

// extractClaims pulls claims from one chunk, falling back to the whole
// chunk as a single low-confidence claim when the extractor is missing or
// down. Ingestion makes forward progress either way.
func (s *Ingestion) extractClaims(ctx context.Context, chunkText string, threshold float64) []domain.ExtractedClaim {
	if s.extractor != nil {
		claims, err := s.extractor.Extract(ctx, chunkText, threshold)
		if err == nil {
			return claims
		}
		logger.Warn("Claim extraction failed: %v (treating chunk as one claim)", err)
	}

	return []domain.ExtractedClaim{{
		Text:       domain.TruncateText(strings.TrimSpace(chunkText), domain.MaxStoredTextLen),
		Type:       domain.ClaimTypeAssertion,
		Confidence: fallbackClaimConfidence,
		SpanStart:  -1,
		SpanEnd:    -1,
	}}
}

// matchFiles walks root and returns the files selected by the include and
// exclude patterns, in walk order. Excluded directories are pruned whole.
// Unreadable entries land in walkErrors rather than aborting the walk.
func matchFiles(root string, include, exclude []string) (files, walkErrors []string, err error) {
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			walkErrors = append(walkErrors, fmt.Sprintf("%s: %v", p, walkErr))
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matchesAny(exclude, rel+"/") {
				return fs.SkipDir
			}
			return nil
		}

		if matchesAny(include, rel) && !matchesAny(exclude, rel) {
			files = append(files, p)
		}
		return nil
	})
	return files, walkErrors, err
}

// matchesAny reports whether the slash-separated path matches any of the
// glob patterns. Malformed patterns never match.
func matchesAny(patterns []string, slashPath string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, slashPath); err == nil && ok {
			return true
		}
	}
	return false
}

// isBinary reports whether content looks like binary data. A null byte in
// the leading kilobyte is the tell.
func isBinary(content []byte) bool {
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// titleFromPath derives a readable title from a file name, mirroring
// titleFromURL for local paths.
func titleFromPath(filePath string) string {
	base := filepath.Base(filePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if t := strings.TrimSpace(base); t != "" {
		return t
	}
	return filepath.Base(filePath)
}

// titleFromURL derives a readable title from the URL path: the last path
// segment with its extension dropped and separators turned into spaces.
// Falls back to the host, then the raw string.
func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		if u.Host != "" {
			return u.Host
		}
		return rawURL
	}

	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}
