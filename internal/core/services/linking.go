package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
	"github.com/custodia-labs/claimlens/internal/logger"
)

// Ensure Linking implements the interface.
var _ driving.EvidenceLinker = (*Linking)(nil)

// scoredCandidate carries a retrieval hit through rerank and filter stages.
type scoredCandidate struct {
	hit         domain.SimilarityResult
	rerankScore float64
}

// Linking orchestrates the premise-to-evidence pipeline: vector retrieval,
// model reranking, threshold filtering, then relationship classification.
// The stages run in a fixed order with no branching back.
//
// A premise whose pipeline fails mid-flight yields an empty result rather
// than an error, so one bad premise can never abort a batch. The failure is
// logged with the premise length, never its text.
type Linking struct {
	index      driving.VectorIndexService
	reranker   *Reranker
	classifier *Classifier
}

// NewLinking creates a new linking service.
// The reranker and classifier parameters are optional (can be nil); without
// them candidates keep their vector order and are labelled as supporting.
func NewLinking(index driving.VectorIndexService, reranker *Reranker, classifier *Classifier) *Linking {
	return &Linking{
		index:      index,
		reranker:   reranker,
		classifier: classifier,
	}
}

// Link finds and classifies evidence for a single premise within a project.
func (s *Linking) Link(ctx context.Context, premise, projectID string, opts domain.LinkOptions) (*domain.LinkingResult, error) {
	premise = strings.TrimSpace(premise)
	result := &domain.LinkingResult{
		Premise:        premise,
		ProjectID:      projectID,
		LinkedEvidence: []domain.LinkedEvidence{},
	}

	// Blank premises cost nothing: no remote calls, stats all zero.
	if premise == "" {
		logger.Debug("Blank premise, skipping link")
		return result, nil
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	if s.index == nil || !s.index.Enabled() {
		return nil, domain.ErrVectorIndexUnavailable
	}

	start := time.Now()
	linked, stats, err := s.runPipeline(ctx, premise, projectID, opts)
	if err != nil {
		logger.Warn("Linking failed for premise (%d chars) in project %s: %v", len(premise), projectID, err)
		result.Stats = domain.LinkStats{ProcessingTimeMs: time.Since(start).Milliseconds()}
		return result, nil
	}

	stats.ProcessingTimeMs = time.Since(start).Milliseconds()
	result.LinkedEvidence = linked
	result.Stats = stats
	logger.Info("Linked %d evidence entries in %dms", len(linked), stats.ProcessingTimeMs)
	return result, nil
}

// LinkBatch links several premises and returns one result per premise, in
// input order. Premises are processed strictly sequentially: parallel
// fan-out here would trip the model providers' rate limits.
func (s *Linking) LinkBatch(ctx context.Context, premises []string, projectID string, opts domain.LinkOptions) ([]domain.LinkingResult, error) {
	logger.Section("Batch Linking")
	logger.Debug("Linking %d premises in project %s", len(premises), projectID)

	results := make([]domain.LinkingResult, 0, len(premises))
	for _, premise := range premises {
		result, err := s.Link(ctx, premise, projectID, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// runPipeline executes stages 2-5. Any error is handed back to Link, which
// converts it into an empty result.
func (s *Linking) runPipeline(ctx context.Context, premise, projectID string, opts domain.LinkOptions) ([]domain.LinkedEvidence, domain.LinkStats, error) {
	var stats domain.LinkStats

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultLinkTopK
	}
	rerankK := opts.RerankK
	if rerankK <= 0 {
		rerankK = domain.DefaultLinkRerankK
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = domain.DefaultLinkMinScore
	}

	// Candidate retrieval. The min-score threshold applies to rerank
	// scores later, not to the raw vector scores here.
	candidates, err := s.index.Search(ctx, premise, projectID, driving.IndexSearchOptions{
		TopK:         topK,
		EvidenceType: opts.EvidenceType,
	})
	if err != nil {
		return nil, stats, fmt.Errorf("candidate retrieval: %w", err)
	}
	stats.CandidatesFound = len(candidates)
	if len(candidates) == 0 {
		logger.Debug("No candidates found")
		return []domain.LinkedEvidence{}, stats, nil
	}
	logger.Debug("Retrieved %d candidates", len(candidates))

	// Reranking. Skipped candidates keep their vector score as the
	// rerank score so the threshold filter sees a score either way.
	survivors, err := s.rerankStage(ctx, premise, candidates, rerankK, opts.SkipReranking)
	if err != nil {
		return nil, stats, err
	}
	stats.AfterReranking = len(survivors)

	// Threshold filter on the rerank score.
	kept := make([]scoredCandidate, 0, len(survivors))
	for _, sc := range survivors {
		if sc.rerankScore >= minScore {
			kept = append(kept, sc)
		}
	}
	stats.AfterFiltering = len(kept)
	logger.Debug("After rerank: %d, after min score %.2f: %d", len(survivors), minScore, len(kept))
	if len(kept) == 0 {
		return []domain.LinkedEvidence{}, stats, nil
	}

	// Classification. Vector and rerank scores are carried separately on
	// each entry; collapsing them would hide why a result ranked where
	// it did.
	linked, err := s.classifyStage(ctx, premise, kept, opts.SkipClassification)
	if err != nil {
		return nil, stats, err
	}
	return linked, stats, nil
}

// rerankStage reorders candidates by model-judged relevance. The stage is
// skipped when the caller opts out, when no model is configured, or when
// the candidate set already fits in rerankK.
func (s *Linking) rerankStage(ctx context.Context, premise string, candidates []domain.SimilarityResult, rerankK int, skip bool) ([]scoredCandidate, error) {
	if skip || !s.reranker.Enabled() || len(candidates) <= rerankK {
		survivors := make([]scoredCandidate, len(candidates))
		for i, c := range candidates {
			survivors[i] = scoredCandidate{hit: c, rerankScore: c.Score}
		}
		return survivors, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Metadata.Text
	}
	reranked, err := s.reranker.Rerank(ctx, premise, texts, rerankK)
	if err != nil {
		return nil, fmt.Errorf("reranking: %w", err)
	}

	survivors := make([]scoredCandidate, 0, len(reranked))
	for _, rr := range reranked {
		if rr.OriginalIndex < 0 || rr.OriginalIndex >= len(candidates) {
			continue
		}
		survivors = append(survivors, scoredCandidate{
			hit:         candidates[rr.OriginalIndex],
			rerankScore: rr.Score,
		})
	}
	return survivors, nil
}

// classifyStage labels each surviving candidate. When classification is
// skipped (by option, or because no model is configured) every entry
// defaults to supports with the rerank score as confidence. A genuine
// classifier failure propagates: classification was requested and did
// not happen, which is not the same as being skipped.
func (s *Linking) classifyStage(ctx context.Context, premise string, kept []scoredCandidate, skip bool) ([]domain.LinkedEvidence, error) {
	skip = skip || !s.classifier.Enabled()

	linked := make([]domain.LinkedEvidence, 0, len(kept))
	for _, sc := range kept {
		entry := domain.LinkedEvidence{
			EvidenceID:   sc.hit.ID,
			EvidenceText: sc.hit.Metadata.Text,
			VectorScore:  sc.hit.Score,
			RerankScore:  sc.rerankScore,
			SourceURL:    sc.hit.Metadata.SourceURL,
			SourceTitle:  sc.hit.Metadata.SourceTitle,
		}

		if skip {
			entry.Relationship = domain.RelationshipSupports
			entry.Confidence = sc.rerankScore
		} else {
			classification, err := s.classifier.Classify(ctx, premise, sc.hit.Metadata.Text)
			if err != nil {
				return nil, fmt.Errorf("classify evidence %s: %w", sc.hit.ID, err)
			}
			entry.Relationship = classification.Relationship
			entry.Confidence = classification.Confidence
			entry.Reasoning = classification.Reasoning
		}
		linked = append(linked, entry)
	}
	return linked, nil
}
