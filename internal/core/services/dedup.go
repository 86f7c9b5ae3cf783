package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/core/ports/driving"
	"github.com/custodia-labs/claimlens/internal/logger"
)

// Ensure Dedup implements the interface.
var _ driving.DedupService = (*Dedup)(nil)

// Dedup finds near-duplicate evidence with a greedy single pass over a
// project's corpus in creation order. Oldest evidence wins representative
// status, so the same corpus and threshold always produce the same clusters.
type Dedup struct {
	store driven.EvidenceStore
	index driving.VectorIndexService
}

// NewDedup creates a new deduplication service.
func NewDedup(store driven.EvidenceStore, index driving.VectorIndexService) *Dedup {
	return &Dedup{
		store: store,
		index: index,
	}
}

// FindClusters groups a project's evidence into duplicate clusters.
func (s *Dedup) FindClusters(ctx context.Context, projectID string, threshold float64) ([]domain.DuplicateCluster, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", domain.ErrInvalidInput)
	}
	if s.index == nil || !s.index.Enabled() {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if threshold <= 0 {
		threshold = domain.DefaultDedupThreshold
	}

	// Creation-time ascending order makes the oldest unclustered item the
	// representative of every cluster it seeds.
	evidence, err := s.store.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}

	logger.Section("Duplicate Detection")
	logger.Debug("Scanning %d evidence records in project %s at threshold %.2f",
		len(evidence), projectID, threshold)

	clustered := make(map[string]bool)
	clusters := []domain.DuplicateCluster{}

	for _, ev := range evidence {
		if clustered[ev.ID] {
			continue
		}

		hits, err := s.index.Search(ctx, ev.Text, projectID, driving.IndexSearchOptions{
			TopK:     domain.DedupNeighbourLimit,
			MinScore: threshold,
		})
		if err != nil {
			return nil, fmt.Errorf("neighbour search for %s: %w", ev.ID, err)
		}

		members := make([]domain.ClusterMember, 0, len(hits))
		for _, hit := range hits {
			if hit.ID == ev.ID || clustered[hit.ID] {
				continue
			}
			members = append(members, domain.ClusterMember{
				ID:         hit.ID,
				Text:       hit.Metadata.Text,
				Similarity: hit.Score,
			})
		}
		// No qualifying neighbours: the item stays unclustered rather
		// than becoming a singleton cluster.
		if len(members) == 0 {
			continue
		}

		clustered[ev.ID] = true
		for _, m := range members {
			clustered[m.ID] = true
		}
		clusters = append(clusters, domain.DuplicateCluster{
			ClusterID: fmt.Sprintf("cluster-%d", len(clusters)+1),
			Representative: domain.ClusterRepresentative{
				ID:   ev.ID,
				Text: ev.Text,
			},
			Members: members,
		})
	}

	logger.Info("Found %d duplicate clusters", len(clusters))
	return clusters, nil
}

// GenerateReport runs FindClusters and computes corpus-wide totals.
func (s *Dedup) GenerateReport(ctx context.Context, projectID string, threshold float64) (*domain.DedupReport, error) {
	if threshold <= 0 {
		threshold = domain.DefaultDedupThreshold
	}

	clusters, err := s.FindClusters(ctx, projectID, threshold)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("count evidence: %w", err)
	}

	duplicateCount := 0
	for _, cluster := range clusters {
		duplicateCount += cluster.DuplicateCount()
	}
	savings := 0.0
	if total > 0 {
		savings = float64(duplicateCount) / float64(total) * 100
	}

	return &domain.DedupReport{
		ProjectID:         projectID,
		Threshold:         threshold,
		Clusters:          clusters,
		TotalEvidence:     total,
		DuplicateCount:    duplicateCount,
		SavingsPercentage: savings,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// ArchiveDuplicates archives every cluster member in the report, keeping
// representatives active, and drops the archived vectors from the index so
// linking stops returning them.
func (s *Dedup) ArchiveDuplicates(ctx context.Context, report *domain.DedupReport) (int, error) {
	if report == nil {
		return 0, fmt.Errorf("%w: report is required", domain.ErrInvalidInput)
	}

	archived := 0
	archivedIDs := make([]string, 0, report.DuplicateCount)
	for _, cluster := range report.Clusters {
		for _, member := range cluster.Members {
			if err := s.store.UpdateStatus(ctx, member.ID, domain.EvidenceStatusArchived); err != nil {
				logger.Warn("Archive %s failed: %v", member.ID, err)
				continue
			}
			archived++
			archivedIDs = append(archivedIDs, member.ID)
		}
	}

	if s.index != nil && s.index.Enabled() && len(archivedIDs) > 0 {
		// Best-effort: the index swallows delete failures itself.
		_ = s.index.DeleteEvidence(ctx, report.ProjectID, archivedIDs)
	}

	logger.Info("Archived %d duplicates in project %s", archived, report.ProjectID)
	return archived, nil
}
