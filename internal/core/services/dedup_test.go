package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/claimlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/claimlens/internal/core/domain"
)

// --- Test helpers ---

func dedupEvidence(id, text string, created time.Time) domain.Evidence {
	return domain.Evidence{
		ID:         id,
		ProjectID:  "proj-1",
		Text:       text,
		Type:       domain.EvidenceTypeArticle,
		SourceType: domain.SourceTypeManual,
		Status:     domain.EvidenceStatusActive,
		ChunkIndex: -1,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func hit(id, text string, score float64) domain.SimilarityResult {
	return domain.SimilarityResult{
		ID:       id,
		Score:    score,
		Metadata: domain.VectorMetadata{Text: text},
	}
}

// dedupCorpus seeds six records: a/b/d are near-duplicates, e/f are a
// pair, c is unique. Creation order is a, b, c, d, e, f.
func dedupCorpus(t *testing.T) (*memory.EvidenceStore, *mockIndexService) {
	t.Helper()

	texts := map[string]string{
		"ev-a": "Solar capacity doubled over five years.",
		"ev-b": "Solar generating capacity has doubled in five years.",
		"ev-c": "Wind output fell slightly last winter.",
		"ev-d": "Capacity of solar installations doubled within five years.",
		"ev-e": "Coal consumption dropped sharply.",
		"ev-f": "Consumption of coal has dropped sharply.",
	}

	store := memory.NewEvidenceStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"ev-a", "ev-b", "ev-c", "ev-d", "ev-e", "ev-f"} {
		ev := dedupEvidence(id, texts[id], base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Create(context.Background(), &ev))
	}

	neighbours := map[string][]domain.SimilarityResult{
		texts["ev-a"]: {hit("ev-a", texts["ev-a"], 1.0), hit("ev-b", texts["ev-b"], 0.96), hit("ev-d", texts["ev-d"], 0.93)},
		texts["ev-b"]: {hit("ev-b", texts["ev-b"], 1.0), hit("ev-a", texts["ev-a"], 0.96), hit("ev-d", texts["ev-d"], 0.94)},
		texts["ev-c"]: {hit("ev-c", texts["ev-c"], 1.0)},
		texts["ev-d"]: {hit("ev-d", texts["ev-d"], 1.0), hit("ev-a", texts["ev-a"], 0.93), hit("ev-b", texts["ev-b"], 0.94)},
		texts["ev-e"]: {hit("ev-e", texts["ev-e"], 1.0), hit("ev-f", texts["ev-f"], 0.94)},
		texts["ev-f"]: {hit("ev-f", texts["ev-f"], 1.0), hit("ev-e", texts["ev-e"], 0.94)},
	}
	index := &mockIndexService{
		enabled:  true,
		searchFn: func(query string) []domain.SimilarityResult { return neighbours[query] },
	}
	return store, index
}

// --- Tests ---

func TestDedup_FindClusters_MissingProject(t *testing.T) {
	dedup := NewDedup(memory.NewEvidenceStore(), &mockIndexService{enabled: true})

	_, err := dedup.FindClusters(context.Background(), "", 0.9)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDedup_FindClusters_IndexUnavailable(t *testing.T) {
	_, err := NewDedup(memory.NewEvidenceStore(), nil).FindClusters(context.Background(), "proj-1", 0.9)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	disabled := &mockIndexService{enabled: false}
	_, err = NewDedup(memory.NewEvidenceStore(), disabled).FindClusters(context.Background(), "proj-1", 0.9)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestDedup_FindClusters(t *testing.T) {
	store, index := dedupCorpus(t)
	dedup := NewDedup(store, index)

	clusters, err := dedup.FindClusters(context.Background(), "proj-1", 0.9)

	require.NoError(t, err)
	require.Len(t, clusters, 2)

	first := clusters[0]
	assert.Equal(t, "cluster-1", first.ClusterID)
	assert.Equal(t, "ev-a", first.Representative.ID)
	require.Len(t, first.Members, 2)
	assert.Equal(t, "ev-b", first.Members[0].ID)
	assert.InDelta(t, 0.96, first.Members[0].Similarity, 1e-9)
	assert.Equal(t, "ev-d", first.Members[1].ID)

	second := clusters[1]
	assert.Equal(t, "cluster-2", second.ClusterID)
	assert.Equal(t, "ev-e", second.Representative.ID)
	require.Len(t, second.Members, 1)
	assert.Equal(t, "ev-f", second.Members[0].ID)

	// Clustered members are never used as seed queries: only a, c, e search
	assert.Equal(t, 3, index.searchCalls)
}

func TestDedup_FindClusters_ClustersAreDisjoint(t *testing.T) {
	store, index := dedupCorpus(t)
	dedup := NewDedup(store, index)

	clusters, err := dedup.FindClusters(context.Background(), "proj-1", 0.9)

	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, cluster := range clusters {
		assert.False(t, seen[cluster.Representative.ID])
		seen[cluster.Representative.ID] = true
		for _, m := range cluster.Members {
			assert.False(t, seen[m.ID])
			seen[m.ID] = true
		}
	}
}

func TestDedup_FindClusters_NoDuplicates(t *testing.T) {
	store := memory.NewEvidenceStore()
	ev := dedupEvidence("ev-1", "A lone statement about tidal power.", time.Now().UTC())
	require.NoError(t, store.Create(context.Background(), &ev))

	// The index returns only the item itself
	index := &mockIndexService{
		enabled:    true,
		searchHits: []domain.SimilarityResult{hit("ev-1", ev.Text, 1.0)},
	}
	dedup := NewDedup(store, index)

	clusters, err := dedup.FindClusters(context.Background(), "proj-1", 0.9)

	require.NoError(t, err)
	assert.NotNil(t, clusters)
	assert.Empty(t, clusters)
}

func TestDedup_FindClusters_SearchParameters(t *testing.T) {
	store := memory.NewEvidenceStore()
	ev := dedupEvidence("ev-1", "A statement about tidal power.", time.Now().UTC())
	require.NoError(t, store.Create(context.Background(), &ev))
	index := &mockIndexService{enabled: true}
	dedup := NewDedup(store, index)

	_, err := dedup.FindClusters(context.Background(), "proj-1", 0.95)

	require.NoError(t, err)
	assert.Equal(t, domain.DedupNeighbourLimit, index.lastOpts.TopK)
	assert.InDelta(t, 0.95, index.lastOpts.MinScore, 1e-9)
}

func TestDedup_FindClusters_DefaultThreshold(t *testing.T) {
	store := memory.NewEvidenceStore()
	ev := dedupEvidence("ev-1", "A statement about tidal power.", time.Now().UTC())
	require.NoError(t, store.Create(context.Background(), &ev))
	index := &mockIndexService{enabled: true}
	dedup := NewDedup(store, index)

	_, err := dedup.FindClusters(context.Background(), "proj-1", 0)

	require.NoError(t, err)
	assert.InDelta(t, domain.DefaultDedupThreshold, index.lastOpts.MinScore, 1e-9)
}

func TestDedup_FindClusters_SearchError(t *testing.T) {
	store := memory.NewEvidenceStore()
	ev := dedupEvidence("ev-1", "A statement about tidal power.", time.Now().UTC())
	require.NoError(t, store.Create(context.Background(), &ev))
	index := &mockIndexService{enabled: true, searchErr: errors.New("index offline")}
	dedup := NewDedup(store, index)

	_, err := dedup.FindClusters(context.Background(), "proj-1", 0.9)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "neighbour search")
}

func TestDedup_FindClusters_ListError(t *testing.T) {
	store := &failingEvidenceStore{
		EvidenceStore: memory.NewEvidenceStore(),
		projectErr:    errors.New("storage offline"),
	}
	dedup := NewDedup(store, &mockIndexService{enabled: true})

	_, err := dedup.FindClusters(context.Background(), "proj-1", 0.9)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list evidence")
}

func TestDedup_GenerateReport(t *testing.T) {
	store, index := dedupCorpus(t)
	dedup := NewDedup(store, index)

	report, err := dedup.GenerateReport(context.Background(), "proj-1", 0.9)

	require.NoError(t, err)
	assert.Equal(t, "proj-1", report.ProjectID)
	assert.InDelta(t, 0.9, report.Threshold, 1e-9)
	assert.Len(t, report.Clusters, 2)
	assert.Equal(t, 6, report.TotalEvidence)
	assert.Equal(t, 3, report.DuplicateCount)
	assert.InDelta(t, 50.0, report.SavingsPercentage, 1e-9)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestDedup_GenerateReport_EmptyCorpus(t *testing.T) {
	dedup := NewDedup(memory.NewEvidenceStore(), &mockIndexService{enabled: true})

	report, err := dedup.GenerateReport(context.Background(), "proj-1", 0)

	require.NoError(t, err)
	assert.Empty(t, report.Clusters)
	assert.Zero(t, report.TotalEvidence)
	assert.Zero(t, report.DuplicateCount)
	assert.Zero(t, report.SavingsPercentage)
	assert.InDelta(t, domain.DefaultDedupThreshold, report.Threshold, 1e-9)
}

func TestDedup_GenerateReport_CountError(t *testing.T) {
	store := &failingEvidenceStore{
		EvidenceStore: memory.NewEvidenceStore(),
		countErr:      errors.New("storage offline"),
	}
	dedup := NewDedup(store, &mockIndexService{enabled: true})

	_, err := dedup.GenerateReport(context.Background(), "proj-1", 0.9)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "count evidence")
}

func TestDedup_ArchiveDuplicates(t *testing.T) {
	store, index := dedupCorpus(t)
	dedup := NewDedup(store, index)

	report, err := dedup.GenerateReport(context.Background(), "proj-1", 0.9)
	require.NoError(t, err)

	archived, err := dedup.ArchiveDuplicates(context.Background(), report)

	require.NoError(t, err)
	assert.Equal(t, 3, archived)

	// Representatives stay active, members are archived
	for id, want := range map[string]domain.EvidenceStatus{
		"ev-a": domain.EvidenceStatusActive,
		"ev-b": domain.EvidenceStatusArchived,
		"ev-c": domain.EvidenceStatusActive,
		"ev-d": domain.EvidenceStatusArchived,
		"ev-e": domain.EvidenceStatusActive,
		"ev-f": domain.EvidenceStatusArchived,
	} {
		ev, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, ev.Status, "status of %s", id)
	}

	// Archived vectors leave the index
	assert.ElementsMatch(t, []string{"ev-b", "ev-d", "ev-f"}, index.deletedIDs)

	count, err := store.CountByProject(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDedup_ArchiveDuplicates_NilReport(t *testing.T) {
	dedup := NewDedup(memory.NewEvidenceStore(), &mockIndexService{enabled: true})

	_, err := dedup.ArchiveDuplicates(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDedup_ArchiveDuplicates_UnknownMemberSkipped(t *testing.T) {
	store := memory.NewEvidenceStore()
	ev := dedupEvidence("ev-real", "A statement about tidal power.", time.Now().UTC())
	require.NoError(t, store.Create(context.Background(), &ev))
	index := &mockIndexService{enabled: true}
	dedup := NewDedup(store, index)

	report := &domain.DedupReport{
		ProjectID: "proj-1",
		Clusters: []domain.DuplicateCluster{{
			ClusterID:      "cluster-1",
			Representative: domain.ClusterRepresentative{ID: "ev-rep"},
			Members: []domain.ClusterMember{
				{ID: "ev-missing"},
				{ID: "ev-real"},
			},
		}},
	}

	archived, err := dedup.ArchiveDuplicates(context.Background(), report)

	require.NoError(t, err)
	assert.Equal(t, 1, archived)
	assert.Equal(t, []string{"ev-real"}, index.deletedIDs)
}

func TestDedup_ArchiveDuplicates_AllUpdatesFail(t *testing.T) {
	store := &failingEvidenceStore{
		EvidenceStore: memory.NewEvidenceStore(),
		statusErr:     errors.New("storage offline"),
	}
	index := &mockIndexService{enabled: true}
	dedup := NewDedup(store, index)

	report := &domain.DedupReport{
		ProjectID: "proj-1",
		Clusters: []domain.DuplicateCluster{{
			ClusterID:      "cluster-1",
			Representative: domain.ClusterRepresentative{ID: "ev-rep"},
			Members:        []domain.ClusterMember{{ID: "ev-1"}, {ID: "ev-2"}},
		}},
	}

	archived, err := dedup.ArchiveDuplicates(context.Background(), report)

	require.NoError(t, err)
	assert.Zero(t, archived)
	assert.Empty(t, index.deletedIDs)
}
