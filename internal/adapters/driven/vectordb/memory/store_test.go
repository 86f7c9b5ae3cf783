package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/claimlens/internal/core/domain"
	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
)

func testRecord(id, projectID string, values ...float32) driven.VectorRecord {
	return driven.VectorRecord{
		ID:     id,
		Values: values,
		Metadata: domain.VectorMetadata{
			Text:         "text for " + id,
			EvidenceType: domain.EvidenceTypeArticle,
			SourceType:   domain.SourceTypeManual,
			ProjectID:    projectID,
		},
	}
}

func TestVectorStore_UpsertAndQuery_Ordering(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{
		testRecord("ev-b", "proj-1", 0, 1, 0),
		testRecord("ev-a", "proj-1", 1, 0, 0),
		testRecord("ev-c", "proj-1", 0.9, 0.2, 0),
	}))

	results, err := store.Query(ctx, "proj-1", []float32{1, 0, 0}, driven.QueryOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "ev-a", results[0].ID)
	assert.Equal(t, "ev-c", results[1].ID)
	assert.Equal(t, "ev-b", results[2].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "text for ev-a", results[0].Metadata.Text)
}

func TestVectorStore_Query_TopK(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{
		testRecord("ev-a", "proj-1", 1, 0, 0),
		testRecord("ev-b", "proj-1", 0, 1, 0),
		testRecord("ev-c", "proj-1", 0.9, 0.2, 0),
	}))

	results, err := store.Query(ctx, "proj-1", []float32{1, 0, 0}, driven.QueryOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ev-a", results[0].ID)
	assert.Equal(t, "ev-c", results[1].ID)
}

func TestVectorStore_Query_Filter(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	study := testRecord("ev-study", "proj-1", 1, 0, 0)
	study.Metadata.EvidenceType = domain.EvidenceTypeStudy
	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{
		study,
		testRecord("ev-article", "proj-1", 0.9, 0.1, 0),
	}))

	results, err := store.Query(ctx, "proj-1", []float32{1, 0, 0}, driven.QueryOptions{
		TopK:   10,
		Filter: &driven.MetadataFilter{EvidenceType: domain.EvidenceTypeStudy},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ev-study", results[0].ID)
}

func TestVectorStore_Query_EmptyNamespace(t *testing.T) {
	store := NewVectorStore()

	results, err := store.Query(context.Background(), "proj-1", []float32{1, 0, 0}, driven.QueryOptions{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStore_Query_NamespaceIsolation(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{testRecord("ev-1", "proj-1", 1, 0, 0)}))
	require.NoError(t, store.Upsert(ctx, "proj-2", []driven.VectorRecord{testRecord("ev-2", "proj-2", 1, 0, 0)}))

	results, err := store.Query(ctx, "proj-1", []float32{1, 0, 0}, driven.QueryOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ev-1", results[0].ID)
}

func TestVectorStore_Upsert_Overwrite(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{testRecord("ev-1", "proj-1", 1, 0, 0)}))

	updated := testRecord("ev-1", "proj-1", 0, 1, 0)
	updated.Metadata.Text = "updated text"
	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{updated}))

	results, err := store.Query(ctx, "proj-1", []float32{0, 1, 0}, driven.QueryOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "updated text", results[0].Metadata.Text)
}

func TestVectorStore_Upsert_DimensionMismatch(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{testRecord("ev-1", "proj-1", 1, 0, 0)}))

	err := store.Upsert(ctx, "proj-1", []driven.VectorRecord{testRecord("ev-2", "proj-1", 1, 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestVectorStore_Upsert_CopiesValues(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	values := []float32{1, 0, 0}
	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{{
		ID:       "ev-1",
		Values:   values,
		Metadata: domain.VectorMetadata{ProjectID: "proj-1"},
	}}))

	// Mutating the caller's slice must not reach the stored vector.
	values[0] = 0
	values[1] = 1

	results, err := store.Query(ctx, "proj-1", []float32{1, 0, 0}, driven.QueryOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestVectorStore_DeleteByIDs(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{
		testRecord("ev-1", "proj-1", 1, 0, 0),
		testRecord("ev-2", "proj-1", 0, 1, 0),
	}))

	require.NoError(t, store.DeleteByIDs(ctx, "proj-1", []string{"ev-1", "ev-missing"}))

	results, err := store.Query(ctx, "proj-1", []float32{1, 0, 0}, driven.QueryOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ev-2", results[0].ID)
}

func TestVectorStore_DeleteByFilter_EmptyDropsNamespace(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{testRecord("ev-1", "proj-1", 1, 0, 0)}))
	require.NoError(t, store.Upsert(ctx, "proj-2", []driven.VectorRecord{testRecord("ev-2", "proj-2", 1, 0, 0)}))

	require.NoError(t, store.DeleteByFilter(ctx, "proj-1", driven.MetadataFilter{}))

	stats, err := store.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)
	assert.NotContains(t, stats.Namespaces, "proj-1")
}

func TestVectorStore_DeleteByFilter_Matching(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	fromURL := testRecord("ev-url", "proj-1", 1, 0, 0)
	fromURL.Metadata.SourceType = domain.SourceTypeURL
	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{
		fromURL,
		testRecord("ev-manual", "proj-1", 0, 1, 0),
	}))

	require.NoError(t, store.DeleteByFilter(ctx, "proj-1", driven.MetadataFilter{SourceType: domain.SourceTypeURL}))

	results, err := store.Query(ctx, "proj-1", []float32{1, 0, 0}, driven.QueryOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ev-manual", results[0].ID)
}

func TestVectorStore_DescribeStats(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "proj-1", []driven.VectorRecord{
		testRecord("ev-1", "proj-1", 1, 0, 0),
		testRecord("ev-2", "proj-1", 0, 1, 0),
	}))
	require.NoError(t, store.Upsert(ctx, "proj-2", []driven.VectorRecord{testRecord("ev-3", "proj-2", 0, 0, 1)}))

	stats, err := store.DescribeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalVectors)
	assert.Equal(t, 3, stats.Dimension)
	assert.Equal(t, 2, stats.Namespaces["proj-1"])
	assert.Equal(t, 1, stats.Namespaces["proj-2"])
}
