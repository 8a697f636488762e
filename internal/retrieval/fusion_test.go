package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func TestRRFScore(t *testing.T) {
	assert.InDelta(t, 1.0/60.0, rrfScore(0), 1e-12)
	assert.InDelta(t, 1.0/62.0, rrfScore(2), 1e-12)
}

func TestFuse_DenseOnlyKeepsPartialScore(t *testing.T) {
	dense := []Item{
		{ID: "c1", DocID: "d1", DenseScore: floatPtr(0.9), FusedScore: rrfScore(0)},
	}

	fused := fuse(dense, nil)

	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/60.0, fused[0].FusedScore, 1e-12)
	assert.Nil(t, fused[0].BM25Score)
	require.NotNil(t, fused[0].DenseScore)
	assert.Equal(t, 0.9, *fused[0].DenseScore)
}

func TestFuse_SumsContributionsAcrossLists(t *testing.T) {
	dense := []Item{
		{ID: "c1", DocID: "d1", DenseScore: floatPtr(0.9), FusedScore: rrfScore(0)},
	}
	lexical := []Item{
		{ID: "a", DocID: "d2", BM25Score: floatPtr(9.0), FusedScore: rrfScore(0)},
		{ID: "b", DocID: "d2", BM25Score: floatPtr(7.0), FusedScore: rrfScore(1)},
		{ID: "c1", DocID: "d1", BM25Score: floatPtr(5.0), FusedScore: rrfScore(2)},
	}

	fused := fuse(dense, lexical)

	require.Len(t, fused, 3)

	var c1 *Item
	for i := range fused {
		if fused[i].ID == "c1" {
			c1 = &fused[i]
		}
	}
	require.NotNil(t, c1)

	// Dense rank 0 and lexical rank 2: 1/60 + 1/62
	assert.InDelta(t, 1.0/60.0+1.0/62.0, c1.FusedScore, 1e-12)

	// Merge preserves both partial scores
	require.NotNil(t, c1.DenseScore)
	require.NotNil(t, c1.BM25Score)
	assert.Equal(t, 0.9, *c1.DenseScore)
	assert.Equal(t, 5.0, *c1.BM25Score)

	// c1 has the highest fused score and sorts first
	assert.Equal(t, "c1", fused[0].ID)
}

func TestFuse_FirstWriteWinsForPage(t *testing.T) {
	dense := []Item{
		{ID: "c1", DocID: "d1", Page: intPtr(3), FusedScore: rrfScore(0)},
		{ID: "c2", DocID: "d1", FusedScore: rrfScore(1)},
	}
	lexical := []Item{
		{ID: "c1", DocID: "d1", Page: intPtr(99), FusedScore: rrfScore(0)},
		{ID: "c2", DocID: "d1", Page: intPtr(7), FusedScore: rrfScore(1)},
	}

	fused := fuse(dense, lexical)

	byID := make(map[string]Item, len(fused))
	for _, it := range fused {
		byID[it.ID] = it
	}

	// c1 keeps the page from its first occurrence
	require.NotNil(t, byID["c1"].Page)
	assert.Equal(t, 3, *byID["c1"].Page)

	// c2 had no page densely; the lexical page fills the gap
	require.NotNil(t, byID["c2"].Page)
	assert.Equal(t, 7, *byID["c2"].Page)
}

func TestFuse_NoDuplicateIDs(t *testing.T) {
	dense := []Item{
		{ID: "c1", DocID: "d1", FusedScore: rrfScore(0)},
		{ID: "c2", DocID: "d1", FusedScore: rrfScore(1)},
	}
	lexical := []Item{
		{ID: "c2", DocID: "d1", FusedScore: rrfScore(0)},
		{ID: "c1", DocID: "d1", FusedScore: rrfScore(1)},
	}

	fused := fuse(dense, lexical)

	require.Len(t, fused, 2)
	seen := make(map[string]bool)
	for _, it := range fused {
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
}

func TestFuse_EmptyLists(t *testing.T) {
	assert.Empty(t, fuse(nil, nil))

	lexical := []Item{{ID: "c1", DocID: "d1", FusedScore: rrfScore(0)}}
	fused := fuse(nil, lexical)
	require.Len(t, fused, 1)
	assert.Equal(t, "c1", fused[0].ID)
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 0.9, dot([]float32{1, 0}, []float32{0.9, 0.5}), 1e-6)
	assert.InDelta(t, 0.0, dot([]float32{0, 0}, []float32{1, 1}), 1e-6)
}
