package retrieval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsForDocs(docIDs ...string) []Item {
	items := make([]Item, len(docIDs))
	for i, d := range docIDs {
		items[i] = Item{
			ID:         fmt.Sprintf("c%d", i),
			DocID:      d,
			FusedScore: rrfScore(i),
		}
	}
	return items
}

func TestDiversify_PrefersDistinctDocuments(t *testing.T) {
	// d1 dominates the fused order but d2/d3 still get in
	fused := itemsForDocs("d1", "d1", "d1", "d2", "d3")

	out := diversify(fused, 4)

	require.Len(t, out, 4)
	// First half (2 slots) admits repeats; afterwards only new documents,
	// then the second pass fills the remainder in fused order.
	assert.Equal(t, "d1", out[0].DocID)
	assert.Equal(t, "d1", out[1].DocID)
	assert.Equal(t, "d2", out[2].DocID)
	assert.Equal(t, "d3", out[3].DocID)
}

func TestDiversify_SingleDocumentFillsAllSlots(t *testing.T) {
	fused := itemsForDocs("d1", "d1", "d1", "d1", "d1", "d1", "d1", "d1", "d1", "d1")

	out := diversify(fused, 4)

	// Diversification cannot invent documents: with only one document all
	// four slots come from it via the second pass.
	require.Len(t, out, 4)
	for _, it := range out {
		assert.Equal(t, "d1", it.DocID)
	}
}

func TestDiversify_SecondPassKeepsFusedOrder(t *testing.T) {
	fused := itemsForDocs("d1", "d1", "d1", "d1")

	out := diversify(fused, 3)

	require.Len(t, out, 3)
	assert.Equal(t, "c0", out[0].ID)
	assert.Equal(t, "c1", out[1].ID)
	assert.Equal(t, "c2", out[2].ID)
}

func TestDiversify_PoolSmallerThanK(t *testing.T) {
	fused := itemsForDocs("d1", "d2")

	out := diversify(fused, 6)

	assert.Len(t, out, 2)
}

func TestDiversify_KOne(t *testing.T) {
	fused := itemsForDocs("d1", "d2")

	out := diversify(fused, 1)

	require.Len(t, out, 1)
	assert.Equal(t, "d1", out[0].DocID)
}

func TestCapPerDoc_DefaultOnePerDocument(t *testing.T) {
	diversified := itemsForDocs("d1", "d1", "d2", "d2", "d3")

	out := capPerDoc(diversified, 1, 5)

	// Only 3 distinct documents exist, so the capped result has 3 items
	require.Len(t, out, 3)
	assert.Equal(t, "d1", out[0].DocID)
	assert.Equal(t, "d2", out[1].DocID)
	assert.Equal(t, "d3", out[2].DocID)
}

func TestCapPerDoc_HigherCapAllowsDepth(t *testing.T) {
	diversified := itemsForDocs("d1", "d1", "d1", "d2")

	out := capPerDoc(diversified, 2, 4)

	require.Len(t, out, 3)
	assert.Equal(t, "d1", out[0].DocID)
	assert.Equal(t, "d1", out[1].DocID)
	assert.Equal(t, "d2", out[2].DocID)
}

func TestCapPerDoc_StopsAtK(t *testing.T) {
	diversified := itemsForDocs("d1", "d2", "d3", "d4")

	out := capPerDoc(diversified, 1, 2)

	assert.Len(t, out, 2)
}

func TestCapPerDoc_MinimumEnforcedAtOne(t *testing.T) {
	diversified := itemsForDocs("d1", "d1")

	out := capPerDoc(diversified, 0, 5)

	assert.Len(t, out, 1)
}
