package retrieval

import "sort"

// fuse merges ranked candidate lists into one sequence ordered by descending
// fused score.
//
// The merge is an explicit fold over a table keyed by candidate ID: the
// first occurrence is inserted as-is; later occurrences add their partial
// RRF score to the accumulator, keep the already-set page, and fill in
// whichever of the dense/lexical scores was still missing. The final sort is
// stable over first-seen order, so ties resolve deterministically.
func fuse(lists ...[]Item) []Item {
	merged := make(map[string]*Item)
	var order []string

	for _, list := range lists {
		for _, item := range list {
			prev, ok := merged[item.ID]
			if !ok {
				clone := item
				merged[item.ID] = &clone
				order = append(order, item.ID)
				continue
			}
			prev.FusedScore += item.FusedScore
			if prev.Page == nil {
				prev.Page = item.Page
			}
			if prev.DenseScore == nil {
				prev.DenseScore = item.DenseScore
			}
			if prev.BM25Score == nil {
				prev.BM25Score = item.BM25Score
			}
		}
	}

	out := make([]Item, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FusedScore > out[j].FusedScore
	})

	return out
}

// dot computes the dot product of two equal-length vectors. Callers wanting
// cosine semantics must pass pre-normalized vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
