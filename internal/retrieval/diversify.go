package retrieval

// diversify walks the fused sequence greedily and admits a candidate when
// its document has not been seen yet, or while fewer than max(1, k/2)
// candidates are admitted. The relaxed first half lets a strong document
// fill early slots before diversity is enforced. If the walk ends short of
// k, a second pass appends the remaining candidates in fused order.
//
// Diversification cannot invent documents: with a single source document all
// k slots still come from it.
func diversify(fused []Item, k int) []Item {
	half := k / 2
	if half < 1 {
		half = 1
	}

	seenDocs := make(map[string]struct{})
	included := make(map[string]struct{})
	out := make([]Item, 0, k)

	for _, item := range fused {
		if len(out) >= k {
			break
		}
		if _, seen := seenDocs[item.DocID]; !seen || len(out) < half {
			out = append(out, item)
			seenDocs[item.DocID] = struct{}{}
			included[item.ID] = struct{}{}
		}
	}

	if len(out) < k {
		for _, item := range fused {
			if len(out) >= k {
				break
			}
			if _, ok := included[item.ID]; ok {
				continue
			}
			out = append(out, item)
			included[item.ID] = struct{}{}
		}
	}

	return out
}

// capPerDoc applies the hard per-document cap after diversification. It may
// shrink the result below k when too few distinct documents exist.
func capPerDoc(items []Item, maxPerDoc, k int) []Item {
	if maxPerDoc < 1 {
		maxPerDoc = 1
	}

	counts := make(map[string]int)
	out := make([]Item, 0, k)

	for _, item := range items {
		if counts[item.DocID] >= maxPerDoc {
			continue
		}
		counts[item.DocID]++
		out = append(out, item)
		if len(out) >= k {
			break
		}
	}

	return out
}
