// Package reranker provides cross-encoder re-ranking for retrieval results.
//
// Re-ranking scores query-document pairs together rather than independently,
// which improves precision when the fused top-k scores are close.
//
// Reranking is optional and fail-soft: the retrieval engine keeps its fused
// order whenever the reranker is absent, errors, or returns nothing usable.
package reranker

import (
	"context"
)

// Ranking is a single entry of a relevance-ordered permutation: the index of
// a candidate in the input slice and the model's relevance score for it.
type Ranking struct {
	Index int
	Score float64
}

// Reranker defines the interface for re-ranking candidate texts.
type Reranker interface {
	// Rerank scores each document against the query and returns a
	// permutation of input indices ordered by descending relevance,
	// truncated to topN entries.
	Rerank(ctx context.Context, query string, docs []string, topN int) ([]Ranking, error)
}
