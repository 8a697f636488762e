// Package embedder abstracts the embedding providers used for dense
// retrieval. All vectors for one tenant must come from the same model;
// mixing models makes dot-product scores meaningless.
package embedder

import "context"

// Embedder turns text into dense vectors.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds several texts in one provider call. The result is
	// index-aligned with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the length of the vectors this embedder produces.
	Dimension() int

	// ModelName identifies the underlying model.
	ModelName() string
}
