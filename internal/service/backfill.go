package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Luizbragga/rag-faq-bot/internal/chunkstore"
	"github.com/Luizbragga/rag-faq-bot/internal/embedder"
)

const backfillBatchSize = 32

// EmbeddingBackfiller is the chunk store surface the backfill job needs.
type EmbeddingBackfiller interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]chunkstore.Chunk, error)
	UpdateEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error
}

// BackfillService embeds chunks that were stored without a vector, in
// batches, until none remain.
type BackfillService struct {
	store  EmbeddingBackfiller
	embed  embedder.Embedder
	logger *slog.Logger
}

// NewBackfillService creates a backfill service.
func NewBackfillService(store EmbeddingBackfiller, embed embedder.Embedder, logger *slog.Logger) *BackfillService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackfillService{store: store, embed: embed, logger: logger}
}

// Run embeds all chunks missing a vector and returns how many were
// processed. A partial run keeps its progress: batches already written stay
// written even when a later batch fails.
func (s *BackfillService) Run(ctx context.Context) (int, error) {
	processed := 0

	for {
		chunks, err := s.store.ListMissingEmbeddings(ctx, backfillBatchSize)
		if err != nil {
			return processed, fmt.Errorf("list chunks missing embeddings: %w", err)
		}
		if len(chunks) == 0 {
			return processed, nil
		}

		ids := make([]string, len(chunks))
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			ids[i] = chunk.ID
			texts[i] = chunk.Text
		}

		vectors, err := s.embed.EmbedBatch(ctx, texts)
		if err != nil {
			return processed, fmt.Errorf("embed batch: %w", err)
		}
		if err := s.store.UpdateEmbeddings(ctx, ids, vectors); err != nil {
			return processed, fmt.Errorf("update embeddings: %w", err)
		}

		processed += len(chunks)
		s.logger.Info("backfilled embeddings", "batch", len(chunks), "total", processed)
	}
}
