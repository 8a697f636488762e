package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luizbragga/rag-faq-bot/internal/chunkstore"
)

type stubBackfillStore struct {
	missing []chunkstore.Chunk
	updated []string
}

func (s *stubBackfillStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]chunkstore.Chunk, error) {
	if len(s.missing) > limit {
		return s.missing[:limit], nil
	}
	return s.missing, nil
}

func (s *stubBackfillStore) UpdateEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	s.updated = append(s.updated, ids...)
	remaining := s.missing[:0]
	for _, chunk := range s.missing[len(ids):] {
		remaining = append(remaining, chunk)
	}
	s.missing = remaining
	return nil
}

type batchEmbedder struct {
	err error
}

func (b *batchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, b.err
}

func (b *batchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (b *batchEmbedder) Dimension() int { return 1 }

func (b *batchEmbedder) ModelName() string { return "stub" }

func TestBackfillRun(t *testing.T) {
	var missing []chunkstore.Chunk
	for i := 0; i < 70; i++ {
		missing = append(missing, chunkstore.Chunk{ID: string(rune('a' + i%26)) + "x", Text: "t"})
	}
	store := &stubBackfillStore{missing: missing}
	svc := NewBackfillService(store, &batchEmbedder{}, nil)

	processed, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 70, processed)
	assert.Len(t, store.updated, 70)
}

func TestBackfillRunNothingToDo(t *testing.T) {
	svc := NewBackfillService(&stubBackfillStore{}, &batchEmbedder{}, nil)

	processed, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestBackfillEmbedFailureStops(t *testing.T) {
	store := &stubBackfillStore{missing: []chunkstore.Chunk{{ID: "c1", Text: "t"}}}
	svc := NewBackfillService(store, &batchEmbedder{err: errors.New("provider down")}, nil)

	_, err := svc.Run(context.Background())

	require.Error(t, err)
	assert.Empty(t, store.updated)
}
