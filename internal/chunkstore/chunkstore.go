// Package chunkstore provides tenant-partitioned storage and candidate
// retrieval for document chunks.
package chunkstore

import (
	"context"
)

// Chunk represents a stored document chunk with its embedding
type Chunk struct {
	ID         string
	DocumentID string
	TenantID   string
	Text       string
	Page       *int
	Vector     []float32 // Dense vector from the embedding model; nil until backfilled
}

// DenseCandidate is a chunk that carries an embedding, fetched for
// in-process similarity scoring.
type DenseCandidate struct {
	ID         string
	DocumentID string
	Text       string
	Page       *int
	Vector     []float32
}

// LexicalCandidate is a chunk matched by the store's full-text search,
// with the store's native relevance score.
type LexicalCandidate struct {
	ID         string
	DocumentID string
	Text       string
	Page       *int
	Score      float64
}

// Reader is the retrieval engine's view of the chunk store.
type Reader interface {
	// FetchDenseCandidates returns up to limit tenant-scoped chunks that
	// carry an embedding vector.
	FetchDenseCandidates(ctx context.Context, tenantID string, limit int) ([]DenseCandidate, error)

	// FetchLexicalCandidates runs a full-text relevance search over the
	// tenant's chunks. Results are ordered by descending relevance.
	FetchLexicalCandidates(ctx context.Context, tenantID, query string, limit int) ([]LexicalCandidate, error)
}

// Writer is the ingestion pipeline's view of the chunk store.
type Writer interface {
	// UpsertChunks inserts or updates chunks.
	UpsertChunks(ctx context.Context, chunks []Chunk) error

	// DeleteByDocument removes all chunks belonging to a document.
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error
}

// Store combines read and write access.
type Store interface {
	Reader
	Writer
}
