package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Luizbragga/rag-faq-bot/internal/chunkstore"
	"github.com/Luizbragga/rag-faq-bot/internal/embedder"
	"github.com/Luizbragga/rag-faq-bot/internal/repository"
)

// Pipeline turns raw text into embedded, searchable chunks. A document record
// tracks the ingestion status: processing while the pipeline runs, ready on
// success, failed otherwise.
type Pipeline struct {
	chunker *Chunker
	embed   embedder.Embedder
	chunks  chunkstore.Writer
	docs    repository.DocumentRepository
	logger  *slog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(chunker *Chunker, embed embedder.Embedder, chunks chunkstore.Writer, docs repository.DocumentRepository, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker: chunker,
		embed:   embed,
		chunks:  chunks,
		docs:    docs,
		logger:  logger,
	}
}

// Result summarizes one ingestion.
type Result struct {
	DocumentID uuid.UUID `json:"documentId"`
	ChunkCount int       `json:"chunkCount"`
}

// IngestText ingests a named plain-text document for a tenant. It creates
// the document record, chunks and embeds the text, and stores the chunks.
// The document is marked failed if any step after creation errors.
func (p *Pipeline) IngestText(ctx context.Context, tenantID, name, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("content cannot be empty")
	}
	if name == "" {
		name = "untitled"
	}

	doc := &repository.Document{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Type:     repository.DocTypeText,
		Status:   repository.StatusProcessing,
	}
	if err := p.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	count, err := p.process(ctx, doc, text)
	if err != nil {
		if ferr := p.docs.UpdateStatus(ctx, doc.ID, repository.StatusFailed, nil); ferr != nil {
			p.logger.Error("failed to mark document failed", "document_id", doc.ID, "error", ferr)
		}
		return nil, err
	}

	if err := p.docs.UpdateStatus(ctx, doc.ID, repository.StatusReady, nil); err != nil {
		return nil, fmt.Errorf("mark document ready: %w", err)
	}

	p.logger.Info("document ingested",
		"tenant_id", tenantID, "document_id", doc.ID, "chunks", count)

	return &Result{DocumentID: doc.ID, ChunkCount: count}, nil
}

func (p *Pipeline) process(ctx context.Context, doc *repository.Document, text string) (int, error) {
	pieces := p.chunker.Chunk(text)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("no chunks produced")
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}
	vectors, err := p.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(pieces) {
		return 0, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(vectors), len(pieces))
	}

	stored := make([]chunkstore.Chunk, len(pieces))
	for i, piece := range pieces {
		stored[i] = chunkstore.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID.String(),
			TenantID:   doc.TenantID,
			Text:       piece.Content,
			Vector:     vectors[i],
		}
	}
	if err := p.chunks.UpsertChunks(ctx, stored); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	return len(stored), nil
}

// DeleteDocument removes a document and its chunks.
func (p *Pipeline) DeleteDocument(ctx context.Context, tenantID string, docID uuid.UUID) error {
	doc, err := p.docs.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.TenantID != tenantID {
		return repository.ErrNotFound
	}

	if err := p.chunks.DeleteByDocument(ctx, tenantID, docID.String()); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return p.docs.Delete(ctx, docID)
}
