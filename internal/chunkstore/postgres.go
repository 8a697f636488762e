package chunkstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// PostgresStore implements Store on PostgreSQL with the pgvector extension.
// Dense candidates come from the vector column, lexical candidates from the
// generated tsvector column scored with ts_rank_cd.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a chunk store backed by PostgreSQL.
// The pgvector types are registered on every pooled connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	var extExists bool
	err = pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')",
	).Scan(&extExists)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to check pgvector extension: %w", err)
	}
	if !extExists {
		pool.Close()
		return nil, fmt.Errorf("pgvector extension not installed - run: CREATE EXTENSION vector")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool. The pool must have
// pgvector types registered.
func NewPostgresStoreWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate creates the chunks table and its indexes if they do not exist.
// The tsv column is generated from the content so the full-text index never
// drifts from the stored text.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			page INT,
			embedding vector,
			tsv tsvector GENERATED ALWAYS AS (to_tsvector('simple', content)) STORED,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON chunks (tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (tenant_id, document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_tsv ON chunks USING GIN (tsv)`,
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate chunks schema: %w", err)
		}
	}
	return nil
}

// FetchDenseCandidates returns up to limit tenant-scoped chunks that carry
// an embedding vector.
func (s *PostgresStore) FetchDenseCandidates(ctx context.Context, tenantID string, limit int) ([]DenseCandidate, error) {
	query := `
		SELECT id, document_id, content, page, embedding
		FROM chunks
		WHERE tenant_id = $1 AND embedding IS NOT NULL
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dense candidates: %w", err)
	}
	defer rows.Close()

	var candidates []DenseCandidate
	for rows.Next() {
		var c DenseCandidate
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Page, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan dense candidate: %w", err)
		}
		c.Vector = vec.Slice()
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dense candidates: %w", err)
	}

	return candidates, nil
}

// FetchLexicalCandidates runs a full-text search over the tenant's chunks,
// ordered by ts_rank_cd descending.
func (s *PostgresStore) FetchLexicalCandidates(ctx context.Context, tenantID, query string, limit int) ([]LexicalCandidate, error) {
	sql := `
		SELECT id, document_id, content, page, ts_rank_cd(tsv, q) AS score
		FROM chunks, plainto_tsquery('simple', $2) q
		WHERE tenant_id = $1 AND tsv @@ q
		ORDER BY score DESC
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, sql, tenantID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lexical candidates: %w", err)
	}
	defer rows.Close()

	var candidates []LexicalCandidate
	for rows.Next() {
		var c LexicalCandidate
		var score float32
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Page, &score); err != nil {
			return nil, fmt.Errorf("failed to scan lexical candidate: %w", err)
		}
		c.Score = float64(score)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lexical candidates: %w", err)
	}

	return candidates, nil
}

// UpsertChunks inserts or updates chunks in a single batch.
func (s *PostgresStore) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		var vec any
		if chunk.Vector != nil {
			vec = pgvector.NewVector(chunk.Vector)
		}
		batch.Queue(`
			INSERT INTO chunks (id, tenant_id, document_id, content, page, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (id) DO UPDATE
			SET content = EXCLUDED.content, page = EXCLUDED.page, embedding = EXCLUDED.embedding
		`, chunk.ID, chunk.TenantID, chunk.DocumentID, chunk.Text, chunk.Page, vec)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk: %w", err)
		}
	}

	return nil
}

// DeleteByDocument removes all chunks belonging to a document.
func (s *PostgresStore) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM chunks WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// ListMissingEmbeddings returns chunks that have no embedding yet, for the
// backfill job.
func (s *PostgresStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]Chunk, error) {
	query := `
		SELECT id, tenant_id, document_id, content, page
		FROM chunks
		WHERE embedding IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks missing embeddings: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.TenantID, &c.DocumentID, &c.Text, &c.Page); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	return chunks, nil
}

// UpdateEmbeddings writes embedding vectors for the given chunk IDs.
// ids and vectors must be the same length.
func (s *PostgresStore) UpdateEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, id := range ids {
		batch.Queue(`UPDATE chunks SET embedding = $2 WHERE id = $1`,
			id, pgvector.NewVector(vectors[i]))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ids {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to update embedding: %w", err)
		}
	}

	return nil
}

// ResolveChunkDocuments maps chunk IDs to their document IDs. Unknown IDs
// are absent from the result.
func (s *PostgresStore) ResolveChunkDocuments(ctx context.Context, chunkIDs []string) (map[string]string, error) {
	result := make(map[string]string, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id FROM chunks WHERE id = ANY($1)`, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chunk documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, docID string
		if err := rows.Scan(&id, &docID); err != nil {
			return nil, fmt.Errorf("failed to scan chunk document: %w", err)
		}
		result[id] = docID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunk documents: %w", err)
	}

	return result, nil
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
