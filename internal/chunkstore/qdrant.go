package chunkstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore holds dense chunk data in Qdrant, one collection per tenant.
// It serves the dense candidate fetch; lexical search stays in Postgres, so
// the two are combined through Composite.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant-backed dense chunk store.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// collectionName returns the collection name for a tenant
func (s *QdrantStore) collectionName(tenantID string) string {
	return fmt.Sprintf("tenant_%s", tenantID)
}

// EnsureCollection creates the tenant's collection if it does not exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, tenantID string, dimension int) error {
	name := s.collectionName(tenantID)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Dot,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// FetchDenseCandidates scrolls the tenant's collection and returns chunks
// with their stored vectors for in-process similarity scoring.
func (s *QdrantStore) FetchDenseCandidates(ctx context.Context, tenantID string, limit int) ([]DenseCandidate, error) {
	name := s.collectionName(tenantID)

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: name,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll collection: %w", err)
	}

	candidates := make([]DenseCandidate, 0, len(points))
	for _, point := range points {
		c := DenseCandidate{
			ID: point.Id.GetUuid(),
		}

		if vectors := point.Vectors; vectors != nil {
			if v := vectors.GetVector(); v != nil {
				c.Vector = v.GetData()
			}
		}
		if len(c.Vector) == 0 {
			continue
		}

		if payload := point.Payload; payload != nil {
			if docID, ok := payload["document_id"]; ok {
				c.DocumentID = docID.GetStringValue()
			}
			if content, ok := payload["content"]; ok {
				c.Text = content.GetStringValue()
			}
			if page, ok := payload["page"]; ok {
				if _, isNull := page.GetKind().(*qdrant.Value_NullValue); !isNull {
					p := int(page.GetIntegerValue())
					c.Page = &p
				}
			}
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}

// UpsertChunks inserts or updates chunks that carry a vector. Chunks without
// an embedding are skipped; they only exist in the lexical store until the
// backfill job embeds them.
func (s *QdrantStore) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	byTenant := make(map[string][]*qdrant.PointStruct)
	for _, chunk := range chunks {
		if len(chunk.Vector) == 0 {
			continue
		}

		payload := map[string]*qdrant.Value{
			"document_id": qdrant.NewValueString(chunk.DocumentID),
			"content":     qdrant.NewValueString(chunk.Text),
		}
		if chunk.Page != nil {
			payload["page"] = qdrant.NewValueInt(int64(*chunk.Page))
		}

		byTenant[chunk.TenantID] = append(byTenant[chunk.TenantID], &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID),
			Payload: payload,
			Vectors: qdrant.NewVectors(chunk.Vector...),
		})
	}

	for tenantID, points := range byTenant {
		if err := s.EnsureCollection(ctx, tenantID, len(points[0].Vectors.GetVector().GetData())); err != nil {
			return err
		}
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collectionName(tenantID),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	return nil
}

// DeleteByDocument removes all points belonging to a document.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName(tenantID),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("document_id", documentID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete by document ID: %w", err)
	}
	return nil
}

// Composite serves dense candidates from Qdrant and lexical candidates from
// Postgres. Writes go to both so the full-text index stays in sync.
type Composite struct {
	Dense   *QdrantStore
	Lexical *PostgresStore
}

// FetchDenseCandidates delegates to the Qdrant store.
func (c *Composite) FetchDenseCandidates(ctx context.Context, tenantID string, limit int) ([]DenseCandidate, error) {
	return c.Dense.FetchDenseCandidates(ctx, tenantID, limit)
}

// FetchLexicalCandidates delegates to the Postgres store.
func (c *Composite) FetchLexicalCandidates(ctx context.Context, tenantID, query string, limit int) ([]LexicalCandidate, error) {
	return c.Lexical.FetchLexicalCandidates(ctx, tenantID, query, limit)
}

// UpsertChunks writes to both backends.
func (c *Composite) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	if err := c.Lexical.UpsertChunks(ctx, chunks); err != nil {
		return err
	}
	return c.Dense.UpsertChunks(ctx, chunks)
}

// DeleteByDocument removes a document's chunks from both backends.
func (c *Composite) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	if err := c.Lexical.DeleteByDocument(ctx, tenantID, documentID); err != nil {
		return err
	}
	return c.Dense.DeleteByDocument(ctx, tenantID, documentID)
}

// Ensure Composite satisfies Store
var _ Store = (*Composite)(nil)
