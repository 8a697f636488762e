// Package repository defines domain models and data access interfaces for
// tenants, documents, and question/answer logs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Document statuses.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Document types.
const (
	DocTypePDF    = "pdf"
	DocTypeURL    = "url"
	DocTypeGDrive = "gdrive"
	DocTypeText   = "text"
)

// Feedback values on a logged answer.
const (
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

// Tenant represents a client workspace. The ID is a human-readable slug and
// partitions every other entity.
type Tenant struct {
	ID        string
	Name      string
	APIKey    string
	Config    TenantConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantConfig holds tenant-specific retrieval overrides. Zero values mean
// the engine defaults apply.
type TenantConfig struct {
	TopK            int  `json:"top_k"`
	MaxPerDoc       int  `json:"max_per_doc"`
	RerankerEnabled bool `json:"reranker_enabled"`
}

// Document represents an ingested document.
type Document struct {
	ID        uuid.UUID
	TenantID  string
	Name      string
	Type      string
	SourceURL string
	PageCount *int
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QALog records one answered question: what was asked, which chunks backed
// the answer, and how the user rated it.
type QALog struct {
	ID           uuid.UUID `json:"id"`
	TenantID     string    `json:"tenantId"`
	Question     string    `json:"question"`
	RetrievedIDs []string  `json:"retrievedIds"`
	Model        string    `json:"model,omitempty"`
	LatencyMs    int       `json:"latencyMs"`
	CostUsd      *float64  `json:"costUsd,omitempty"`
	HadCitation  bool      `json:"hadCitation"`
	Feedback     *string   `json:"feedback,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TenantRepository defines operations for tenant persistence
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)
	List(ctx context.Context, limit, offset int) ([]*Tenant, int, error)
	Update(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id string) error
}

// DocumentRepository defines operations for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context, tenantID, status string, limit, offset int) ([]*Document, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, pageCount *int) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ResolveNames maps document IDs to display names. IDs with no match
	// are absent from the result.
	ResolveNames(ctx context.Context, ids []string) (map[string]string, error)
}

// QALogRepository defines operations for question/answer log persistence
type QALogRepository interface {
	Create(ctx context.Context, log *QALog) error
	SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error
	ListRecent(ctx context.Context, tenantID string, limit int) ([]*QALog, error)

	// Count returns the number of logs for a tenant, restricted to those
	// created at or after since when it is non-nil.
	Count(ctx context.Context, tenantID string, since *time.Time) (int, error)
}
