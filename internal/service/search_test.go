package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Luizbragga/rag-faq-bot/internal/repository"
)

type stubTenantRepo struct {
	tenant *repository.Tenant
}

func (s *stubTenantRepo) Create(ctx context.Context, tenant *repository.Tenant) error { return nil }

func (s *stubTenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	if s.tenant != nil && s.tenant.ID == id {
		return s.tenant, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubTenantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*repository.Tenant, error) {
	return nil, repository.ErrNotFound
}

func (s *stubTenantRepo) List(ctx context.Context, limit, offset int) ([]*repository.Tenant, int, error) {
	return nil, 0, nil
}

func (s *stubTenantRepo) Update(ctx context.Context, tenant *repository.Tenant) error { return nil }

func (s *stubTenantRepo) Delete(ctx context.Context, id string) error { return nil }

func TestParamsForMapsTenantConfig(t *testing.T) {
	tenants := &stubTenantRepo{tenant: &repository.Tenant{
		ID: "acme",
		Config: repository.TenantConfig{
			TopK:            4,
			MaxPerDoc:       2,
			RerankerEnabled: true,
		},
	}}
	svc := NewSearchService(nil, tenants)

	params := svc.paramsFor(context.Background(), "acme")

	assert.Equal(t, 4, params.K)
	assert.Equal(t, 2, params.MaxPerDoc)
	assert.False(t, params.DisableRerank)
}

func TestParamsForRerankOptOut(t *testing.T) {
	tenants := &stubTenantRepo{tenant: &repository.Tenant{
		ID:     "acme",
		Config: repository.TenantConfig{TopK: 6, RerankerEnabled: false},
	}}
	svc := NewSearchService(nil, tenants)

	params := svc.paramsFor(context.Background(), "acme")

	assert.True(t, params.DisableRerank)
}

func TestParamsForUnknownTenantUsesDefaults(t *testing.T) {
	svc := NewSearchService(nil, &stubTenantRepo{})

	params := svc.paramsFor(context.Background(), "ghost")

	assert.Zero(t, params.K)
	assert.False(t, params.DisableRerank)
}
