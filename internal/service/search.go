// Package service implements the application use cases on top of the
// retrieval engine, the repositories, and the chunk store.
package service

import (
	"context"

	"github.com/Luizbragga/rag-faq-bot/internal/repository"
	"github.com/Luizbragga/rag-faq-bot/internal/retrieval"
)

// SearchService answers raw retrieval queries without generation.
type SearchService struct {
	engine  *retrieval.Engine
	tenants repository.TenantRepository
}

// NewSearchService creates a search service. tenants may be nil, in which
// case no per-tenant overrides are applied.
func NewSearchService(engine *retrieval.Engine, tenants repository.TenantRepository) *SearchService {
	return &SearchService{engine: engine, tenants: tenants}
}

// SearchResult is the payload of one search call.
type SearchResult struct {
	Count int              `json:"count"`
	Items []retrieval.Item `json:"items"`
}

// Search retrieves the top passages for a query. k <= 0 uses the tenant's
// configured top-k, falling back to the engine default.
func (s *SearchService) Search(ctx context.Context, tenantID, query string, k int) (*SearchResult, error) {
	params := s.paramsFor(ctx, tenantID)
	if k > 0 {
		params.K = k
	}

	items, err := s.engine.HybridRetrieve(ctx, tenantID, query, params)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []retrieval.Item{}
	}
	return &SearchResult{Count: len(items), Items: items}, nil
}

// paramsFor resolves per-tenant retrieval overrides. An unknown tenant gets
// the engine defaults.
func (s *SearchService) paramsFor(ctx context.Context, tenantID string) retrieval.Params {
	var params retrieval.Params
	if s.tenants == nil {
		return params
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return params
	}
	params.K = tenant.Config.TopK
	params.MaxPerDoc = tenant.Config.MaxPerDoc
	params.DisableRerank = !tenant.Config.RerankerEnabled
	return params
}
