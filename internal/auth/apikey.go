// Package auth provides API key and JWT-based authentication middleware for
// the HTTP API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Luizbragga/rag-faq-bot/internal/repository"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// APIKeyHeader is the request header carrying the tenant API key
	APIKeyHeader = "X-Api-Key"

	tenantContextKey contextKey = "tenant"
)

const (
	tenantCacheSize = 1024
	tenantCacheTTL  = 5 * time.Minute
)

// TenantInfo holds tenant information extracted from authentication
type TenantInfo struct {
	ID     string
	Name   string
	Config repository.TenantConfig
}

// APIKeyAuth validates tenant API keys against the tenant repository.
// Lookups are cached with a TTL so key revocation takes effect within
// minutes without hitting the database on every request.
type APIKeyAuth struct {
	tenants repository.TenantRepository
	cache   *expirable.LRU[string, *TenantInfo]
}

// NewAPIKeyAuth creates the API key authenticator.
func NewAPIKeyAuth(tenants repository.TenantRepository) *APIKeyAuth {
	return &APIKeyAuth{
		tenants: tenants,
		cache:   expirable.NewLRU[string, *TenantInfo](tenantCacheSize, nil, tenantCacheTTL),
	}
}

// Middleware authenticates the request by API key and stores the tenant in
// the request context.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		info, err := a.lookup(r.Context(), apiKey)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeAuthError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			writeAuthError(w, http.StatusInternalServerError, "failed to validate API key")
			return
		}

		ctx := context.WithValue(r.Context(), tenantContextKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *APIKeyAuth) lookup(ctx context.Context, apiKey string) (*TenantInfo, error) {
	if info, ok := a.cache.Get(apiKey); ok {
		return info, nil
	}

	tenant, err := a.tenants.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	info := &TenantInfo{ID: tenant.ID, Name: tenant.Name, Config: tenant.Config}
	a.cache.Add(apiKey, info)
	return info, nil
}

// Invalidate drops a cached API key, e.g. after rotation.
func (a *APIKeyAuth) Invalidate(apiKey string) {
	a.cache.Remove(apiKey)
}

// TenantFromContext returns the authenticated tenant, if any.
func TenantFromContext(ctx context.Context) (*TenantInfo, bool) {
	info, ok := ctx.Value(tenantContextKey).(*TenantInfo)
	return info, ok
}

func contextWithTenant(ctx context.Context, info *TenantInfo) context.Context {
	return context.WithValue(ctx, tenantContextKey, info)
}

// APIKeyOrBearer authenticates by Bearer token when the request carries an
// Authorization header, by API key otherwise. Tokens are issued against the
// API key, so clients can exchange the long-lived key for a short-lived
// token and stop sending the key on every request.
func APIKeyOrBearer(keys *APIKeyAuth, tokens *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		byToken := tokens.Middleware(next)
		byKey := keys.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				byToken.ServeHTTP(w, r)
				return
			}
			byKey.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin guards admin endpoints with a static API key.
func RequireAdmin(adminAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminAPIKey == "" {
				writeAuthError(w, http.StatusForbidden, "admin API key not configured")
				return
			}
			if r.Header.Get(APIKeyHeader) != adminAPIKey {
				writeAuthError(w, http.StatusForbidden, "invalid admin API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}
