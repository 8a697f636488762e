package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Luizbragga/rag-faq-bot/internal/auth"
	"github.com/Luizbragga/rag-faq-bot/internal/chunkstore"
	"github.com/Luizbragga/rag-faq-bot/internal/repository"
	"github.com/Luizbragga/rag-faq-bot/internal/retrieval"
	"github.com/Luizbragga/rag-faq-bot/internal/service"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimension() int { return 2 }

func (fakeEmbedder) ModelName() string { return "fake" }

type fakeReader struct {
	dense []chunkstore.DenseCandidate
}

func (f *fakeReader) FetchDenseCandidates(ctx context.Context, tenantID string, limit int) ([]chunkstore.DenseCandidate, error) {
	return f.dense, nil
}

func (f *fakeReader) FetchLexicalCandidates(ctx context.Context, tenantID, query string, limit int) ([]chunkstore.LexicalCandidate, error) {
	return nil, nil
}

type fakeResolver struct {
	names map[string]string
}

func (f *fakeResolver) ResolveNames(ctx context.Context, docIDs []string) (map[string]string, error) {
	return f.names, nil
}

type fakeLogRepo struct {
	known uuid.UUID
}

func (f *fakeLogRepo) Create(ctx context.Context, log *repository.QALog) error { return nil }

func (f *fakeLogRepo) SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	if id != f.known {
		return repository.ErrNotFound
	}
	return nil
}

func (f *fakeLogRepo) ListRecent(ctx context.Context, tenantID string, limit int) ([]*repository.QALog, error) {
	return nil, nil
}

func (f *fakeLogRepo) Count(ctx context.Context, tenantID string, since *time.Time) (int, error) {
	return 0, nil
}

type fakeTenantRepo struct {
	tenant *repository.Tenant
}

func (f *fakeTenantRepo) Create(ctx context.Context, tenant *repository.Tenant) error { return nil }

func (f *fakeTenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	if f.tenant != nil && f.tenant.ID == id {
		return f.tenant, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTenantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*repository.Tenant, error) {
	if f.tenant != nil && f.tenant.APIKey == apiKey {
		return f.tenant, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTenantRepo) List(ctx context.Context, limit, offset int) ([]*repository.Tenant, int, error) {
	return nil, 0, nil
}

func (f *fakeTenantRepo) Update(ctx context.Context, tenant *repository.Tenant) error { return nil }

func (f *fakeTenantRepo) Delete(ctx context.Context, id string) error { return nil }

type fakeBackfillStore struct{}

func (fakeBackfillStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]chunkstore.Chunk, error) {
	return nil, nil
}

func (fakeBackfillStore) UpdateEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	return nil
}

const testAdminKey = "admin-secret"

func newTestServer(t *testing.T, logID uuid.UUID) *HTTPServer {
	t.Helper()

	reader := &fakeReader{
		dense: []chunkstore.DenseCandidate{
			{ID: "c1", DocumentID: "d1", Text: "Support runs 9 to 6.", Vector: []float32{0.9, 0}},
		},
	}
	engine := retrieval.NewEngine(fakeEmbedder{}, reader, &fakeResolver{
		names: map[string]string{"d1": "Handbook"},
	})

	logs := &fakeLogRepo{known: logID}

	return NewHTTPServer(HTTPServerConfig{
		Port:          0,
		Search:        service.NewSearchService(engine, nil),
		Feedback:      service.NewFeedbackService(logs),
		Backfill:      service.NewBackfillService(fakeBackfillStore{}, fakeEmbedder{}, nil),
		JWT:           auth.NewJWTManager(auth.DefaultJWTConfig("test-secret")),
		AdminAPIKey:   testAdminKey,
		DefaultTenant: "demo",
		Ready: func(ctx context.Context) error {
			return errors.New("database unreachable")
		},
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, payload
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, payload := doJSON(t, srv.Router(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if payload["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", payload["status"])
	}
}

func TestReadyzReportsFailure(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, payload := doJSON(t, srv.Router(), http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if payload["ok"] != false {
		t.Errorf("ok = %v, want false", payload["ok"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, payload := doJSON(t, srv.Router(), http.MethodPost, "/api/search",
		`{"query":"support hours"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, payload)
	}
	if payload["ok"] != true {
		t.Fatalf("ok = %v, want true", payload["ok"])
	}
	if payload["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", payload["count"])
	}

	items := payload["items"].([]any)
	item := items[0].(map[string]any)
	if item["id"] != "c1" {
		t.Errorf("item id = %v, want c1", item["id"])
	}
	if item["docName"] != "Handbook" {
		t.Errorf("docName = %v, want Handbook", item["docName"])
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, payload := doJSON(t, srv.Router(), http.MethodPost, "/api/search", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if payload["ok"] != false {
		t.Errorf("ok = %v, want false", payload["ok"])
	}
}

func TestChatRequiresQuestion(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, _ := doJSON(t, srv.Router(), http.MethodPost, "/api/chat", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	logID := uuid.New()
	srv := newTestServer(t, logID)

	rec, payload := doJSON(t, srv.Router(), http.MethodPost, "/api/feedback",
		`{"logId":"`+logID.String()+`","feedback":"up"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, payload)
	}
	if payload["updated"] != true {
		t.Errorf("updated = %v, want true", payload["updated"])
	}

	rec, _ = doJSON(t, srv.Router(), http.MethodPost, "/api/feedback",
		`{"logId":"`+uuid.NewString()+`","feedback":"up"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown log status = %d, want 404", rec.Code)
	}

	rec, _ = doJSON(t, srv.Router(), http.MethodPost, "/api/feedback",
		`{"logId":"not-a-uuid","feedback":"up"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

func TestBackfillRequiresAdminKey(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, _ := doJSON(t, srv.Router(), http.MethodPost, "/api/embeddings/backfill", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status without key = %d, want 403", rec.Code)
	}

	rec, payload := doJSON(t, srv.Router(), http.MethodPost, "/api/embeddings/backfill", "",
		map[string]string{"X-Api-Key": testAdminKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want 200", rec.Code)
	}
	if payload["processed"] != float64(0) {
		t.Errorf("processed = %v, want 0", payload["processed"])
	}
}

func TestBearerTokenAuthenticatesAPI(t *testing.T) {
	reader := &fakeReader{
		dense: []chunkstore.DenseCandidate{
			{ID: "c1", DocumentID: "d1", Text: "Support runs 9 to 6.", Vector: []float32{0.9, 0}},
		},
	}
	engine := retrieval.NewEngine(fakeEmbedder{}, reader, &fakeResolver{})
	tenants := &fakeTenantRepo{tenant: &repository.Tenant{ID: "acme", Name: "Acme", APIKey: "key-acme"}}

	srv := NewHTTPServer(HTTPServerConfig{
		Search: service.NewSearchService(engine, tenants),
		Auth:   auth.NewAPIKeyAuth(tenants),
		JWT:    auth.NewJWTManager(auth.DefaultJWTConfig("test-secret")),
	})

	// No credentials at all
	rec, _ := doJSON(t, srv.Router(), http.MethodPost, "/api/search", `{"query":"support"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	// Exchange the API key for a token
	rec, payload := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/token", "",
		map[string]string{"X-Api-Key": "key-acme"})
	if rec.Code != http.StatusOK {
		t.Fatalf("token exchange status = %d, want 200: %v", rec.Code, payload)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the response")
	}

	// The Bearer token alone authenticates the search
	rec, payload = doJSON(t, srv.Router(), http.MethodPost, "/api/search", `{"query":"support"}`,
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer search status = %d, want 200: %v", rec.Code, payload)
	}
	if payload["count"] != float64(1) {
		t.Errorf("count = %v, want 1", payload["count"])
	}

	// A garbage token does not
	rec, _ = doJSON(t, srv.Router(), http.MethodPost, "/api/search", `{"query":"support"}`,
		map[string]string{"Authorization": "Bearer not-a-token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestAuthTokenEndpoint(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, payload := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/token", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, payload)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the response")
	}
}

func TestDeleteDocumentRequiresID(t *testing.T) {
	srv := newTestServer(t, uuid.New())

	rec, _ := doJSON(t, srv.Router(), http.MethodDelete, "/api/ingest/text/", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
