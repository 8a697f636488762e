package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Luizbragga/rag-faq-bot/internal/auth"
	"github.com/Luizbragga/rag-faq-bot/internal/repository"
)

// tenantFor resolves the tenant for a request: authenticated tenant first,
// then the explicit request value, then the configured default.
func (s *HTTPServer) tenantFor(r *http.Request, requested string) string {
	if info, ok := auth.TenantFromContext(r.Context()); ok {
		return info.ID
	}
	if requested != "" {
		return requested
	}
	return s.defaultTenant
}

// handleAuthToken issues a JWT for the authenticated tenant, usable as a
// Bearer token by clients that cannot hold the long-lived API key.
func (s *HTTPServer) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	tenantID := s.defaultTenant
	tenantName := ""
	if info, ok := auth.TenantFromContext(r.Context()); ok {
		tenantID = info.ID
		tenantName = info.Name
	}
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "no tenant to issue a token for")
		return
	}

	token, err := s.jwt.GenerateToken(tenantID, tenantName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token})
}

type searchRequest struct {
	Query    string `json:"query"`
	Question string `json:"question"`
	TenantID string `json:"tenantId"`
	K        int    `json:"k"`
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	query := req.Query
	if query == "" {
		query = req.Question
	}
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing 'query' in JSON body")
		return
	}

	result, err := s.search.Search(r.Context(), s.tenantFor(r, req.TenantID), query, req.K)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"count": result.Count,
		"items": result.Items,
	})
}

type chatRequest struct {
	Question string `json:"question"`
	Q        string `json:"q"`
	TenantID string `json:"tenantId"`
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	question := req.Question
	if question == "" {
		question = req.Q
	}
	if question == "" {
		writeError(w, http.StatusBadRequest, "Missing 'question' in body")
		return
	}

	result, err := s.chat.Ask(r.Context(), s.tenantFor(r, req.TenantID), question)
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"answer":    result.Answer,
		"citations": result.Citations,
		"provider":  result.Provider,
		"model":     result.Model,
		"logId":     result.LogID,
	})
}

type feedbackRequest struct {
	LogID    string `json:"logId"`
	Feedback string `json:"feedback"`
}

func (s *HTTPServer) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.feedback.Submit(r.Context(), req.LogID, req.Feedback); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "log not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "updated": true})
}

type ingestTextRequest struct {
	TenantID string `json:"tenantId"`
	Text     string `json:"text"`
	Name     string `json:"name"`
}

func (s *HTTPServer) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Missing 'text' in JSON body")
		return
	}
	name := req.Name
	if name == "" {
		name = "seed-" + time.Now().Format("2006-01-02T15:04:05")
	}

	result, err := s.pipeline.IngestText(r.Context(), s.tenantFor(r, req.TenantID), name, req.Text)
	if err != nil {
		s.logger.Error("ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"docId":  result.DocumentID.String(),
		"chunks": result.ChunkCount,
	})
}

func (s *HTTPServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID := s.tenantFor(r, r.URL.Query().Get("tenantId"))

	docs, total, err := s.docs.List(r.Context(), tenantID, r.URL.Query().Get("status"), 100, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type docView struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Type      string    `json:"type"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"createdAt"`
	}
	views := make([]docView, len(docs))
	for i, doc := range docs {
		views[i] = docView{
			ID:        doc.ID.String(),
			Name:      doc.Name,
			Type:      doc.Type,
			Status:    doc.Status,
			CreatedAt: doc.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"count": total,
		"docs":  views,
	})
}

func (s *HTTPServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	tenantID := s.tenantFor(r, r.URL.Query().Get("tenantId"))
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		writeError(w, http.StatusBadRequest, "Missing 'docId' query parameter")
		return
	}

	id, err := uuid.Parse(docID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid 'docId'")
		return
	}

	if err := s.pipeline.DeleteDocument(r.Context(), tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deletedDocId": docID})
}

func (s *HTTPServer) handleMetricsOverview(w http.ResponseWriter, r *http.Request) {
	tenantID := s.tenantFor(r, r.URL.Query().Get("tenantId"))
	lookback := queryInt(r, "lookback")
	days := queryInt(r, "days")

	overview, err := s.metrics.GetOverview(r.Context(), tenantID, lookback, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"totals":     overview.Totals,
		"latency":    overview.Latency,
		"daily":      overview.Daily,
		"topDocs":    overview.TopDocs,
		"sampleSize": overview.SampleSize,
		"tenantId":   overview.TenantID,
	})
}

func (s *HTTPServer) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	tenantID := s.tenantFor(r, r.URL.Query().Get("tenantId"))

	logs, err := s.metrics.RecentLogs(r.Context(), tenantID, queryInt(r, "limit"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []*repository.QALog{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"count": len(logs),
		"items": logs,
	})
}

func (s *HTTPServer) handleBackfill(w http.ResponseWriter, r *http.Request) {
	processed, err := s.backfill.Run(r.Context())
	if err != nil {
		s.logger.Error("backfill failed", "processed", processed, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "processed": processed})
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
