package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
)

const (
	// DefaultJinaBaseURL is the Jina API base URL.
	DefaultJinaBaseURL = "https://api.jina.ai"

	// DefaultJinaModel is the default Jina reranker model.
	DefaultJinaModel = "jina-reranker-v2-base-multilingual"
)

// JinaReranker calls the Jina rerank API.
//
// The request deliberately omits top_n/top_k: the API rejects unknown extra
// fields with a 422, so truncation happens client-side. Response rows may
// arrive under "data" or "results" depending on the API version, and the
// score field may be "relevance_score" or "score"; both shapes are accepted.
type JinaReranker struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// JinaConfig holds configuration for the Jina reranker.
type JinaConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewJinaReranker creates a new Jina reranker client.
func NewJinaReranker(cfg JinaConfig) *JinaReranker {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultJinaBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultJinaModel
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &JinaReranker{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  client,
	}
}

type jinaRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

// jinaRerankRow tolerates both score field names; Index is a pointer so a
// missing index can fall back to the row's position.
type jinaRerankRow struct {
	Index          *int     `json:"index"`
	RelevanceScore *float64 `json:"relevance_score"`
	Score          *float64 `json:"score"`
}

type jinaRerankResponse struct {
	Data    []jinaRerankRow `json:"data"`
	Results []jinaRerankRow `json:"results"`
}

// Rerank scores docs against the query and returns index/score pairs sorted
// by descending score, truncated to topN.
func (r *JinaReranker) Rerank(ctx context.Context, query string, docs []string, topN int) ([]Ranking, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("JINA_API_KEY not configured")
	}
	if len(docs) == 0 {
		return nil, nil
	}

	reqBody := jinaRerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: docs,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/rerank", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jina rerank error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed jinaRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	rows := parsed.Data
	if len(rows) == 0 {
		rows = parsed.Results
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("jina rerank returned no results")
	}

	rankings := normalizeRows(rows)

	if topN > len(docs) {
		topN = len(docs)
	}
	if len(rankings) > topN {
		rankings = rankings[:topN]
	}

	return rankings, nil
}

// normalizeRows converts tolerant API rows into {index, score} pairs sorted
// by descending score.
func normalizeRows(rows []jinaRerankRow) []Ranking {
	rankings := make([]Ranking, len(rows))
	for i, row := range rows {
		idx := i
		if row.Index != nil {
			idx = *row.Index
		}
		score := 0.0
		if row.RelevanceScore != nil {
			score = *row.RelevanceScore
		} else if row.Score != nil {
			score = *row.Score
		}
		rankings[i] = Ranking{Index: idx, Score: score}
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Score > rankings[j].Score
	})

	return rankings
}

// Ensure JinaReranker implements Reranker interface.
var _ Reranker = (*JinaReranker)(nil)
