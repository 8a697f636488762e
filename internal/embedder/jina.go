package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultJinaBaseURL is the Jina API base URL.
	DefaultJinaBaseURL = "https://api.jina.ai"

	// DefaultJinaModel is the default Jina embedding model.
	DefaultJinaModel = "jina-embeddings-v3"

	// DefaultJinaDimension is the embedding dimension for jina-embeddings-v3.
	DefaultJinaDimension = 1024
)

// JinaConfig holds configuration for the Jina embedder.
type JinaConfig struct {
	// APIKey is required; requests fail without it.
	APIKey string

	// BaseURL is the Jina API base URL (default: https://api.jina.ai).
	BaseURL string

	// Model is the embedding model to use (default: jina-embeddings-v3).
	Model string

	// Dimension is the embedding dimension (default: 1024).
	Dimension int

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// JinaEmbedder implements the Embedder interface using Jina's embeddings API.
type JinaEmbedder struct {
	apiKey    string
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

type jinaRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewJinaEmbedder creates a new Jina embedder with the given configuration.
func NewJinaEmbedder(cfg JinaConfig) *JinaEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultJinaBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultJinaModel
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultJinaDimension
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &JinaEmbedder{
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client:    client,
	}
}

// Embed generates an embedding vector for a single text input.
func (e *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embedding vectors for multiple text inputs in one
// API call.
func (e *JinaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("JINA_API_KEY not configured")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	reqBody := jinaRequest{
		Model:          e.model,
		Input:          texts,
		EncodingFormat: "float",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jina API error (status %d): %s", resp.StatusCode, string(body))
	}

	var jinaResp jinaResponse
	if err := json.NewDecoder(resp.Body).Decode(&jinaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jinaResp.Data) != len(texts) {
		return nil, fmt.Errorf("jina returned %d embeddings for %d inputs", len(jinaResp.Data), len(texts))
	}

	vectors := make([][]float32, len(jinaResp.Data))
	for i, d := range jinaResp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned from Jina")
		}
		vectors[i] = d.Embedding
	}

	return vectors, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (e *JinaEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model being used.
func (e *JinaEmbedder) ModelName() string {
	return e.model
}

// Ensure JinaEmbedder implements Embedder interface.
var _ Embedder = (*JinaEmbedder)(nil)
