// Package retrieval implements the hybrid retrieval and fusion engine.
//
// A query is answered from two independent signals: dense similarity over
// precomputed chunk embeddings and the store's native lexical relevance
// search. Each signal produces a ranked candidate list, the lists are fused
// with Reciprocal Rank Fusion, the fused order is diversified across source
// documents and capped per document, optionally re-ranked by a cross-encoder,
// and finally enriched with document display names.
//
// RRF converts each signal into an ordinal contribution before combining, so
// the fusion is insensitive to the incomparable magnitudes of cosine
// similarity and lexical relevance scores.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Luizbragga/rag-faq-bot/internal/chunkstore"
	"github.com/Luizbragga/rag-faq-bot/internal/embedder"
	"github.com/Luizbragga/rag-faq-bot/internal/reranker"
)

const (
	// rrfConstant is the RRF smoothing constant. k=60 is the standard
	// choice across search engines.
	rrfConstant = 60

	// denseKeep caps the dense-only ranking regardless of the candidate
	// pool size.
	denseKeep = 12

	// DefaultK is the default number of results returned.
	DefaultK = 6

	// DefaultDenseLimit is the default dense candidate pool size.
	DefaultDenseLimit = 200

	// DefaultBM25Limit is the default lexical candidate pool size.
	DefaultBM25Limit = 20

	// DefaultMaxPerDoc is the default hard cap of chunks per document.
	DefaultMaxPerDoc = 1

	defaultRerankTimeout = 10 * time.Second
)

// Item is a retrieved passage as it moves through the pipeline. ID is the
// merge key and stays unique within the result set at every stage.
type Item struct {
	ID         string   `json:"id"`
	DocID      string   `json:"docId"`
	DocName    string   `json:"docName,omitempty"`
	Text       string   `json:"text"`
	Page       *int     `json:"page,omitempty"`
	DenseScore *float64 `json:"denseScore,omitempty"`
	BM25Score  *float64 `json:"bm25Score,omitempty"`
	FusedScore float64  `json:"fusedScore"`
}

// DocResolver resolves document IDs to display names. IDs with no match are
// simply absent from the returned map.
type DocResolver interface {
	ResolveNames(ctx context.Context, docIDs []string) (map[string]string, error)
}

// Engine runs hybrid retrieval for one tenant-scoped query at a time.
// Engines hold no per-query state and are safe for concurrent use.
type Engine struct {
	embedder      embedder.Embedder
	chunks        chunkstore.Reader
	docs          DocResolver
	reranker      reranker.Reranker // Optional: nil disables reranking
	rerankTimeout time.Duration
	defaults      Params
	logger        *slog.Logger
}

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithReranker sets an optional cross-encoder reranker.
func WithReranker(r reranker.Reranker) Option {
	return func(e *Engine) {
		e.reranker = r
	}
}

// WithRerankTimeout bounds the reranker call. On expiry the fused order is
// kept, like any other reranker failure.
func WithRerankTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.rerankTimeout = d
		}
	}
}

// WithDefaultParams sets engine-level fallbacks for Params fields left at
// zero by the caller. Fields left at zero here fall back to the package
// defaults as usual.
func WithDefaultParams(p Params) Option {
	return func(e *Engine) {
		e.defaults = p
	}
}

// WithLogger sets the logger used for fail-soft reranker warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(embed embedder.Embedder, chunks chunkstore.Reader, docs DocResolver, opts ...Option) *Engine {
	e := &Engine{
		embedder:      embed,
		chunks:        chunks,
		docs:          docs,
		rerankTimeout: defaultRerankTimeout,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Params holds per-query retrieval knobs. Zero values fall back to the
// package defaults.
type Params struct {
	K          int
	DenseLimit int
	BM25Limit  int
	MaxPerDoc  int

	// DisableRerank skips the reranker for this query even when the
	// engine has one configured, e.g. for tenants that opted out.
	DisableRerank bool
}

// fillFrom copies fallback values into fields the caller left at zero.
func (p Params) fillFrom(fallback Params) Params {
	if p.K <= 0 {
		p.K = fallback.K
	}
	if p.DenseLimit <= 0 {
		p.DenseLimit = fallback.DenseLimit
	}
	if p.BM25Limit <= 0 {
		p.BM25Limit = fallback.BM25Limit
	}
	if p.MaxPerDoc < 1 {
		p.MaxPerDoc = fallback.MaxPerDoc
	}
	return p
}

func (p Params) withDefaults() Params {
	if p.K <= 0 {
		p.K = DefaultK
	}
	if p.DenseLimit <= 0 {
		p.DenseLimit = DefaultDenseLimit
	}
	if p.BM25Limit <= 0 {
		p.BM25Limit = DefaultBM25Limit
	}
	if p.MaxPerDoc < 1 {
		p.MaxPerDoc = DefaultMaxPerDoc
	}
	return p
}

// HybridRetrieve returns the best-ranked, document-diversified passages for
// a tenant-scoped query, ordered by relevance, at most p.K items.
//
// Embedding and chunk store failures abort the call; a reranker failure is
// logged and the fused order is kept.
func (e *Engine) HybridRetrieve(ctx context.Context, tenantID, query string, p Params) ([]Item, error) {
	p = p.fillFrom(e.defaults).withDefaults()

	// The lexical fetch has no data dependency on the query embedding, so
	// it runs while the embedding call is in flight.
	var denseRanked, lexicalRanked []Item

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qvec, err := e.embedder.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		denseRanked, err = e.denseRank(gctx, tenantID, qvec, p.DenseLimit)
		return err
	})
	g.Go(func() error {
		var err error
		lexicalRanked, err = e.lexicalRank(gctx, tenantID, query, p.BM25Limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(denseRanked, lexicalRanked)
	results := capPerDoc(diversify(fused, p.K), p.MaxPerDoc, p.K)
	if !p.DisableRerank {
		results = e.applyRerank(ctx, query, results, p.K)
	}

	results, err := e.enrich(ctx, results)
	if err != nil {
		return nil, err
	}

	if len(results) > p.K {
		results = results[:p.K]
	}
	return results, nil
}

// denseRank fetches embedded chunks for the tenant, scores them against the
// query vector by dot product, and keeps the top candidates with their
// partial RRF contribution.
func (e *Engine) denseRank(ctx context.Context, tenantID string, qvec []float32, limit int) ([]Item, error) {
	candidates, err := e.chunks.FetchDenseCandidates(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch dense candidates: %w", err)
	}

	items := make([]Item, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) != len(qvec) {
			// Dimension mismatch (e.g. embedded under a different model)
			continue
		}
		score := dot(qvec, c.Vector)
		items = append(items, Item{
			ID:         c.ID,
			DocID:      c.DocumentID,
			Text:       c.Text,
			Page:       c.Page,
			DenseScore: &score,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return *items[i].DenseScore > *items[j].DenseScore
	})

	if len(items) > denseKeep {
		items = items[:denseKeep]
	}
	for i := range items {
		items[i].FusedScore = rrfScore(i)
	}

	return items, nil
}

// lexicalRank runs the store's relevance search and assigns partial RRF
// scores by list position. The store already returns hits in relevance
// order.
func (e *Engine) lexicalRank(ctx context.Context, tenantID, query string, limit int) ([]Item, error) {
	candidates, err := e.chunks.FetchLexicalCandidates(ctx, tenantID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch lexical candidates: %w", err)
	}

	items := make([]Item, 0, len(candidates))
	for i, c := range candidates {
		score := c.Score
		items = append(items, Item{
			ID:         c.ID,
			DocID:      c.DocumentID,
			Text:       c.Text,
			Page:       c.Page,
			BM25Score:  &score,
			FusedScore: rrfScore(i),
		})
	}

	return items, nil
}

// applyRerank asks the cross-encoder for a relevance-ordered permutation and
// replaces the working order with it. Fail-soft: on any error, timeout, or
// unusable response the input order is returned unchanged.
func (e *Engine) applyRerank(ctx context.Context, query string, items []Item, k int) []Item {
	if e.reranker == nil || len(items) <= 2 {
		return items
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	topN := k
	if topN > len(texts) {
		topN = len(texts)
	}

	rctx, cancel := context.WithTimeout(ctx, e.rerankTimeout)
	defer cancel()

	rankings, err := e.reranker.Rerank(rctx, query, texts, topN)
	if err != nil {
		e.logger.Warn("reranker failed, keeping fused order", "error", err)
		return items
	}

	reordered := make([]Item, 0, len(rankings))
	for _, r := range rankings {
		if r.Index < 0 || r.Index >= len(items) {
			continue
		}
		reordered = append(reordered, items[r.Index])
	}
	if len(reordered) == 0 {
		return items
	}
	return reordered
}

// enrich attaches document display names in one batched lookup. An ID with
// no match leaves DocName empty; a lookup failure aborts the call.
func (e *Engine) enrich(ctx context.Context, items []Item) ([]Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.DocID]; !ok {
			seen[it.DocID] = struct{}{}
			ids = append(ids, it.DocID)
		}
	}

	names, err := e.docs.ResolveNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve document names: %w", err)
	}

	for i := range items {
		items[i].DocName = names[items[i].DocID]
	}
	return items, nil
}

// rrfScore is the partial RRF contribution for a 0-based rank.
func rrfScore(rank int) float64 {
	return 1.0 / float64(rrfConstant+rank)
}
