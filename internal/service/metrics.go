package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Luizbragga/rag-faq-bot/internal/repository"
)

// ChunkDocumentResolver maps chunk IDs to their document IDs.
type ChunkDocumentResolver interface {
	ResolveChunkDocuments(ctx context.Context, chunkIDs []string) (map[string]string, error)
}

// MetricsService aggregates usage and latency statistics from the
// question/answer logs.
type MetricsService struct {
	logs      repository.QALogRepository
	docs      repository.DocumentRepository
	chunkDocs ChunkDocumentResolver
}

// NewMetricsService creates a metrics service.
func NewMetricsService(logs repository.QALogRepository, docs repository.DocumentRepository, chunkDocs ChunkDocumentResolver) *MetricsService {
	return &MetricsService{logs: logs, docs: docs, chunkDocs: chunkDocs}
}

// Percentiles summarizes a latency distribution in milliseconds. Nil fields
// mean no samples.
type Percentiles struct {
	P50 *int `json:"p50"`
	P95 *int `json:"p95"`
	P99 *int `json:"p99"`
	Avg *int `json:"avg"`
}

// DailyCount is the number of questions answered on one day.
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// TopDoc is a document ranked by how often its chunks were cited.
type TopDoc struct {
	DocID   string `json:"docId"`
	DocName string `json:"docName"`
	Hits    int    `json:"hits"`
}

// Overview is the full metrics payload for a tenant.
type Overview struct {
	Totals     OverviewTotals `json:"totals"`
	Latency    Percentiles    `json:"latency"`
	Daily      []DailyCount   `json:"daily"`
	TopDocs    []TopDoc       `json:"topDocs"`
	SampleSize int            `json:"sampleSize"`
	TenantID   string         `json:"tenantId"`
}

// OverviewTotals counts answered questions overall and in the last week.
type OverviewTotals struct {
	QAsAll int `json:"qasAll"`
	QAs7d  int `json:"qas7d"`
}

const (
	defaultLookback = 500
	maxLookback     = 5000
	defaultDays     = 7
	maxDays         = 30
)

// GetOverview computes totals, latency percentiles, a daily question series,
// and the most cited documents. lookback bounds how many recent logs feed
// the percentile and series computations.
func (s *MetricsService) GetOverview(ctx context.Context, tenantID string, lookback, days int) (*Overview, error) {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	if lookback > maxLookback {
		lookback = maxLookback
	}
	if days <= 0 {
		days = defaultDays
	}
	if days > maxDays {
		days = maxDays
	}

	now := time.Now()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	totalAll, err := s.logs.Count(ctx, tenantID, nil)
	if err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	total7d, err := s.logs.Count(ctx, tenantID, &weekAgo)
	if err != nil {
		return nil, fmt.Errorf("count recent logs: %w", err)
	}

	recent, err := s.logs.ListRecent(ctx, tenantID, lookback)
	if err != nil {
		return nil, fmt.Errorf("list recent logs: %w", err)
	}

	latencies := make([]int, 0, len(recent))
	for _, log := range recent {
		latencies = append(latencies, log.LatencyMs)
	}

	topDocs, err := s.topCitedDocs(ctx, recent)
	if err != nil {
		return nil, err
	}

	return &Overview{
		Totals:     OverviewTotals{QAsAll: totalAll, QAs7d: total7d},
		Latency:    computePercentiles(latencies),
		Daily:      dailySeries(recent, now, days),
		TopDocs:    topDocs,
		SampleSize: len(recent),
		TenantID:   tenantID,
	}, nil
}

// RecentLogs returns the newest logs for a tenant, capped at 200.
func (s *MetricsService) RecentLogs(ctx context.Context, tenantID string, limit int) ([]*repository.QALog, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return s.logs.ListRecent(ctx, tenantID, limit)
}

// computePercentiles uses nearest-rank on the sorted samples.
func computePercentiles(samples []int) Percentiles {
	if len(samples) == 0 {
		return Percentiles{}
	}

	sorted := make([]int, len(samples))
	copy(sorted, samples)
	sort.Ints(sorted)

	at := func(p int) *int {
		idx := p * (len(sorted) - 1) / 100
		v := sorted[idx]
		return &v
	}

	sum := 0
	for _, v := range sorted {
		sum += v
	}
	avg := sum / len(sorted)

	return Percentiles{P50: at(50), P95: at(95), P99: at(99), Avg: &avg}
}

// dailySeries buckets the recent logs into per-day counts for the last
// `days` days, oldest first. Days with no questions stay at zero.
func dailySeries(recent []*repository.QALog, now time.Time, days int) []DailyCount {
	series := make([]DailyCount, 0, days)
	index := make(map[string]int, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		index[day] = len(series)
		series = append(series, DailyCount{Day: day})
	}

	for _, log := range recent {
		day := log.CreatedAt.Format("2006-01-02")
		if idx, ok := index[day]; ok {
			series[idx].Count++
		}
	}

	return series
}

// topCitedDocs counts citations per document across the recent logs and
// returns the ten most cited with their display names.
func (s *MetricsService) topCitedDocs(ctx context.Context, recent []*repository.QALog) ([]TopDoc, error) {
	var allChunkIDs []string
	for _, log := range recent {
		allChunkIDs = append(allChunkIDs, log.RetrievedIDs...)
	}
	if len(allChunkIDs) == 0 {
		return []TopDoc{}, nil
	}

	unique := make([]string, 0, len(allChunkIDs))
	seen := make(map[string]struct{}, len(allChunkIDs))
	for _, id := range allChunkIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}

	chunkToDoc, err := s.chunkDocs.ResolveChunkDocuments(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve chunk documents: %w", err)
	}

	hits := make(map[string]int)
	for _, chunkID := range allChunkIDs {
		if docID, ok := chunkToDoc[chunkID]; ok {
			hits[docID]++
		}
	}

	docIDs := make([]string, 0, len(hits))
	for docID := range hits {
		docIDs = append(docIDs, docID)
	}
	sort.Slice(docIDs, func(i, j int) bool {
		if hits[docIDs[i]] != hits[docIDs[j]] {
			return hits[docIDs[i]] > hits[docIDs[j]]
		}
		return docIDs[i] < docIDs[j]
	})
	if len(docIDs) > 10 {
		docIDs = docIDs[:10]
	}

	names, err := s.docs.ResolveNames(ctx, docIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve document names: %w", err)
	}

	top := make([]TopDoc, len(docIDs))
	for i, docID := range docIDs {
		name := names[docID]
		if name == "" {
			name = "Documento"
		}
		top[i] = TopDoc{DocID: docID, DocName: name, Hits: hits[docID]}
	}

	return top, nil
}
