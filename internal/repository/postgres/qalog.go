package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Luizbragga/rag-faq-bot/internal/repository"
)

// QALogRepo implements repository.QALogRepository
type QALogRepo struct {
	db *DB
}

// NewQALogRepo creates a new question/answer log repository
func NewQALogRepo(db *DB) *QALogRepo {
	return &QALogRepo{db: db}
}

// Create records one answered question
func (r *QALogRepo) Create(ctx context.Context, log *repository.QALog) error {
	query := `
		INSERT INTO qa_logs (id, tenant_id, question, retrieved_ids, model, latency_ms, cost_usd, had_citation, feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		log.ID, log.TenantID, log.Question, log.RetrievedIDs, log.Model,
		log.LatencyMs, log.CostUsd, log.HadCitation, log.Feedback)
	if err != nil {
		return fmt.Errorf("failed to create qa log: %w", err)
	}
	return nil
}

// SetFeedback stores the user's up/down rating on a logged answer
func (r *QALogRepo) SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE qa_logs SET feedback = $2 WHERE id = $1`, id, feedback)
	if err != nil {
		return fmt.Errorf("failed to set feedback: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListRecent returns the newest logs for a tenant
func (r *QALogRepo) ListRecent(ctx context.Context, tenantID string, limit int) ([]*repository.QALog, error) {
	query := `
		SELECT id, tenant_id, question, retrieved_ids, model, latency_ms, cost_usd, had_citation, feedback, created_at
		FROM qa_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryLogs(ctx, query, tenantID, limit)
}

// Count returns the number of logs for a tenant, optionally since a cutoff
func (r *QALogRepo) Count(ctx context.Context, tenantID string, since *time.Time) (int, error) {
	var total int
	var err error
	if since != nil {
		err = r.db.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM qa_logs WHERE tenant_id = $1 AND created_at >= $2`,
			tenantID, *since).Scan(&total)
	} else {
		err = r.db.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM qa_logs WHERE tenant_id = $1`, tenantID).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count qa logs: %w", err)
	}
	return total, nil
}

func (r *QALogRepo) queryLogs(ctx context.Context, query string, args ...any) ([]*repository.QALog, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list qa logs: %w", err)
	}
	defer rows.Close()

	var logs []*repository.QALog
	for rows.Next() {
		var log repository.QALog
		if err := rows.Scan(&log.ID, &log.TenantID, &log.Question, &log.RetrievedIDs,
			&log.Model, &log.LatencyMs, &log.CostUsd, &log.HadCitation,
			&log.Feedback, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan qa log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, nil
}

// Ensure QALogRepo implements the interface
var _ repository.QALogRepository = (*QALogRepo)(nil)
