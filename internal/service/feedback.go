package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Luizbragga/rag-faq-bot/internal/repository"
)

// FeedbackService records user ratings on logged answers.
type FeedbackService struct {
	logs repository.QALogRepository
}

// NewFeedbackService creates a feedback service.
func NewFeedbackService(logs repository.QALogRepository) *FeedbackService {
	return &FeedbackService{logs: logs}
}

// Submit stores an up/down rating for a logged answer.
func (s *FeedbackService) Submit(ctx context.Context, logID, feedback string) error {
	id, err := uuid.Parse(logID)
	if err != nil {
		return fmt.Errorf("invalid log id %q", logID)
	}
	if feedback != repository.FeedbackUp && feedback != repository.FeedbackDown {
		return fmt.Errorf("invalid feedback %q (want up or down)", feedback)
	}
	return s.logs.SetFeedback(ctx, id, feedback)
}
