package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luizbragga/rag-faq-bot/internal/retrieval"
)

func TestBuildChatPrompt(t *testing.T) {
	page := 3
	items := []retrieval.Item{
		{ID: "c1", DocID: "d1", DocName: "Handbook", Text: "Support runs 9 to 6. ", Page: &page},
		{ID: "c2", DocID: "d2", Text: "Deliveries take five days."},
	}

	prompt := buildChatPrompt("what are the support hours?", items)

	assert.Contains(t, prompt, "Pergunta: what are the support hours?")
	assert.Contains(t, prompt, "(1) Support runs 9 to 6. — fonte: Handbook (p. 3)")
	// Unnamed documents fall back to the document ID
	assert.Contains(t, prompt, "(2) Deliveries take five days. — fonte: d2")
	assert.Contains(t, prompt, "Regras:")
}

func TestCitationsFor(t *testing.T) {
	long := strings.Repeat("palavra ", 60)
	items := []retrieval.Item{
		{ID: "c1", DocID: "d1", DocName: "Handbook", Text: long},
		{ID: "c2", DocID: "d2", Text: "short"},
	}

	citations := citationsFor(items)

	require.Len(t, citations, 2)
	assert.Equal(t, "Handbook", citations[0].Name)
	assert.LessOrEqual(t, len([]rune(citations[0].Snippet)), 220)
	assert.Equal(t, "d2", citations[1].Name)
	assert.Equal(t, "short", citations[1].Snippet)
}

func TestFeedbackService_Submit(t *testing.T) {
	repo := &stubQALogRepo{}
	svc := NewFeedbackService(repo)

	err := svc.Submit(context.Background(), "not-a-uuid", "up")
	require.Error(t, err)

	err = svc.Submit(context.Background(), "8b7f3f46-1f3b-4a39-9a94-000000000001", "sideways")
	require.Error(t, err)

	err = svc.Submit(context.Background(), "8b7f3f46-1f3b-4a39-9a94-000000000001", "down")
	require.NoError(t, err)
	assert.Equal(t, "down", repo.lastFeedback)
}
