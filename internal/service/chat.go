package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Luizbragga/rag-faq-bot/internal/answer"
	"github.com/Luizbragga/rag-faq-bot/internal/llm"
	"github.com/Luizbragga/rag-faq-bot/internal/repository"
	"github.com/Luizbragga/rag-faq-bot/internal/retrieval"
)

const chatSystemPrompt = "Você é um assistente que responde SOMENTE com base no contexto fornecido (RAG). Não invente."

// ChatService answers questions grounded in retrieved passages. When no LLM
// is configured it falls back to an extractive answer built from the
// passages themselves.
type ChatService struct {
	search *SearchService
	llm    llm.LLM // Optional: nil enables the extractive fallback
	logs   repository.QALogRepository
	model  string
	logger *slog.Logger
}

// NewChatService creates a chat service. llmClient and logs may be nil.
func NewChatService(search *SearchService, llmClient llm.LLM, logs repository.QALogRepository, model string, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		search: search,
		llm:    llmClient,
		logs:   logs,
		model:  model,
		logger: logger,
	}
}

// Citation points the user at the passage backing part of an answer.
type Citation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
	Page    *int   `json:"page,omitempty"`
}

// ChatResult is the payload of one answered question.
type ChatResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	LogID     string     `json:"logId,omitempty"`
}

// Ask retrieves context for the question, generates an answer, and logs the
// exchange. A logging failure does not fail the call.
func (s *ChatService) Ask(ctx context.Context, tenantID, question string) (*ChatResult, error) {
	start := time.Now()

	retrieved, err := s.search.Search(ctx, tenantID, question, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	items := retrieved.Items

	result := &ChatResult{Citations: citationsFor(items)}
	if s.llm != nil {
		text, err := s.llm.Generate(ctx, buildChatPrompt(question, items), llm.GenerateOptions{
			Model:        s.model,
			SystemPrompt: chatSystemPrompt,
			Temperature:  0.2,
			MaxTokens:    700,
		})
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		result.Answer = text
		result.Provider = "groq"
		result.Model = s.model
	} else {
		texts := make([]string, len(items))
		for i, it := range items {
			texts[i] = it.Text
		}
		result.Answer = answer.Extractive(question, texts, 0)
		result.Provider = "extractive"
	}

	if s.logs != nil {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		log := &repository.QALog{
			ID:           uuid.New(),
			TenantID:     tenantID,
			Question:     question,
			RetrievedIDs: ids,
			Model:        result.Model,
			LatencyMs:    int(time.Since(start).Milliseconds()),
			HadCitation:  len(items) > 0,
		}
		if err := s.logs.Create(ctx, log); err != nil {
			s.logger.Warn("failed to record qa log", "tenant_id", tenantID, "error", err)
		} else {
			result.LogID = log.ID.String()
		}
	}

	return result, nil
}

// buildChatPrompt numbers each passage and names its source so the model can
// ground and cite its answer.
func buildChatPrompt(question string, items []retrieval.Item) string {
	var bullets strings.Builder
	for i, it := range items {
		source := it.DocName
		if source == "" {
			source = it.DocID
		}
		bullets.WriteString(fmt.Sprintf("(%d) %s — fonte: %s", i+1, strings.TrimSpace(it.Text), source))
		if it.Page != nil {
			bullets.WriteString(fmt.Sprintf(" (p. %d)", *it.Page))
		}
		bullets.WriteString("\n")
	}

	return strings.TrimSpace(fmt.Sprintf(`
Pergunta: %s

Contexto:
%s
Regras:
- Responda de forma direta e objetiva em português.
- Se não houver evidências suficientes no contexto, diga claramente que não encontrou.
`, question, bullets.String()))
}

func citationsFor(items []retrieval.Item) []Citation {
	citations := make([]Citation, len(items))
	for i, it := range items {
		name := it.DocName
		if name == "" {
			name = it.DocID
		}
		citations[i] = Citation{
			ID:      it.ID,
			Name:    name,
			Snippet: answer.Snippet(it.Text, 0),
			Page:    it.Page,
		}
	}
	return citations
}
