package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqLLM generates answers through Groq's OpenAI-compatible chat API.
type GroqLLM struct {
	client       openai.Client
	defaultModel string
}

// NewGroqLLM creates a Groq-backed LLM client. defaultModel is used when a
// request does not specify one.
func NewGroqLLM(apiKey, defaultModel string) (*GroqLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq: API key is required")
	}
	if defaultModel == "" {
		defaultModel = "llama-3.1-8b-instant"
	}
	return &GroqLLM{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(groqBaseURL),
		),
		defaultModel: defaultModel,
	}, nil
}

// Generate sends a chat completion request and returns the full response text.
func (g *GroqLLM) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = g.defaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(float64(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("groq: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

var _ LLM = (*GroqLLM)(nil)
