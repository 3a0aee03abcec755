package generation

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// ChatAPI is the slice of the OpenAI client used by the generator.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIGenerator generates text through OpenAI chat completions.
type OpenAIGenerator struct {
	api         ChatAPI
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIGenerator creates a generator backed by the OpenAI API.
func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		api:         openai.NewClient(cfg.APIKey),
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

// Complete sends a system+user chat completion and returns the first
// choice's content.
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Health reports whether the API is reachable with the configured key.
func (g *OpenAIGenerator) Health(ctx context.Context) bool {
	_, err := g.api.ListModels(ctx)
	return err == nil
}
