// Package generation provides text generation backends for incident
// analysis. Two providers are supported: OpenAI chat completions and a
// local Ollama server.
package generation

import (
	"context"
	"fmt"
	"time"
)

// Generator produces free-form text from a prompt pair.
type Generator interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
	Health(ctx context.Context) bool
}

// Config selects and tunes a generation provider.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// New builds a Generator for the configured provider.
func New(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIGenerator(cfg), nil
	case "ollama":
		return NewOllamaGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
