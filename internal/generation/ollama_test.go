package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerator_Complete(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: `{"short_description": "ok"}`, Done: true})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(Config{
		Provider:    "ollama",
		Model:       "llama3.1",
		BaseURL:     srv.URL,
		Temperature: 0.3,
		MaxTokens:   512,
	})

	out, err := g.Complete(context.Background(), "analyze this", "you are an analyst")
	require.NoError(t, err)

	assert.Equal(t, `{"short_description": "ok"}`, out)
	assert.Equal(t, "llama3.1", got.Model)
	assert.Equal(t, "you are an analyst\n\nanalyze this", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.3, got.Options.Temperature)
	assert.Equal(t, 512, got.Options.NumPredict)
}

func TestOllamaGenerator_Complete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOllamaGenerator(Config{Model: "llama3.1", BaseURL: srv.URL})

	_, err := g.Complete(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama api error 500")
}

func TestOllamaGenerator_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "llama3.1"}, {"name": "mistral"}},
		})
	}))
	defer srv.Close()

	healthy := NewOllamaGenerator(Config{Model: "llama3.1", BaseURL: srv.URL})
	assert.True(t, healthy.Health(context.Background()))

	missing := NewOllamaGenerator(Config{Model: "qwen", BaseURL: srv.URL})
	assert.False(t, missing.Health(context.Background()))
}

func TestOllamaGenerator_Health_Unreachable(t *testing.T) {
	g := NewOllamaGenerator(Config{Model: "llama3.1", BaseURL: "http://127.0.0.1:1"})
	assert.False(t, g.Health(context.Background()))
}

func TestNew_SelectsProvider(t *testing.T) {
	g, err := New(Config{Provider: "ollama", Model: "llama3.1"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaGenerator{}, g)

	g, err = New(Config{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, g)

	_, err = New(Config{Provider: "bedrock"})
	assert.Error(t, err)
}
