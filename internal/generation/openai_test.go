package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatAPI struct {
	mock.Mock
}

func (m *mockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func (m *mockChatAPI) ListModels(ctx context.Context) (openai.ModelsList, error) {
	args := m.Called(ctx)
	return args.Get(0).(openai.ModelsList), args.Error(1)
}

func TestOpenAIGenerator_Complete(t *testing.T) {
	api := new(mockChatAPI)
	g := &OpenAIGenerator{api: api, model: "gpt-4o-mini", temperature: 0.3, maxTokens: 512}

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o-mini" &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[1].Role == openai.ChatMessageRoleUser &&
			req.MaxTokens == 512
	})).Return(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "generated summary"}},
		},
	}, nil)

	out, err := g.Complete(context.Background(), "analyze this", "you are an analyst")
	require.NoError(t, err)
	assert.Equal(t, "generated summary", out)
	api.AssertExpectations(t)
}

func TestOpenAIGenerator_Complete_NoSystemPrompt(t *testing.T) {
	api := new(mockChatAPI)
	g := &OpenAIGenerator{api: api, model: "gpt-4o-mini"}

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return len(req.Messages) == 1 && req.Messages[0].Role == openai.ChatMessageRoleUser
	})).Return(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "ok"}},
		},
	}, nil)

	out, err := g.Complete(context.Background(), "prompt only", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestOpenAIGenerator_Complete_APIError(t *testing.T) {
	api := new(mockChatAPI)
	g := &OpenAIGenerator{api: api, model: "gpt-4o-mini"}

	api.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, errors.New("rate limited"))

	_, err := g.Complete(context.Background(), "p", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestOpenAIGenerator_Complete_NoChoices(t *testing.T) {
	api := new(mockChatAPI)
	g := &OpenAIGenerator{api: api, model: "gpt-4o-mini"}

	api.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, nil)

	_, err := g.Complete(context.Background(), "p", "")
	assert.Error(t, err)
}

func TestOpenAIGenerator_Health(t *testing.T) {
	api := new(mockChatAPI)
	g := &OpenAIGenerator{api: api, model: "gpt-4o-mini"}

	api.On("ListModels", mock.Anything).Return(openai.ModelsList{}, nil).Once()
	assert.True(t, g.Health(context.Background()))

	api.On("ListModels", mock.Anything).Return(openai.ModelsList{}, errors.New("401")).Once()
	assert.False(t, g.Health(context.Background()))
}

func TestBuildIncidentPrompt(t *testing.T) {
	prompt, system := BuildIncidentPrompt("the email body", "the kb context")
	assert.Contains(t, system, "expert IT incident analyst")
	assert.Contains(t, prompt, "EMAIL CONTENT:\nthe email body")
	assert.Contains(t, prompt, "RELEVANT KNOWLEDGE BASE ARTICLES:\nthe kb context")

	prompt, _ = BuildIncidentPrompt("the email body", "")
	assert.Contains(t, prompt, "No matching knowledge base articles were found")
	assert.False(t, strings.Contains(prompt, "RELEVANT KNOWLEDGE BASE ARTICLES"))
}

func TestIncidentSummarizer_Summarize(t *testing.T) {
	api := new(mockChatAPI)
	g := &OpenAIGenerator{api: api, model: "gpt-4o-mini"}
	s := NewIncidentSummarizer(g)

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return strings.Contains(req.Messages[1].Content, "vpn is down")
	})).Return(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: `{"short_description": "VPN outage"}`}},
		},
	}, nil)

	out, err := s.Summarize(context.Background(), "vpn is down", "kb context here")
	require.NoError(t, err)
	assert.Equal(t, `{"short_description": "VPN outage"}`, out)
}
