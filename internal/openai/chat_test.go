package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func TestChatClient_Complete_Success(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := &ChatClient{api: mockAPI, model: "llama3.1:8b", maxTokens: 256}

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "llama3.1:8b" &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == openai.ChatMessageRoleUser &&
			req.Messages[0].Content == "Question: what color is the sky" &&
			req.MaxTokens == 256
	})).Return(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "Blue."}}},
	}, nil)

	out, err := client.Complete(ctx, "Question: what color is the sky")

	require.NoError(t, err)
	assert.Equal(t, "Blue.", out)
	mockAPI.AssertExpectations(t)
}

func TestChatClient_Complete_NoChoices(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := &ChatClient{api: mockAPI}

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)

	_, err := client.Complete(context.Background(), "p")
	assert.Equal(t, ErrNoChoices, err)
}

func TestChatClient_Complete_APIError(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := &ChatClient{api: mockAPI}
	apiErr := errors.New("connection refused")

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, apiErr)

	_, err := client.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, apiErr)
}

func TestChatClient_Complete_AgainstCompatibleServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:8b", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "local answer"}}},
		})
	}))
	defer server.Close()

	client := NewChatClient(ChatConfig{BaseURL: server.URL + "/v1", Model: "llama3.1:8b"})

	out, err := client.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
}
