package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when a completion has no choices
var ErrNoChoices = errors.New("no completion choices returned")

// ChatAPI is the subset of the go-openai client used for completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// ChatClient is a language model served over the chat completions API.
// With a BaseURL such as http://localhost:11434/v1 it talks to Ollama.
type ChatClient struct {
	api         ChatAPI
	model       string
	maxTokens   int
	temperature float32
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &ChatClient{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *ChatClient) Name() string { return "openai-chat:" + c.model }

// Complete sends prompt as a single user message and returns the first choice.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
