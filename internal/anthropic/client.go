// Package anthropic is a language model backend on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 1024
)

// ErrNoTextContent is returned when a response carries no text block
var ErrNoTextContent = errors.New("anthropic: response contained no text")

type Config struct {
	APIKey    string
	BaseURL   string // optional, for tests against a local server
	Model     string
	MaxTokens int
	System    string
}

// Client completes prompts with a single non-streaming Messages call.
type Client struct {
	client    anthropicsdk.Client
	model     string
	maxTokens int64
	system    string
}

// New creates a client. Returns an error if the API key is missing.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: missing api key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Client{
		client:    anthropicsdk.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		system:    cfg.System,
	}, nil
}

func (c *Client) Name() string { return "anthropic:" + c.model }

// Complete sends prompt as one user message and joins the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
		},
	}
	if c.system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: c.system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: messages request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoTextContent
	}
	return sb.String(), nil
}
