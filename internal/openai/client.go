package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the local hashing model so stores stay interchangeable
	DefaultEmbeddingDimensions = 384
	// maxBatchInputs stays under the embeddings endpoint's per-request input cap
	maxBatchInputs = 512
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrShortResponse   = errors.New("embeddings response is missing inputs")
)

// EmbeddingAPI returns one vector per input, in input order.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Client is an embedding model backed by an OpenAI-compatible endpoint
// (OpenAI itself, Ollama, LM Studio, vLLM).
type Client struct {
	api        EmbeddingAPI
	model      string
	dimensions int
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIAdapter creates an adapter. An empty baseURL targets api.openai.com.
func NewOpenAIAdapter(apiKey, baseURL string, model openai.EmbeddingModel, dimensions int) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	}
	// Only the text-embedding-3 family accepts a shortened output size.
	if strings.HasPrefix(string(a.model), "text-embedding-3") {
		req.Dimensions = a.dimensions
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings response has out-of-range index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a client for api.openai.com with the default model.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.BaseURL, model, dimensions),
		model:      string(model),
		dimensions: dimensions,
	}
}

func (c *Client) Name() string { return "openai:" + c.model }

func (c *Client) Dimension() int { return c.dimensions }

// Embed generates an embedding for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts with as few requests as possible. Any failure fails the whole batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchInputs {
		end := min(start+maxBatchInputs, len(texts))

		batch, err := c.api.CreateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding: %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: got %d, sent %d", ErrShortResponse, len(batch), end-start)
		}
		for i, vec := range batch {
			if vec == nil {
				return nil, fmt.Errorf("%w: input %d", ErrShortResponse, start+i)
			}
			if len(vec) != c.dimensions {
				return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(vec), c.dimensions)
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
