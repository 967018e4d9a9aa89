package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

const probeText = "second brain embedding probe"

// EmbeddingModel is a backing model that maps text to a vector.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Name() string
}

// BatchEmbeddingModel is implemented by models that embed many texts in one call.
type BatchEmbeddingModel interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingProvider gates an EmbeddingModel behind an explicit load step and
// guarantees every vector it hands out has the model's dimension. One instance
// serves both capture and query.
type EmbeddingProvider struct {
	model  EmbeddingModel
	loaded atomic.Bool
}

// NewEmbeddingProvider creates a provider that is not loaded yet
func NewEmbeddingProvider(model EmbeddingModel) *EmbeddingProvider {
	return &EmbeddingProvider{model: model}
}

// Load probes the model once. It may be called again after a failure.
func (p *EmbeddingProvider) Load(ctx context.Context) error {
	if p.loaded.Load() {
		return nil
	}
	vec, err := p.model.Embed(ctx, probeText)
	if err != nil {
		return domain.Wrap(ctx, domain.ErrCodeEmbeddingUnavailable, "failed to load embedding model "+p.model.Name(), err)
	}
	if len(vec) != p.model.Dimension() {
		return domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingUnavailable,
			fmt.Sprintf("embedding model %s produced %d dimensions, expected %d", p.model.Name(), len(vec), p.model.Dimension()),
			domain.ErrDimensionMismatch)
	}
	p.loaded.Store(true)
	return nil
}

func (p *EmbeddingProvider) Loaded() bool {
	return p.loaded.Load()
}

// Dimension is D, the length of every vector this provider returns.
func (p *EmbeddingProvider) Dimension() int {
	return p.model.Dimension()
}

func (p *EmbeddingProvider) Name() string {
	return p.model.Name()
}

// Embed maps text to a vector of length Dimension().
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !p.loaded.Load() {
		return nil, domain.ErrEmbeddingNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.FromContext(ctx, err)
	}

	vec, err := p.model.Embed(ctx, text)
	if err != nil {
		return nil, domain.Wrap(ctx, domain.ErrCodeEmbeddingUnavailable, "embedding failed", err)
	}
	if len(vec) != p.model.Dimension() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingUnavailable,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(vec), p.model.Dimension()),
			domain.ErrDimensionMismatch)
	}
	return vec, nil
}

// EmbedAll embeds every text or none: the first failure discards the vectors computed so far.
func (p *EmbeddingProvider) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if batcher, ok := p.model.(BatchEmbeddingModel); ok && len(texts) > 1 {
		return p.embedBatch(ctx, batcher, texts)
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func (p *EmbeddingProvider) embedBatch(ctx context.Context, batcher BatchEmbeddingModel, texts []string) ([][]float32, error) {
	if !p.loaded.Load() {
		return nil, domain.ErrEmbeddingNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.FromContext(ctx, err)
	}

	vectors, err := batcher.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, domain.Wrap(ctx, domain.ErrCodeEmbeddingUnavailable, "embedding failed", err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.NewDomainError(domain.ErrCodeEmbeddingUnavailable,
			fmt.Sprintf("embedding model returned %d vectors for %d texts", len(vectors), len(texts)))
	}
	for _, vec := range vectors {
		if len(vec) != p.model.Dimension() {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingUnavailable,
				fmt.Sprintf("embedding has %d dimensions, expected %d", len(vec), p.model.Dimension()),
				domain.ErrDimensionMismatch)
		}
	}
	return vectors, nil
}
