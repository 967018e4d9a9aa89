package service

import (
	"context"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

const (
	DefaultTopK = 3
	DefaultMaxK = 10
)

// Embedder produces query vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher is the read side of the knowledge store.
type ChunkSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error)
}

// Retriever embeds a query and fetches the most similar stored chunks.
type Retriever struct {
	embedder Embedder
	store    ChunkSearcher
	topK     int
	maxK     int
}

// NewRetriever creates a retriever. Non-positive limits fall back to the defaults.
func NewRetriever(embedder Embedder, store ChunkSearcher, topK, maxK int) *Retriever {
	if maxK <= 0 {
		maxK = DefaultMaxK
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > maxK {
		topK = maxK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK, maxK: maxK}
}

// EffectiveK resolves a caller-requested k against the default and the upper bound.
func (r *Retriever) EffectiveK(k int) int {
	if k <= 0 {
		return r.topK
	}
	if k > r.maxK {
		return r.maxK
	}
	return k
}

// Retrieve returns up to k results for query. Embedding failures become
// RETRIEVAL_UNAVAILABLE; store failures pass through unchanged.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.Wrap(ctx, domain.ErrCodeRetrievalUnavailable, "failed to embed query", err)
	}
	return r.store.Search(ctx, vec, r.EffectiveK(k))
}
