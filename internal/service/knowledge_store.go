package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/logging"
)

// VectorBackend is an external vector database. Implementations apply an
// Upsert batch atomically and never return vectors from Search.
type VectorBackend interface {
	Name() string
	// Prepare creates the collection or table for vectors of the given dimension if missing.
	Prepare(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error)
	Stats(ctx context.Context) (*domain.StoreStats, error)
	// Clear removes every chunk and leaves the store ready for vectors of the given dimension.
	Clear(ctx context.Context, dimension int) error
	// Dimension reports the dimensionality of stored vectors, or 0 when unknown.
	Dimension(ctx context.Context) (int, error)
}

// KnowledgeStore serializes writes against each other and against searches.
// Searches and stats run concurrently with each other.
type KnowledgeStore struct {
	mu        sync.RWMutex
	backend   VectorBackend
	dimension int
	logger    *slog.Logger
}

// NewKnowledgeStore wraps backend for vectors of the given dimension
func NewKnowledgeStore(backend VectorBackend, dimension int) *KnowledgeStore {
	return &KnowledgeStore{
		backend:   backend,
		dimension: dimension,
		logger:    logging.NewModuleLogger("knowledge_store"),
	}
}

func (s *KnowledgeStore) Backend() string {
	return s.backend.Name()
}

// Prepare readies the backend and refuses to start against a store written by
// a model of a different dimensionality.
func (s *KnowledgeStore) Prepare(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Prepare(ctx, s.dimension); err != nil {
		return domain.Wrap(ctx, domain.ErrCodeStoreUnavailable, "failed to prepare knowledge store", err)
	}
	return s.checkDimension(ctx)
}

func (s *KnowledgeStore) checkDimension(ctx context.Context) error {
	stored, err := s.backend.Dimension(ctx)
	if err != nil {
		return domain.Wrap(ctx, domain.ErrCodeStoreUnavailable, "failed to read stored dimension", err)
	}
	if stored != 0 && stored != s.dimension {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStoreUnavailable,
			fmt.Sprintf("knowledge store holds %d-dimensional vectors, embedding provider produces %d", stored, s.dimension),
			domain.ErrDimensionMismatch)
	}
	return nil
}

// Upsert stores chunks as one batch, replacing any chunk with the same id.
// Nothing is written unless every chunk is valid.
func (s *KnowledgeStore) Upsert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	for i := range chunks {
		if err := domain.ValidateChunk(&chunks[i]); err != nil {
			return 0, domain.NewDomainErrorWithCause(domain.ErrCodeStoreUnavailable, "write rejected", err)
		}
		if len(chunks[i].Vector) != s.dimension {
			return 0, domain.NewDomainErrorWithCause(domain.ErrCodeStoreUnavailable,
				fmt.Sprintf("write rejected: chunk %s has %d dimensions, store expects %d", chunks[i].ID, len(chunks[i].Vector), s.dimension),
				domain.ErrDimensionMismatch)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, domain.FromContext(ctx, err)
	}
	if err := s.checkDimension(ctx); err != nil {
		return 0, err
	}
	if err := s.backend.Upsert(ctx, chunks); err != nil {
		return 0, domain.Wrap(ctx, domain.ErrCodeStoreUnavailable, "failed to store chunks", err)
	}

	s.logger.Debug("chunks upserted", "count", len(chunks), "backend", s.backend.Name())
	return len(chunks), nil
}

// Search returns at most k results, most similar first. An empty store yields no results.
func (s *KnowledgeStore) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return []domain.RetrievalResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStoreUnavailable,
			fmt.Sprintf("query vector has %d dimensions, store expects %d", len(vector), s.dimension),
			domain.ErrDimensionMismatch)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.backend.Search(ctx, vector, k)
	if err != nil {
		return nil, domain.Wrap(ctx, domain.ErrCodeStoreUnavailable, "search failed", err)
	}

	domain.SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Chunk.Vector = nil
	}
	if results == nil {
		results = []domain.RetrievalResult{}
	}
	return results, nil
}

// Stats is a read-only aggregate over the store.
func (s *KnowledgeStore) Stats(ctx context.Context) (*domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, err := s.backend.Stats(ctx)
	if err != nil {
		return nil, domain.Wrap(ctx, domain.ErrCodeStoreUnavailable, "failed to read store stats", err)
	}
	stats.Backend = s.backend.Name()
	if stats.Dimension == 0 {
		stats.Dimension = s.dimension
	}
	return stats, nil
}

// ClearAll removes every chunk. It never interleaves with an in-flight Upsert.
func (s *KnowledgeStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Clear(ctx, s.dimension); err != nil {
		return domain.Wrap(ctx, domain.ErrCodeStoreUnavailable, "failed to clear knowledge store", err)
	}
	s.logger.Info("knowledge store cleared", "backend", s.backend.Name())
	return nil
}
