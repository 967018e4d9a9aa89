// Package memory is an in-process vector backend using brute-force cosine similarity.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

const backendName = "memory"

var ErrInvalidDimension = errors.New("memory: invalid dimension")

type record struct {
	chunk domain.Chunk
	norm  float64
}

// Store keeps chunks in insertion order, keyed by id.
type Store struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]record
	order     []string
}

func New() *Store {
	return &Store{records: make(map[string]record)}
}

func (s *Store) Name() string { return backendName }

func (s *Store) Prepare(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		s.dimension = dimension
	}
	return nil
}

// Upsert validates the whole batch before applying any of it.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	for i := range chunks {
		if dim == 0 {
			dim = len(chunks[i].Vector)
		}
		if len(chunks[i].Vector) != dim {
			return fmt.Errorf("memory: chunk %s: %w", chunks[i].ID, domain.ErrInconsistentVectors)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.dimension = dim
	for _, c := range chunks {
		stored := c
		stored.Vector = append([]float32(nil), c.Vector...)
		if _, exists := s.records[c.ID]; !exists {
			s.order = append(s.order, c.ID)
		}
		s.records[c.ID] = record{chunk: stored, norm: norm(stored.Vector)}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.records) == 0 {
		return []domain.RetrievalResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qnorm := norm(vector)
	results := make([]domain.RetrievalResult, 0, len(s.records))
	for _, id := range s.order {
		rec := s.records[id]
		chunk := rec.chunk
		chunk.Vector = nil
		results = append(results, domain.RetrievalResult{
			Chunk: chunk,
			Score: cosine(vector, rec.chunk.Vector, qnorm, rec.norm),
		})
	}

	domain.SortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *Store) Stats(_ context.Context) (*domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.StoreStats{
		TotalChunks: int64(len(s.records)),
		Dimension:   s.dimension,
		Status:      "green",
	}
	sources := make(map[string]struct{})
	var oldest, newest time.Time
	for _, rec := range s.records {
		sources[rec.chunk.SourceTag] = struct{}{}
		if oldest.IsZero() || rec.chunk.CreatedAt.Before(oldest) {
			oldest = rec.chunk.CreatedAt
		}
		if rec.chunk.CreatedAt.After(newest) {
			newest = rec.chunk.CreatedAt
		}
	}
	stats.TotalSources = int64(len(sources))
	if len(s.records) > 0 {
		stats.OldestCapture = &oldest
		stats.NewestCapture = &newest
	}
	return stats, nil
}

func (s *Store) Clear(_ context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]record)
	s.order = nil
	s.dimension = dimension
	return nil
}

// Dimension reports 0 while the store is empty so any model may start writing.
func (s *Store) Dimension(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return 0, nil
	}
	return s.dimension, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
