package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Chunk is a unit of stored, embedded knowledge text.
type Chunk struct {
	ID        string
	Text      string
	Vector    []float32
	SourceTag string
	CreatedAt time.Time
}

// RetrievalResult pairs a stored chunk with its similarity to a query. Higher is more similar.
type RetrievalResult struct {
	Chunk Chunk
	Score float64
}

// StoreStats is a read-only aggregate over the knowledge store.
type StoreStats struct {
	TotalChunks   int64      `json:"total_chunks"`
	TotalSources  int64      `json:"total_sources"`
	Dimension     int        `json:"dimension"`
	Backend       string     `json:"backend"`
	Collection    string     `json:"collection,omitempty"`
	Status        string     `json:"status"`
	OldestCapture *time.Time `json:"oldest_capture,omitempty"`
	NewestCapture *time.Time `json:"newest_capture,omitempty"`
}

// ValidateChunk checks the invariants every stored chunk must satisfy.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.ID == "" {
		return ErrMissingChunkID
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyChunkText
	}
	if len(c.Vector) == 0 {
		return NewDomainError(ErrCodeValidation, "chunk vector cannot be empty")
	}
	return nil
}

// SortResults orders results by descending score. Ties go to the most recent
// chunk, then to the lower id so the order is total.
func SortResults(results []RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Chunk.CreatedAt.Equal(b.Chunk.CreatedAt) {
			return a.Chunk.CreatedAt.After(b.Chunk.CreatedAt)
		}
		return a.Chunk.ID < b.Chunk.ID
	})
}
