package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

func chunk(id string, vec []float32, source string, at time.Time) domain.Chunk {
	return domain.Chunk{ID: id, Text: "text " + id, Vector: vec, SourceTag: source, CreatedAt: at}
}

func TestStore_SearchEmpty(t *testing.T) {
	s := New()
	require.NoError(t, s.Prepare(context.Background(), 3))

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Prepare(ctx, 3))
	now := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		chunk("a", []float32{1, 0, 0}, "capture-1", now),
		chunk("b", []float32{0, 1, 0}, "capture-1", now),
		chunk("c", []float32{0.7, 0.7, 0}, "capture-2", now),
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "c", results[1].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Nil(t, results[0].Chunk.Vector)
}

func TestStore_UpsertIsIdempotentOnID(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk("a", []float32{1, 0}, "s", now)}))
	replacement := chunk("a", []float32{0, 1}, "s", now)
	replacement.Text = "replaced"
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{replacement}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalChunks)

	results, err := s.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "replaced", results[0].Chunk.Text)
}

func TestStore_UpsertRejectsMixedBatchAtomically(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Prepare(ctx, 2))
	now := time.Now().UTC()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", []float32{1, 0}, "s", now),
		chunk("b", []float32{1, 0, 0}, "s", now),
	})
	assert.ErrorIs(t, err, domain.ErrInconsistentVectors)

	stats, _ := s.Stats(ctx)
	assert.EqualValues(t, 0, stats.TotalChunks)
}

func TestStore_TieBreakByRecency(t *testing.T) {
	ctx := context.Background()
	s := New()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		chunk("old", []float32{1, 0}, "s1", older),
		chunk("new", []float32{1, 0}, "s2", newer),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "new", results[0].Chunk.ID)
	assert.Equal(t, "old", results[1].Chunk.ID)
}

func TestStore_StatsAndClear(t *testing.T) {
	ctx := context.Background()
	s := New()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		chunk("a", []float32{1, 0}, "capture-1", older),
		chunk("b", []float32{0, 1}, "capture-1", older),
		chunk("c", []float32{1, 1}, "capture-2", newer),
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalChunks)
	assert.EqualValues(t, 2, stats.TotalSources)
	assert.Equal(t, 2, stats.Dimension)
	require.NotNil(t, stats.OldestCapture)
	assert.True(t, older.Equal(*stats.OldestCapture))
	assert.True(t, newer.Equal(*stats.NewestCapture))

	dim, err := s.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	require.NoError(t, s.Clear(ctx, 4))

	results, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	dim, err = s.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dim)
}

func TestStore_PrepareInvalidDimension(t *testing.T) {
	assert.ErrorIs(t, New().Prepare(context.Background(), 0), ErrInvalidDimension)
}
