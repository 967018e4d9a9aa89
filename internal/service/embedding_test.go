package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

func loadedProvider(t *testing.T, model *MockEmbeddingModel) *EmbeddingProvider {
	t.Helper()
	model.On("Dimension").Return(3)
	model.On("Embed", mock.Anything, probeText).Return([]float32{1, 0, 0}, nil).Once()
	p := NewEmbeddingProvider(model)
	require.NoError(t, p.Load(context.Background()))
	return p
}

func TestEmbeddingProvider_NotLoaded(t *testing.T) {
	model := new(MockEmbeddingModel)
	p := NewEmbeddingProvider(model)

	_, err := p.Embed(context.Background(), "hello")
	assert.True(t, domain.IsCode(err, domain.ErrCodeEmbeddingUnavailable))
	assert.False(t, p.Loaded())
	model.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestEmbeddingProvider_LoadFailureCanRetry(t *testing.T) {
	model := new(MockEmbeddingModel)
	model.On("Dimension").Return(3)
	model.On("Embed", mock.Anything, probeText).Return(nil, errors.New("connection refused")).Once()
	model.On("Embed", mock.Anything, probeText).Return([]float32{0, 1, 0}, nil).Once()

	p := NewEmbeddingProvider(model)
	err := p.Load(context.Background())
	assert.True(t, domain.IsCode(err, domain.ErrCodeEmbeddingUnavailable))
	assert.False(t, p.Loaded())

	require.NoError(t, p.Load(context.Background()))
	assert.True(t, p.Loaded())
	require.NoError(t, p.Load(context.Background()), "load is idempotent")
	model.AssertExpectations(t)
}

func TestEmbeddingProvider_LoadRejectsWrongDimension(t *testing.T) {
	model := new(MockEmbeddingModel)
	model.On("Dimension").Return(384)
	model.On("Embed", mock.Anything, probeText).Return([]float32{1, 2}, nil)

	err := NewEmbeddingProvider(model).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbeddingProvider_Embed(t *testing.T) {
	model := new(MockEmbeddingModel)
	p := loadedProvider(t, model)

	t.Run("success", func(t *testing.T) {
		model.On("Embed", mock.Anything, "sky").Return([]float32{0.6, 0.8, 0}, nil).Once()
		vec, err := p.Embed(context.Background(), "sky")
		require.NoError(t, err)
		assert.Len(t, vec, p.Dimension())
	})

	t.Run("model error", func(t *testing.T) {
		model.On("Embed", mock.Anything, "boom").Return(nil, errors.New("model crashed")).Once()
		_, err := p.Embed(context.Background(), "boom")
		assert.True(t, domain.IsCode(err, domain.ErrCodeEmbeddingUnavailable))
		assert.ErrorContains(t, err, "model crashed")
	})

	t.Run("wrong dimension", func(t *testing.T) {
		model.On("Embed", mock.Anything, "short").Return([]float32{1}, nil).Once()
		_, err := p.Embed(context.Background(), "short")
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Embed(ctx, "late")
		assert.True(t, domain.IsCode(err, domain.ErrCodeTimeout))
	})
}

func TestEmbeddingProvider_EmbedAllIsAllOrNothing(t *testing.T) {
	model := new(MockEmbeddingModel)
	p := loadedProvider(t, model)

	model.On("Embed", mock.Anything, "one").Return([]float32{1, 0, 0}, nil).Once()
	model.On("Embed", mock.Anything, "two").Return(nil, errors.New("rate limited")).Once()

	vectors, err := p.EmbedAll(context.Background(), []string{"one", "two", "three"})
	assert.Error(t, err)
	assert.Nil(t, vectors)
	model.AssertNotCalled(t, "Embed", mock.Anything, "three")
}

type mockBatchModel struct {
	*MockEmbeddingModel
}

func (m mockBatchModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func TestEmbeddingProvider_EmbedAllUsesBatchModel(t *testing.T) {
	model := mockBatchModel{new(MockEmbeddingModel)}
	model.On("Dimension").Return(3)
	model.On("Embed", mock.Anything, probeText).Return([]float32{1, 0, 0}, nil).Once()
	p := NewEmbeddingProvider(model)
	require.NoError(t, p.Load(context.Background()))

	model.On("EmbedBatch", mock.Anything, []string{"one", "two"}).Return([][]float32{{1, 0, 0}, {0, 1, 0}}, nil).Once()
	vectors, err := p.EmbedAll(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)

	model.On("EmbedBatch", mock.Anything, []string{"three", "four"}).Return([][]float32{{1, 0, 0}, {0, 1}}, nil).Once()
	vectors, err = p.EmbedAll(context.Background(), []string{"three", "four"})
	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	model.On("EmbedBatch", mock.Anything, []string{"five", "six"}).Return(nil, errors.New("rate limited")).Once()
	_, err = p.EmbedAll(context.Background(), []string{"five", "six"})
	assert.True(t, domain.IsCode(err, domain.ErrCodeEmbeddingUnavailable))

	model.AssertNotCalled(t, "Embed", mock.Anything, "one")
}
