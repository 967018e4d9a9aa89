package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

// MockEmbeddingModel is a mock implementation of EmbeddingModel
type MockEmbeddingModel struct {
	mock.Mock
}

func (m *MockEmbeddingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingModel) Dimension() int {
	return m.Called().Int(0)
}

func (m *MockEmbeddingModel) Name() string {
	return "mock"
}

// MockVectorBackend is a mock implementation of VectorBackend
type MockVectorBackend struct {
	mock.Mock
}

func (m *MockVectorBackend) Name() string { return "mock" }

func (m *MockVectorBackend) Prepare(ctx context.Context, dimension int) error {
	return m.Called(ctx, dimension).Error(0)
}

func (m *MockVectorBackend) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *MockVectorBackend) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievalResult, error) {
	args := m.Called(ctx, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalResult), args.Error(1)
}

func (m *MockVectorBackend) Stats(ctx context.Context) (*domain.StoreStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoreStats), args.Error(1)
}

func (m *MockVectorBackend) Clear(ctx context.Context, dimension int) error {
	return m.Called(ctx, dimension).Error(0)
}

func (m *MockVectorBackend) Dimension(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockLanguageModel is a mock implementation of LanguageModel
type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockTextExtractor is a mock implementation of TextExtractor
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, image []byte, contentType string) (string, error) {
	args := m.Called(ctx, image, contentType)
	return args.String(0), args.Error(1)
}

// MockBatchEmbedder is a mock implementation of BatchEmbedder
type MockBatchEmbedder struct {
	mock.Mock
}

func (m *MockBatchEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockChunkWriter is a mock implementation of ChunkWriter
type MockChunkWriter struct {
	mock.Mock
}

func (m *MockChunkWriter) Upsert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	args := m.Called(ctx, chunks)
	return args.Int(0), args.Error(1)
}

// MockCaptureArchive is a mock implementation of CaptureArchive
type MockCaptureArchive struct {
	mock.Mock
}

func (m *MockCaptureArchive) Archive(ctx context.Context, sourceTag string, image []byte, contentType, text string) (string, error) {
	args := m.Called(ctx, sourceTag, image, contentType, text)
	return args.String(0), args.Error(1)
}

// MockQueryRetriever is a mock implementation of QueryRetriever
type MockQueryRetriever struct {
	mock.Mock
}

func (m *MockQueryRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievalResult), args.Error(1)
}

// MockComposer is a mock implementation of Composer
type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) ComposeAnswer(ctx context.Context, query string, retrieved []domain.RetrievalResult, history []domain.ConversationTurn) (string, error) {
	args := m.Called(ctx, query, retrieved, history)
	return args.String(0), args.Error(1)
}

// MockTurnStore is a mock implementation of TurnStore
type MockTurnStore struct {
	mock.Mock
}

func (m *MockTurnStore) Append(ctx context.Context, turn domain.ConversationTurn) error {
	return m.Called(ctx, turn).Error(0)
}

func (m *MockTurnStore) List(ctx context.Context) ([]domain.ConversationTurn, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversationTurn), args.Error(1)
}

func (m *MockTurnStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// readiness is a ReadinessChecker with a fixed answer.
type readiness struct {
	err error
}

func (r readiness) CheckReady() error { return r.err }

var (
	alwaysReady = readiness{}
	neverReady  = readiness{err: domain.NotReady("Loading embedding model...")}
)

// sequentialUUIDs returns predictable ids.
type sequentialUUIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequentialUUIDs) NewString() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.n)
}

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
		}
		inWord = true
	}
	return n
}

func (wordCounter) Truncate(text string, maxTokens int) string {
	words := 0
	inWord := false
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			words++
			if words > maxTokens {
				return text[:i]
			}
		}
		inWord = true
	}
	return text
}
