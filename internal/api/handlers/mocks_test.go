package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/pagination"
)

type MockCaptureService struct {
	mock.Mock
}

func (m *MockCaptureService) Capture(ctx context.Context, payload domain.CapturePayload) (*domain.CaptureOutcome, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CaptureOutcome), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Ask(ctx context.Context, query string, topK int) (*domain.Answer, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

type MockHistoryLog struct {
	mock.Mock
}

func (m *MockHistoryLog) All(ctx context.Context) []domain.ConversationTurn {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.ConversationTurn)
}

func (m *MockHistoryLog) Page(ctx context.Context, cursor string, limit int) (*pagination.PageResult[domain.ConversationTurn], error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[domain.ConversationTurn]), args.Error(1)
}

func (m *MockHistoryLog) AppendMessage(ctx context.Context, role domain.Role, content string) (domain.ConversationTurn, error) {
	args := m.Called(ctx, role, content)
	return args.Get(0).(domain.ConversationTurn), args.Error(1)
}

func (m *MockHistoryLog) Clear(ctx context.Context) {
	m.Called(ctx)
}

type MockKnowledgeAdmin struct {
	mock.Mock
}

func (m *MockKnowledgeAdmin) Stats(ctx context.Context) (*domain.StoreStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoreStats), args.Error(1)
}

func (m *MockKnowledgeAdmin) ClearAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type stubRuntime struct {
	ready   bool
	status  string
	lastErr error
}

func (s stubRuntime) Ready() bool      { return s.ready }
func (s stubRuntime) Status() string   { return s.status }
func (s stubRuntime) LastError() error { return s.lastErr }

func (s stubRuntime) CheckReady() error {
	if !s.ready {
		return domain.NotReady(s.status)
	}
	return nil
}
