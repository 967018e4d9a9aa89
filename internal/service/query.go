package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/logging"
	"github.com/cloo-solutions/secondbrain/internal/telemetry"
)

// QueryRetriever fetches the chunks relevant to a question.
type QueryRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievalResult, error)
}

// Composer turns a question and its context into an answer.
type Composer interface {
	ComposeAnswer(ctx context.Context, query string, retrieved []domain.RetrievalResult, history []domain.ConversationTurn) (string, error)
}

// ConversationRecorder is the part of the conversation log a query touches.
type ConversationRecorder interface {
	Recent(n int) []domain.ConversationTurn
	AppendMessage(ctx context.Context, role domain.Role, content string) (domain.ConversationTurn, error)
}

// QueryOrchestrator answers one question: retrieve, compose, then log.
type QueryOrchestrator struct {
	runtime       ReadinessChecker
	retriever     QueryRetriever
	composer      Composer
	log           ConversationRecorder
	historyWindow int
	logger        *slog.Logger
}

func NewQueryOrchestrator(runtime ReadinessChecker, retriever QueryRetriever, composer Composer, log ConversationRecorder, historyWindow int) *QueryOrchestrator {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &QueryOrchestrator{
		runtime:       runtime,
		retriever:     retriever,
		composer:      composer,
		log:           log,
		historyWindow: historyWindow,
		logger:        logging.NewModuleLogger("query"),
	}
}

// Ask answers query using at most topK retrieved chunks (0 uses the default).
// The user turn is logged before answering; the answer or a system error turn follows it.
func (o *QueryOrchestrator) Ask(ctx context.Context, query string, topK int) (*domain.Answer, error) {
	if err := o.runtime.CheckReady(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "QueryOrchestrator.Ask", telemetry.SpanAttributes{Operation: "query"})
	defer span.End()

	history := o.log.Recent(o.historyWindow)
	if _, err := o.log.AppendMessage(ctx, domain.RoleUser, query); err != nil {
		return nil, err
	}

	o.transition(ctx, domain.QueryStageRetrieving)
	results, err := o.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		span.SetError(err)
		return nil, o.fail(ctx, domain.QueryStageRetrieving, err)
	}

	o.transition(ctx, domain.QueryStageComposing)
	answer, err := o.composer.ComposeAnswer(ctx, query, results, history)
	if err != nil {
		span.SetError(err)
		return nil, o.fail(ctx, domain.QueryStageComposing, err)
	}

	o.transition(ctx, domain.QueryStageLogging)
	if _, err := o.log.AppendMessage(ctx, domain.RoleAssistant, answer); err != nil {
		return nil, o.fail(ctx, domain.QueryStageLogging, err)
	}

	o.transition(ctx, domain.QueryStageDone)
	o.logger.Info("query answered", "retrieved", len(results), "answer_chars", len(answer))
	return &domain.Answer{Text: answer, Sources: buildSources(results)}, nil
}

func (o *QueryOrchestrator) transition(ctx context.Context, stage domain.QueryStage) {
	o.logger.Debug("query stage", "stage", stage)
	telemetry.AddBreadcrumb(ctx, "query", string(stage))
}

// fail records the failure as a system turn. The turn is written even when
// ctx has expired so the history explains the missing answer.
func (o *QueryOrchestrator) fail(ctx context.Context, stage domain.QueryStage, err error) error {
	o.logger.Error("query failed", "stage", stage, "code", domain.CodeOf(err), "error", err)
	if _, logErr := o.log.AppendMessage(context.WithoutCancel(ctx), domain.RoleSystem, "Error: "+errorMessage(err)); logErr != nil {
		o.logger.Error("failed to log query failure", "error", logErr)
	}
	o.transition(ctx, domain.QueryStageFailed)
	return err
}
