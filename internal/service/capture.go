package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/logging"
	"github.com/cloo-solutions/secondbrain/internal/telemetry"
)

const DefaultMinCaptureChars = 10

// ReadinessChecker fails with NOT_READY until process initialization completes.
type ReadinessChecker interface {
	CheckReady() error
}

// TextExtractor is the OCR collaborator.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte, contentType string) (string, error)
}

// BatchEmbedder embeds all texts or fails without returning any vector.
type BatchEmbedder interface {
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkWriter stores a batch of chunks atomically.
type ChunkWriter interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) (int, error)
}

// CaptureArchive keeps the original capture next to the extracted text.
type CaptureArchive interface {
	Archive(ctx context.Context, sourceTag string, image []byte, contentType, text string) (string, error)
}

type CaptureConfig struct {
	MaxChunkChars   int
	MinCaptureChars int
}

// CaptureOrchestrator runs OCR, normalization, embedding and storage for one
// capture. Either every chunk of a capture is stored or none is.
type CaptureOrchestrator struct {
	runtime   ReadinessChecker
	extractor TextExtractor
	embedder  BatchEmbedder
	store     ChunkWriter
	archive   CaptureArchive
	uuidGen   UUIDGenerator
	now       func() time.Time
	cfg       CaptureConfig
	logger    *slog.Logger
}

func NewCaptureOrchestrator(runtime ReadinessChecker, extractor TextExtractor, embedder BatchEmbedder, store ChunkWriter, cfg CaptureConfig) *CaptureOrchestrator {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = DefaultMaxChunkChars
	}
	if cfg.MinCaptureChars <= 0 {
		cfg.MinCaptureChars = DefaultMinCaptureChars
	}
	return &CaptureOrchestrator{
		runtime:   runtime,
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		uuidGen:   &DefaultUUIDGenerator{},
		now:       time.Now,
		cfg:       cfg,
		logger:    logging.NewModuleLogger("capture"),
	}
}

// WithArchive enables archiving of successful captures.
func (o *CaptureOrchestrator) WithArchive(archive CaptureArchive) *CaptureOrchestrator {
	o.archive = archive
	return o
}

// Capture processes one payload. A capture with no meaningful text, including
// an empty payload, returns an unsuccessful outcome and a nil error. Any other failure returns the outcome
// together with the typed error.
func (o *CaptureOrchestrator) Capture(ctx context.Context, payload domain.CapturePayload) (*domain.CaptureOutcome, error) {
	outcome := &domain.CaptureOutcome{Stage: domain.CaptureStageIdle}

	if err := o.runtime.CheckReady(); err != nil {
		return o.fail(ctx, outcome, err)
	}

	createdAt := payload.CapturedAt.UTC()
	if payload.CapturedAt.IsZero() {
		createdAt = o.now().UTC()
	}
	sourceTag := strings.TrimSpace(payload.Source)
	if sourceTag == "" {
		sourceTag = fmt.Sprintf("capture-%d", createdAt.UnixMilli())
	}
	outcome.SourceTag = sourceTag

	ctx, span := telemetry.StartSpan(ctx, "CaptureOrchestrator.Capture", telemetry.SpanAttributes{
		SourceTag: sourceTag,
		Operation: "capture",
	})
	defer span.End()

	o.transition(ctx, outcome, domain.CaptureStageExtracting)
	raw, err := o.extract(ctx, payload)
	if err != nil {
		span.SetError(err)
		return o.fail(ctx, outcome, err)
	}

	o.transition(ctx, outcome, domain.CaptureStageChunking)
	clean := CleanText(raw)
	outcome.CharactersExtracted = utf8.RuneCountInString(clean)
	texts := chunkText(clean, ChunkConfigFor(o.cfg.MaxChunkChars))
	if countNonSpace(clean) < o.cfg.MinCaptureChars || len(texts) == 0 {
		outcome.Stage = domain.CaptureStageFailed
		outcome.Code = domain.ErrCodeNoTextExtracted
		outcome.Message = domain.ErrNoTextExtracted.Message
		o.logger.Info("capture skipped: no meaningful text", "source_tag", sourceTag, "characters", outcome.CharactersExtracted)
		return outcome, nil
	}

	o.transition(ctx, outcome, domain.CaptureStageEmbedding)
	vectors, err := o.embedder.EmbedAll(ctx, texts)
	if err != nil {
		span.SetError(err)
		return o.fail(ctx, outcome, err)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:        o.uuidGen.NewString(),
			Text:      text,
			Vector:    vectors[i],
			SourceTag: sourceTag,
			CreatedAt: createdAt,
		}
	}

	o.transition(ctx, outcome, domain.CaptureStageStoring)
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, outcome, domain.FromContext(ctx, err))
	}
	stored, err := o.store.Upsert(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return o.fail(ctx, outcome, err)
	}

	outcome.ChunksStored = stored
	outcome.Success = true
	outcome.Message = fmt.Sprintf("Captured %d characters", outcome.CharactersExtracted)
	o.transition(ctx, outcome, domain.CaptureStageDone)

	if o.archive != nil {
		url, err := o.archive.Archive(ctx, sourceTag, payload.Image, payload.ContentType, clean)
		if err != nil {
			o.logger.Warn("capture archive failed", "source_tag", sourceTag, "error", err)
			telemetry.CaptureError(ctx, err)
		} else {
			outcome.ArchiveURL = url
		}
	}

	o.logger.Info("capture stored", "source_tag", sourceTag, "characters", outcome.CharactersExtracted, "chunks", stored)
	return outcome, nil
}

// extract returns the raw text of a payload. OCR failures count as no text;
// only cancellation is reported as an error.
func (o *CaptureOrchestrator) extract(ctx context.Context, payload domain.CapturePayload) (string, error) {
	raw := payload.Text
	if len(payload.Image) == 0 || o.extractor == nil {
		return raw, nil
	}

	ocrText, err := o.extractor.Extract(ctx, payload.Image, payload.ContentType)
	if err != nil {
		if timeout := domain.FromContext(ctx, err); timeout != nil {
			return "", timeout
		}
		o.logger.Warn("ocr failed, treating capture as empty", "error", err)
		return raw, nil
	}
	if raw == "" {
		return ocrText, nil
	}
	return raw + "\n\n" + ocrText, nil
}

func (o *CaptureOrchestrator) transition(ctx context.Context, outcome *domain.CaptureOutcome, stage domain.CaptureStage) {
	outcome.Stage = stage
	o.logger.Debug("capture stage", "stage", stage, "source_tag", outcome.SourceTag)
	telemetry.AddBreadcrumb(ctx, "capture", string(stage))
}

func (o *CaptureOrchestrator) fail(ctx context.Context, outcome *domain.CaptureOutcome, err error) (*domain.CaptureOutcome, error) {
	failedAt := outcome.Stage
	outcome.Stage = domain.CaptureStageFailed
	outcome.Success = false
	outcome.ChunksStored = 0
	outcome.Code = domain.CodeOf(err)
	outcome.Message = errorMessage(err)

	if !domain.IsCode(err, domain.ErrCodeNotReady) && !domain.IsCode(err, domain.ErrCodeValidation) {
		o.logger.Error("capture failed", "stage", failedAt, "source_tag", outcome.SourceTag, "code", outcome.Code, "error", err)
	}
	return outcome, err
}

// errorMessage returns the message of err's outermost DomainError followed by its cause.
func errorMessage(err error) string {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return err.Error()
	}
	if de.Err == nil {
		return de.Message
	}
	return de.Message + ": " + de.Err.Error()
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
