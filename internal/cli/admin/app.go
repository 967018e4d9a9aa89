package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/secondbrain/internal/anthropic"
	"github.com/cloo-solutions/secondbrain/internal/api/handlers"
	"github.com/cloo-solutions/secondbrain/internal/config"
	"github.com/cloo-solutions/secondbrain/internal/database"
	"github.com/cloo-solutions/secondbrain/internal/embedding"
	"github.com/cloo-solutions/secondbrain/internal/history"
	"github.com/cloo-solutions/secondbrain/internal/jobs"
	"github.com/cloo-solutions/secondbrain/internal/logging"
	"github.com/cloo-solutions/secondbrain/internal/ocr"
	"github.com/cloo-solutions/secondbrain/internal/openai"
	"github.com/cloo-solutions/secondbrain/internal/repository"
	"github.com/cloo-solutions/secondbrain/internal/server"
	"github.com/cloo-solutions/secondbrain/internal/service"
	"github.com/cloo-solutions/secondbrain/internal/storage"
	"github.com/cloo-solutions/secondbrain/internal/tokenizer"
	"github.com/cloo-solutions/secondbrain/internal/vectorstore/memory"
	"github.com/cloo-solutions/secondbrain/internal/vectorstore/qdrant"
)

// App is one fully wired pipeline: both orchestrators, their collaborators and
// the worker that drives initialization.
type App struct {
	cfg     *config.Config
	Runtime *service.Runtime
	Store   *service.KnowledgeStore
	History *service.ConversationLog
	Capture *service.CaptureOrchestrator
	Query   *service.QueryOrchestrator

	worker  *jobs.Worker
	started bool
	closers []func() error
	logger  *slog.Logger
}

type AppOptions struct {
	SkipMigrations bool
}

// NewApp connects every configured backend and restores the conversation log
// before any route can append to it. Model loading and store preparation are
// deferred to Start, which retries them until they succeed.
func NewApp(ctx context.Context, cfg *config.Config, opts AppOptions) (*App, error) {
	app := &App{cfg: cfg, logger: logging.NewModuleLogger("app")}

	backend, err := app.vectorBackend(ctx, opts)
	if err != nil {
		app.Close()
		return nil, err
	}

	provider := service.NewEmbeddingProvider(embeddingModel(cfg))
	store := service.NewKnowledgeStore(backend, provider.Dimension())

	var turns service.TurnStore
	if cfg.HistoryPath != "" {
		sqlite, err := history.Open(cfg.HistoryPath)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, sqlite.Close)
		turns = sqlite
	}
	convo := service.NewConversationLog(turns)
	if err := convo.Load(ctx); err != nil {
		app.Close()
		return nil, err
	}

	model, err := languageModel(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	templates, err := service.LoadPromptTemplates(cfg.PromptsFile)
	if err != nil {
		app.Close()
		return nil, err
	}

	runtime := service.NewRuntime(
		service.InitStep{Name: "embedding model", Run: provider.Load},
		service.InitStep{Name: "knowledge store", Run: store.Prepare},
	)

	composer := service.NewAnswerComposer(model, tokenizer.Default(), service.ComposerConfig{
		Templates:        templates,
		HistoryWindow:    cfg.HistoryWindow,
		MaxContextTokens: cfg.MaxContextTokens,
	})
	retriever := service.NewRetriever(provider, store, cfg.TopK, cfg.MaxTopK)

	capture := service.NewCaptureOrchestrator(runtime, app.extractor(), provider, store, service.CaptureConfig{
		MaxChunkChars:   cfg.ChunkMaxChars,
		MinCaptureChars: cfg.MinCaptureChars,
	})
	if cfg.HasS3() {
		archive, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		app.logger.Info("capture archive ready", "bucket", cfg.S3Bucket)
		capture.WithArchive(archive)
	}

	app.Runtime = runtime
	app.Store = store
	app.History = convo
	app.Capture = capture
	app.Query = service.NewQueryOrchestrator(runtime, retriever, composer, convo, cfg.HistoryWindow)
	app.worker = jobs.NewWorker("initializer", runtime, cfg.InitRetryInterval)

	app.logger.Info("pipeline wired",
		"backend", store.Backend(),
		"embedding", provider.Name(),
		"dimension", provider.Dimension(),
	)
	return app, nil
}

// Start launches initialization in the background. Requests made before it
// completes fail with NOT_READY.
func (a *App) Start(ctx context.Context) {
	a.started = true
	go a.worker.Start(ctx)
}

// Router builds the HTTP surface over this app.
func (a *App) Router() http.Handler {
	return server.NewRouter(server.RouterConfig{
		APIToken:         a.cfg.APIToken,
		CORSOrigins:      a.cfg.CORSOrigins,
		MaxBodyBytes:     a.cfg.MaxBodyBytes,
		HealthHandler:    handlers.NewHealthHandler(a.Runtime),
		CaptureHandler:   handlers.NewCaptureHandler(a.Capture, a.cfg.CaptureTimeout),
		QueryHandler:     handlers.NewQueryHandler(a.Query, a.cfg.QueryTimeout),
		HistoryHandler:   handlers.NewHistoryHandler(a.History),
		KnowledgeHandler: handlers.NewKnowledgeHandler(a.Runtime, a.Store),
	})
}

// Close stops the initializer and releases backend connections.
func (a *App) Close() {
	if a.started {
		a.worker.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("failed to release resources", "error", err)
	}
}

func (a *App) vectorBackend(ctx context.Context, opts AppOptions) (service.VectorBackend, error) {
	cfg := a.cfg
	switch cfg.VectorBackend {
	case config.BackendMemory:
		a.logger.Warn("using the in-memory vector backend; knowledge is lost on restart")
		return memory.New(), nil

	case config.BackendPgvector:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolOptions{ConnectTimeout: cfg.DatabaseConnectTimeout})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		if cfg.AutoMigrate && !opts.SkipMigrations {
			if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, database.Up); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		a.logger.Info("connected to database")
		return repository.NewChunkRepository(pool), nil

	default:
		store, err := qdrant.Dial(qdrant.Config{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantTLS,
			Collection: cfg.QdrantCollection,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
}

func (a *App) extractor() service.TextExtractor {
	tesseract := ocr.NewTesseract(a.cfg.OCRCommand, a.cfg.OCRLanguage)
	if !tesseract.Available() {
		a.logger.Warn("ocr engine not found, image captures will yield no text", "command", a.cfg.OCRCommand)
		return ocr.Disabled{}
	}
	return tesseract
}

func embeddingModel(cfg *config.Config) service.EmbeddingModel {
	if cfg.EmbeddingProvider == config.EmbeddingOpenAI {
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	}
	return embedding.NewHashingEmbedder(cfg.EmbeddingDimensions)
}

func languageModel(cfg *config.Config) (service.LanguageModel, error) {
	if cfg.LLMProvider == config.LLMAnthropic {
		client, err := anthropic.New(anthropic.Config{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.LLMMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		return client, nil
	}
	return openai.NewChatClient(openai.ChatConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	}), nil
}
