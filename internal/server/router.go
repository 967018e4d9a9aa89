package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/cloo-solutions/secondbrain/internal/api/handlers"
	"github.com/cloo-solutions/secondbrain/internal/api/middleware"
)

const defaultMaxBodyBytes int64 = 20 * 1024 * 1024

type RouterConfig struct {
	APIToken     string
	CORSOrigins  []string
	MaxBodyBytes int64

	HealthHandler    *handlers.HealthHandler
	CaptureHandler   *handlers.CaptureHandler
	QueryHandler     *handlers.QueryHandler
	HistoryHandler   *handlers.HistoryHandler
	KnowledgeHandler *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", cfg.HealthHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerToken(cfg.APIToken))

			r.Post("/capture", cfg.CaptureHandler.Capture)
			r.Post("/query", cfg.QueryHandler.Query)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", cfg.HistoryHandler.List)
				r.Delete("/", cfg.HistoryHandler.Clear)
				r.Post("/system", cfg.HistoryHandler.AppendSystem)
			})

			r.Get("/stats", cfg.KnowledgeHandler.Stats)
			r.Delete("/database", cfg.KnowledgeHandler.ClearDatabase)
		})
	})

	return r
}
