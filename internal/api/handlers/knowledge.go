package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/secondbrain/internal/api"
	"github.com/cloo-solutions/secondbrain/internal/domain"
)

type ReadinessChecker interface {
	CheckReady() error
}

type KnowledgeAdmin interface {
	Stats(ctx context.Context) (*domain.StoreStats, error)
	ClearAll(ctx context.Context) error
}

// KnowledgeHandler serves store statistics and the database wipe.
type KnowledgeHandler struct {
	runtime ReadinessChecker
	store   KnowledgeAdmin
}

func NewKnowledgeHandler(runtime ReadinessChecker, store KnowledgeAdmin) *KnowledgeHandler {
	return &KnowledgeHandler{runtime: runtime, store: store}
}

type ClearDatabaseResponse struct {
	Cleared bool   `json:"cleared"`
	Message string `json:"message"`
}

func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if err := h.runtime.CheckReady(); err != nil {
		api.HandleError(w, err)
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

func (h *KnowledgeHandler) ClearDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.runtime.CheckReady(); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.store.ClearAll(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ClearDatabaseResponse{Cleared: true, Message: "Database cleared"})
}
