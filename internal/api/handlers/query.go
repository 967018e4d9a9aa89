package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/secondbrain/internal/api"
	"github.com/cloo-solutions/secondbrain/internal/domain"
)

type QueryService interface {
	Ask(ctx context.Context, query string, topK int) (*domain.Answer, error)
}

type QueryHandler struct {
	svc     QueryService
	timeout time.Duration
}

func NewQueryHandler(svc QueryService, timeout time.Duration) *QueryHandler {
	return &QueryHandler{svc: svc, timeout: timeout}
}

type QueryRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"top_k,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}
	if req.TopK < 0 {
		api.ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "top_k cannot be negative")
		return
	}

	ctx, cancel := requestContext(r, req.TimeoutMS, h.timeout)
	defer cancel()

	answer, err := h.svc.Ask(ctx, req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answer)
}
