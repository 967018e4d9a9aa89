package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/secondbrain/internal/api"
	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/pagination"
)

type HistoryLog interface {
	All(ctx context.Context) []domain.ConversationTurn
	Page(ctx context.Context, cursor string, limit int) (*pagination.PageResult[domain.ConversationTurn], error)
	AppendMessage(ctx context.Context, role domain.Role, content string) (domain.ConversationTurn, error)
	Clear(ctx context.Context)
}

type HistoryHandler struct {
	log HistoryLog
}

func NewHistoryHandler(log HistoryLog) *HistoryHandler {
	return &HistoryHandler{log: log}
}

type SystemNoteRequest struct {
	Message string `json:"message"`
}

// List returns the whole conversation unless limit or cursor asks for a page.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limitParam := r.URL.Query().Get("limit")
	cursor := r.URL.Query().Get("cursor")

	if limitParam == "" && cursor == "" {
		api.Success(w, http.StatusOK, pagination.PageResult[domain.ConversationTurn]{
			Items: h.log.All(r.Context()),
		})
		return
	}

	limit := 0
	if limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			api.ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	page, err := h.log.Page(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, page)
}

func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.log.Clear(r.Context())
	api.Success(w, http.StatusOK, map[string]bool{"cleared": true})
}

// AppendSystem records a status note as a system turn.
func (h *HistoryHandler) AppendSystem(w http.ResponseWriter, r *http.Request) {
	var req SystemNoteRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	turn, err := h.log.AppendMessage(r.Context(), domain.RoleSystem, req.Message)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, turn)
}
