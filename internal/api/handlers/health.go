package handlers

import (
	"net/http"

	"github.com/cloo-solutions/secondbrain/internal/api"
)

// ReadinessReporter exposes initialization progress.
type ReadinessReporter interface {
	Ready() bool
	Status() string
	LastError() error
}

type HealthHandler struct {
	runtime ReadinessReporter
}

func NewHealthHandler(runtime ReadinessReporter) *HealthHandler {
	return &HealthHandler{runtime: runtime}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
	// InitError is the failure of the last initialization attempt while it is being retried.
	InitError string `json:"init_error,omitempty"`
}

// Health always answers 200; readiness is reported in the body.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Ready:   h.runtime.Ready(),
		Message: h.runtime.Status(),
	}
	if err := h.runtime.LastError(); err != nil {
		resp.InitError = err.Error()
	}
	api.Success(w, http.StatusOK, resp)
}
