package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/logging"
)

const (
	StatusInitializing = "Initializing..."
	StatusReady        = "All systems ready!"
)

// InitStep is one named part of process initialization.
type InitStep struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runtime is the process-scoped readiness state shared by both orchestrators.
// Requests arriving before every step has succeeded fail fast with NOT_READY.
type Runtime struct {
	steps  []InitStep
	done   map[string]bool
	initMu sync.Mutex

	ready     atomic.Bool
	statusMu  sync.RWMutex
	status    string
	lastError error

	logger *slog.Logger
}

func NewRuntime(steps ...InitStep) *Runtime {
	return &Runtime{
		steps:  steps,
		done:   make(map[string]bool, len(steps)),
		status: StatusInitializing,
		logger: logging.NewModuleLogger("runtime"),
	}
}

// Initialize runs every step that has not succeeded yet, in order, stopping
// at the first failure. Once all steps succeed the runtime is ready and
// further calls return nil immediately.
func (r *Runtime) Initialize(ctx context.Context) error {
	if r.ready.Load() {
		return nil
	}

	r.initMu.Lock()
	defer r.initMu.Unlock()

	if r.ready.Load() {
		return nil
	}

	for _, step := range r.steps {
		if r.done[step.Name] {
			continue
		}
		r.setStatus("Loading "+step.Name+"...", nil)
		if err := step.Run(ctx); err != nil {
			r.setStatus("Error: "+err.Error(), err)
			r.logger.Warn("initialization step failed", "step", step.Name, "error", err)
			return err
		}
		r.done[step.Name] = true
		r.logger.Info("initialization step complete", "step", step.Name)
	}

	r.setStatus(StatusReady, nil)
	r.ready.Store(true)
	r.logger.Info("runtime ready")
	return nil
}

// ProcessJobs lets a jobs.Worker retry initialization until it succeeds.
func (r *Runtime) ProcessJobs(ctx context.Context) error {
	return r.Initialize(ctx)
}

// Completed reports readiness to the driving worker.
func (r *Runtime) Completed() bool {
	return r.ready.Load()
}

func (r *Runtime) Ready() bool {
	return r.ready.Load()
}

// Status returns the human-readable initialization message.
func (r *Runtime) Status() string {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// LastError returns the most recent initialization failure, if any.
func (r *Runtime) LastError() error {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.lastError
}

// CheckReady returns NOT_READY carrying the current status until initialization completes.
func (r *Runtime) CheckReady() error {
	if r.ready.Load() {
		return nil
	}
	return domain.NotReady(r.Status())
}

func (r *Runtime) setStatus(status string, err error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	r.status = status
	r.lastError = err
}
