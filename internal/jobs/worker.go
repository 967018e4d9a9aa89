package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cloo-solutions/secondbrain/internal/logging"
)

// JobProcessor runs one round of background work
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Completer is implemented by processors whose work can finish. The worker
// exits once Completed reports true after a round.
type Completer interface {
	Completed() bool
}

// Worker runs a JobProcessor immediately and then on every tick
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
	logger       *slog.Logger
}

// NewWorker creates a new Worker instance
func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
		logger:       logging.NewModuleLogger("worker").With("worker", name),
	}
}

// Start blocks until ctx is cancelled, Stop is called or the processor completes
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	w.logger.Info("worker started", "poll_interval", w.pollInterval)

	if w.runOnce(ctx) {
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			if w.runOnce(ctx) {
				return
			}
		}
	}
}

// runOnce reports whether the worker should exit
func (w *Worker) runOnce(ctx context.Context) bool {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Warn("job round failed", "error", err, "retry_in", w.pollInterval)
	}
	if c, ok := w.processor.(Completer); ok && c.Completed() {
		w.logger.Info("worker finished: work complete")
		return true
	}
	return false
}

// Done is closed when Start returns
func (w *Worker) Done() <-chan struct{} {
	return w.doneChan
}

// Stop gracefully stops the worker. It is safe to call after the worker finished.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
