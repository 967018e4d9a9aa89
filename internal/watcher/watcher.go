// Package watcher ingests screenshots and text files dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/logging"
	"github.com/cloo-solutions/secondbrain/internal/telemetry"
)

const (
	DefaultDebounce      = 500 * time.Millisecond
	DefaultTimeout       = 60 * time.Second
	DefaultRetryInterval = time.Second
	DefaultRetryWindow   = 10 * time.Minute
)

// Capturer is satisfied by service.CaptureOrchestrator.
type Capturer interface {
	Capture(ctx context.Context, payload domain.CapturePayload) (*domain.CaptureOutcome, error)
}

type Config struct {
	Dir      string
	Debounce time.Duration
	// Timeout bounds each capture attempt.
	Timeout time.Duration
	// RetryInterval is the first wait after a NOT_READY capture. Waits grow
	// exponentially up to 30s until RetryWindow has passed.
	RetryInterval time.Duration
	RetryWindow   time.Duration
}

// Watcher feeds new or rewritten files to the capture pipeline once they have
// been quiet for the debounce delay.
type Watcher struct {
	cfg      Config
	capturer Capturer
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	timers  map[string]*time.Timer
	timerMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func New(cfg Config, capturer Capturer) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.RetryWindow <= 0 {
		cfg.RetryWindow = DefaultRetryWindow
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		cfg:      cfg,
		capturer: capturer,
		fsw:      fsw,
		logger:   logging.NewModuleLogger("watcher").With("dir", cfg.Dir),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. Files already in the directory are not ingested.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	if err := w.fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop()
	w.logger.Info("watching for captures")
	return nil
}

// Stop ends the watch loop and waits for in-flight captures.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.fsw.Close()

		w.timerMu.Lock()
		for path, timer := range w.timers {
			if timer.Stop() {
				w.wg.Done()
			}
			delete(w.timers, path)
		}
		w.timerMu.Unlock()

		w.wg.Wait()
		w.logger.Info("watcher stopped")
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if Supported(event.Name) {
					w.schedule(event.Name)
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}
	if timer, exists := w.timers[path]; exists {
		if timer.Stop() {
			w.wg.Done()
		}
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.cfg.Debounce, func() {
		defer w.wg.Done()
		w.timerMu.Lock()
		if w.timers[path] == timer {
			delete(w.timers, path)
		}
		w.timerMu.Unlock()
		w.ingest(path)
	})
	w.timers[path] = timer
}

func (w *Watcher) ingest(path string) {
	payload, err := PayloadFromFile(path)
	if err != nil {
		w.logger.Warn("skipping unreadable file", "path", path, "error", err)
		return
	}

	ctx, span := telemetry.StartTransaction(w.ctx, "watch "+payload.Source, "watcher.capture")
	defer span.End()
	span.SetTag("source_tag", payload.Source)

	outcome, err := w.captureWhenReady(ctx, path, payload)
	switch {
	case err != nil:
		span.SetError(err)
		w.logger.Error("capture failed", "path", path, "code", domain.CodeOf(err), "error", err)
	case !outcome.Success:
		w.logger.Info("capture skipped", "path", path, "reason", outcome.Message)
	default:
		w.logger.Info("capture stored", "path", path, "source", outcome.SourceTag, "chunks", outcome.ChunksStored)
	}
}

// captureWhenReady retries while the pipeline reports NOT_READY. Any other
// error ends the attempt.
func (w *Watcher) captureWhenReady(ctx context.Context, path string, payload domain.CapturePayload) (*domain.CaptureOutcome, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.cfg.RetryInterval
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = w.cfg.RetryWindow

	var outcome *domain.CaptureOutcome
	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()

		out, err := w.capturer.Capture(attemptCtx, payload)
		if err != nil {
			if domain.IsCode(err, domain.ErrCodeNotReady) {
				return err
			}
			return backoff.Permanent(err)
		}
		outcome = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		w.logger.Info("pipeline not ready, capture deferred", "path", path, "retry_in", wait)
	}

	if err := backoff.RetryNotify(attempt, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}
	return outcome, nil
}

// Supported reports whether path has an extension the watcher ingests.
func Supported(path string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// PayloadFromFile reads path into a capture payload whose source tag is the
// file name without extension.
func PayloadFromFile(path string) (domain.CapturePayload, error) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := contentTypes[ext]
	if !ok {
		return domain.CapturePayload{}, fmt.Errorf("unsupported file type %q", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CapturePayload{}, err
	}

	payload := domain.CapturePayload{
		Source:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		ContentType: contentType,
	}
	if strings.HasPrefix(contentType, "image/") {
		payload.Image = data
	} else {
		payload.Text = string(data)
	}
	if info, err := os.Stat(path); err == nil {
		payload.CapturedAt = info.ModTime().UTC()
	}
	return payload, nil
}
