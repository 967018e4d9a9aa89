// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const serviceName = "secondbrain"

// Config selects the level and output format of the default logger.
type Config struct {
	Level     string
	Format    string
	AddSource bool
	Output    io.Writer
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// New builds a logger from cfg and installs it as the slog default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
	}))

	mu.Lock()
	defaultLogger = logger
	mu.Unlock()

	slog.SetDefault(logger)
	return logger
}

// Logger returns the installed logger, falling back to slog.Default.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

// NewModuleLogger returns a logger tagged with the module name.
func NewModuleLogger(module string) *slog.Logger {
	return Logger().With(slog.String("module", module))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
