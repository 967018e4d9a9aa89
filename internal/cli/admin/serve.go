package admin

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/config"
	"github.com/cloo-solutions/secondbrain/internal/logging"
	"github.com/cloo-solutions/secondbrain/internal/telemetry"
	"github.com/cloo-solutions/secondbrain/internal/watcher"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the secondbrain API server. Initialization runs in the background; /health reports progress.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from BRAIN_PORT, 5555)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("watch-dir", "", "Also ingest screenshots dropped into this directory")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.NewModuleLogger("serve")

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	if dir, _ := cmd.Flags().GetString("watch-dir"); dir != "" {
		cfg.WatchDir = dir
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	app, err := NewApp(ctx, cfg, AppOptions{SkipMigrations: noMigrate})
	if err != nil {
		return err
	}
	defer app.Close()
	app.Start(ctx)

	if cfg.WatchDir != "" {
		w, err := watcher.New(watcher.Config{Dir: cfg.WatchDir, Timeout: cfg.CaptureTimeout}, app.Capture)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// loadConfig reads the environment and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, AddSource: cfg.Debug})
	return cfg, nil
}

// initTelemetry enables Sentry tracing when a DSN is configured. Production
// samples 10% of transactions, every other environment samples all of them.
func initTelemetry(cfg *config.Config) func() {
	if !cfg.HasSentry() {
		return func() {}
	}

	sampleRate := 1.0
	if cfg.Environment == "production" {
		sampleRate = 0.1
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logging.NewModuleLogger("serve").Warn("telemetry init failed, continuing without tracing", "error", err)
		return func() {}
	}
	return shutdown
}
