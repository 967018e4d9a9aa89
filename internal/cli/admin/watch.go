package admin

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/logging"
	"github.com/cloo-solutions/secondbrain/internal/watcher"
)

// WatchCmd ingests a screenshot folder without serving HTTP.
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Capture screenshots dropped into a folder",
		Long: `Watch a directory and capture every new .png, .jpg, .txt or .md file into the
knowledge store, using the same pipeline as the API server. Files already
present when the watch starts are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Duration("debounce", watcher.DefaultDebounce, "Quiet period before a changed file is captured")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	app, err := NewApp(ctx, cfg, AppOptions{SkipMigrations: noMigrate})
	if err != nil {
		return err
	}
	defer app.Close()
	app.Start(ctx)

	w, err := watcher.New(watcher.Config{Dir: args[0], Debounce: debounce, Timeout: cfg.CaptureTimeout}, app.Capture)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logger := logging.NewModuleLogger("watch")
	select {
	case <-app.worker.Done():
		logger.Info("pipeline ready", "dir", args[0])
	case <-time.After(cfg.InitRetryInterval):
		logger.Info("pipeline still initializing; captures before it is ready are skipped", "status", app.Runtime.Status())
	case <-ctx.Done():
		return nil
	}

	<-ctx.Done()
	logger.Info("stopping watch")
	return nil
}
