package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/cli"
	"github.com/cloo-solutions/secondbrain/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "brain",
		Short: "Capture screens and ask questions about them",
		Long: `brain talks to a running braind server: capture screenshots or text into
your knowledge store, then ask questions answered from what you captured.

Environment variables:
  BRAIN_API_URL    Server URL (default: http://localhost:5555)
  BRAIN_API_TOKEN  Bearer token, when the server requires one`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "API token (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "Server URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.CaptureCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.DBCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
