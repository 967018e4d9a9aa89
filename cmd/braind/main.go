package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/cli"
	"github.com/cloo-solutions/secondbrain/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "braind",
		Short: "secondbrain server",
		Long:  "Runs the capture and query API, watches screenshot folders and manages database migrations",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.WatchCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
