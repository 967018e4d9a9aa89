package client

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			var stats domain.StoreStats
			if err := api.GetInto("/api/stats", &stats); err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}

			if wantsJSON(cmd) {
				return printJSON(stats)
			}
			fmt.Fprintf(stdout, "Backend:    %s", stats.Backend)
			if stats.Collection != "" {
				fmt.Fprintf(stdout, " (%s)", stats.Collection)
			}
			fmt.Fprintf(stdout, "\nStatus:     %s\n", stats.Status)
			fmt.Fprintf(stdout, "Chunks:     %d\n", stats.TotalChunks)
			fmt.Fprintf(stdout, "Sources:    %d\n", stats.TotalSources)
			fmt.Fprintf(stdout, "Dimension:  %d\n", stats.Dimension)
			if stats.OldestCapture != nil && stats.NewestCapture != nil {
				fmt.Fprintf(stdout, "Captured:   %s to %s\n",
					stats.OldestCapture.Local().Format(time.DateTime),
					stats.NewestCapture.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}
