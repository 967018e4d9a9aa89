package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HealthResponse mirrors GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Ready     bool   `json:"ready"`
	Message   string `json:"message"`
	InitError string `json:"init_error,omitempty"`
}

func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			var health HealthResponse
			if err := api.GetInto("/health", &health); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			if wantsJSON(cmd) {
				return printJSON(health)
			}
			state := "not ready"
			if health.Ready {
				state = "ready"
			}
			fmt.Fprintf(stdout, "%s (%s): %s\n", api.BaseURL(), state, health.Message)
			return nil
		},
	}
}
