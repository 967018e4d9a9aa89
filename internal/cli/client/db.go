package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

func DBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the knowledge store",
	}
	cmd.AddCommand(dbClearCmd())
	return cmd
}

func dbClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every captured chunk",
		Long:  "Deletes all captured knowledge. The conversation history is kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the knowledge store without --yes")
			}
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			var resp struct {
				Cleared bool   `json:"cleared"`
				Message string `json:"message"`
			}
			deleted, err := api.Delete("/api/database")
			if err != nil {
				return fmt.Errorf("failed to clear database: %w", err)
			}
			if err := deleted.Decode(&resp); err != nil {
				return err
			}
			if wantsJSON(cmd) {
				return printJSON(resp)
			}
			fmt.Fprintln(stdout, resp.Message)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")

	return cmd
}
