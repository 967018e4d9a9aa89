package client

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/pagination"
)

func HistoryCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			var page pagination.PageResult[domain.ConversationTurn]
			if err := api.GetInto(historyPath(limit, cursor), &page); err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			if wantsJSON(cmd) {
				return printJSON(page)
			}
			if len(page.Items) == 0 {
				fmt.Fprintln(stdout, "No conversation yet.")
				return nil
			}
			for _, turn := range page.Items {
				fmt.Fprintf(stdout, "%s  %-9s %s\n", turn.CreatedAt.Local().Format("2006-01-02 15:04"), turn.Role, turn.Content)
			}
			if page.HasMore {
				fmt.Fprintf(stdout, "\nMore turns available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of turns (all when 0)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	cmd.AddCommand(historyClearCmd())
	cmd.AddCommand(historyNoteCmd())

	return cmd
}

func historyPath(limit int, cursor string) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(q) == 0 {
		return "/api/history"
	}
	return "/api/history?" + q.Encode()
}

func historyClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the conversation (captured knowledge is kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/api/history"); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(stdout, "Conversation history cleared.")
			return nil
		},
	}
}

func historyNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <message>",
		Short: "Append a system note to the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}
			var turn domain.ConversationTurn
			if err := api.PostInto("/api/history/system", map[string]string{"message": args[0]}, &turn); err != nil {
				return fmt.Errorf("failed to add note: %w", err)
			}
			if wantsJSON(cmd) {
				return printJSON(turn)
			}
			fmt.Fprintf(stdout, "Note #%d added.\n", turn.ID)
			return nil
		},
	}
}
