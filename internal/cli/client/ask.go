package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

func AskCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about your captured knowledge",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			answer, err := ask(api, strings.Join(args, " "), topK)
			if err != nil {
				return err
			}

			if wantsJSON(cmd) {
				return printJSON(answer)
			}
			fmt.Fprintln(stdout, formatAnswer(answer))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (server default when 0)")

	return cmd
}

func ask(api *APIClient, question string, topK int) (*domain.Answer, error) {
	var answer domain.Answer
	if err := api.PostInto("/api/query", QueryRequest{Query: question, TopK: topK}, &answer); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &answer, nil
}

func formatAnswer(answer *domain.Answer) string {
	var sb strings.Builder
	sb.WriteString(answer.Text)
	if len(answer.Sources) == 0 {
		return sb.String()
	}
	sb.WriteString("\n\nSources:")
	for i, src := range answer.Sources {
		fmt.Fprintf(&sb, "\n  [%d] %s (%.2f) %s", i+1, src.SourceTag, src.Score, truncate(src.Snippet, 80))
	}
	return sb.String()
}
