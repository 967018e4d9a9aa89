package client

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/secondbrain/internal/domain"
	"github.com/cloo-solutions/secondbrain/internal/watcher"
)

// CaptureRequest is the body of POST /api/capture.
type CaptureRequest struct {
	Text        string `json:"text,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Source      string `json:"source,omitempty"`
}

func CaptureCmd() *cobra.Command {
	var (
		file   string
		text   string
		source string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a screenshot or text into the knowledge store",
		Long: `Sends a capture to the server. Use --file for a screenshot (.png, .jpg) or a
text file (.txt, .md), --text for inline text, or pipe text on stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildCaptureRequest(file, text, source, os.Stdin)
			if err != nil {
				return err
			}

			api, err := NewAPIClient(cmd)
			if err != nil {
				return err
			}

			var outcome domain.CaptureOutcome
			if err := api.PostInto("/api/capture", req, &outcome); err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}

			if wantsJSON(cmd) {
				return printJSON(outcome)
			}
			if !outcome.Success {
				fmt.Fprintf(stdout, "Nothing captured: %s\n", outcome.Message)
				return nil
			}
			fmt.Fprintf(stdout, "%s into %d chunk(s) (source: %s)\n", outcome.Message, outcome.ChunksStored, outcome.SourceTag)
			if outcome.ArchiveURL != "" {
				fmt.Fprintf(stdout, "Archived: %s\n", outcome.ArchiveURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Screenshot or text file to capture")
	cmd.Flags().StringVarP(&text, "text", "t", "", "Text to capture")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Source tag (defaults to the file name or a timestamp)")

	return cmd
}

func buildCaptureRequest(file, text, source string, stdin io.Reader) (CaptureRequest, error) {
	req := CaptureRequest{Text: text, Source: source}

	switch {
	case file != "":
		payload, err := watcher.PayloadFromFile(file)
		if err != nil {
			return req, err
		}
		if len(payload.Image) > 0 {
			req.ImageBase64 = base64.StdEncoding.EncodeToString(payload.Image)
			req.ContentType = payload.ContentType
		}
		if payload.Text != "" {
			req.Text = strings.TrimSpace(req.Text + "\n\n" + payload.Text)
		}
		if req.Source == "" {
			req.Source = payload.Source
		}
	case text == "":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("failed to read stdin: %w", err)
		}
		req.Text = string(data)
	}

	if strings.TrimSpace(req.Text) == "" && req.ImageBase64 == "" {
		return req, fmt.Errorf("nothing to capture: use --file, --text or pipe text on stdin")
	}
	return req, nil
}
