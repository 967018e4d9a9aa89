// Package ocr turns captured screen images into raw text.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	ErrNoImage     = errors.New("ocr: no image data")
	ErrUnavailable = errors.New("ocr: no extractor configured")
)

// Extractor reads text out of an image.
type Extractor interface {
	Extract(ctx context.Context, image []byte, contentType string) (string, error)
}

// Tesseract runs the tesseract CLI, streaming the image over stdin.
type Tesseract struct {
	Command  string
	Language string
}

func NewTesseract(command, language string) *Tesseract {
	if command == "" {
		command = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Command: command, Language: language}
}

// Available reports whether the command can be found on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Command)
	return err == nil
}

func (t *Tesseract) Extract(ctx context.Context, image []byte, _ string) (string, error) {
	if len(image) == 0 {
		return "", ErrNoImage
	}

	cmd := exec.CommandContext(ctx, t.Command, "stdin", "stdout", "-l", t.Language)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("ocr: %s failed: %w: %s", t.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Disabled is used when no OCR engine is installed. Text captures still work.
type Disabled struct{}

func (Disabled) Extract(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}
