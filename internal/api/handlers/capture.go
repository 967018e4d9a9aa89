package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/secondbrain/internal/api"
	"github.com/cloo-solutions/secondbrain/internal/domain"
)

type CaptureService interface {
	Capture(ctx context.Context, payload domain.CapturePayload) (*domain.CaptureOutcome, error)
}

type CaptureHandler struct {
	svc     CaptureService
	timeout time.Duration
}

func NewCaptureHandler(svc CaptureService, timeout time.Duration) *CaptureHandler {
	return &CaptureHandler{svc: svc, timeout: timeout}
}

type CaptureRequest struct {
	Text        string `json:"text,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Source      string `json:"source,omitempty"`
	TimeoutMS   int    `json:"timeout_ms,omitempty"`
}

func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	payload := domain.CapturePayload{
		Text:        req.Text,
		ContentType: req.ContentType,
		Source:      req.Source,
	}
	if req.ImageBase64 != "" {
		image, contentType, err := decodeImage(req.ImageBase64)
		if err != nil {
			api.ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "image_base64 is not valid base64")
			return
		}
		payload.Image = image
		if payload.ContentType == "" {
			payload.ContentType = contentType
		}
	}

	ctx, cancel := requestContext(r, req.TimeoutMS, h.timeout)
	defer cancel()

	outcome, err := h.svc.Capture(ctx, payload)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, outcome)
}

// decodeImage accepts plain base64 or a data URL such as "data:image/png;base64,...".
func decodeImage(encoded string) ([]byte, string, error) {
	contentType := ""
	if strings.HasPrefix(encoded, "data:") {
		header, data, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, "", base64.CorruptInputError(0)
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = data
	}
	image, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, "", err
	}
	return image, contentType, nil
}
