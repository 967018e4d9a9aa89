package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, map[string]bool{"cleared": true})

	assert.Equal(t, http.StatusOK, w.Code)

	var result SuccessResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["cleared"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "invalid input", result.Error)
	assert.Empty(t, result.Code)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", domain.ErrEmptyQuery, http.StatusBadRequest},
		{"not ready", domain.NotReady(""), http.StatusServiceUnavailable},
		{"embedding unavailable", domain.ErrEmbeddingNotLoaded, http.StatusServiceUnavailable},
		{"store unavailable", domain.NewDomainError(domain.ErrCodeStoreUnavailable, "down"), http.StatusServiceUnavailable},
		{"retrieval unavailable", domain.NewDomainError(domain.ErrCodeRetrievalUnavailable, "down"), http.StatusServiceUnavailable},
		{"generation failed", domain.ErrEmptyModelOutput, http.StatusBadGateway},
		{"timeout", domain.NewDomainError(domain.ErrCodeTimeout, "slow"), http.StatusGatewayTimeout},
		{"no text", domain.ErrNoTextExtracted, http.StatusOK},
		{"wrapped domain error", fmt.Errorf("ask: %w", domain.ErrEmptyQuery), http.StatusBadRequest},
		{"internal error", domain.NewDomainError(domain.ErrCodeInternalError, "internal"), http.StatusInternalServerError},
		{"unknown domain error", domain.NewDomainError("UNKNOWN", "unknown"), http.StatusInternalServerError},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DomainErrorToHTTP(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalUnavailable, "failed to embed query", errors.New("model offline")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "failed to embed query: model offline", result.Error)
	assert.Equal(t, domain.ErrCodeRetrievalUnavailable, result.Code)
}

func TestHandleError_PlainError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "boom", result.Error)
	assert.Equal(t, domain.ErrCodeInternalError, result.Code)
}
