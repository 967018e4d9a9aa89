package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, content []map[string]any, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-5", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":  "error",
				"error": map[string]any{"type": "invalid_request_error", "message": "bad"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-sonnet-4-5",
			"content":       content,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 2},
		})
	}))
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic:"+DefaultModel, c.Name())
	assert.EqualValues(t, DefaultMaxTokens, c.maxTokens)
}

func TestComplete_JoinsTextBlocks(t *testing.T) {
	server := newTestServer(t, []map[string]any{
		{"type": "text", "text": "The sky "},
		{"type": "text", "text": "is blue."},
	}, http.StatusOK)
	defer server.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "Question: what color is the sky")
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", out)
}

func TestComplete_NoText(t *testing.T) {
	server := newTestServer(t, []map[string]any{}, http.StatusOK)
	defer server.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoTextContent)
}

func TestComplete_APIError(t *testing.T) {
	server := newTestServer(t, nil, http.StatusBadRequest)
	defer server.Close()

	c, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messages request failed")
}
