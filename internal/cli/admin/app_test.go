package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/secondbrain/internal/config"
	"github.com/cloo-solutions/secondbrain/internal/embedding"
	"github.com/cloo-solutions/secondbrain/internal/openai"
)

func fakeChatServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{{Message: goopenai.ChatCompletionMessage{Role: "assistant", Content: answer}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, llmURL string) *config.Config {
	t.Helper()
	return &config.Config{
		VectorBackend:       config.BackendMemory,
		EmbeddingProvider:   config.EmbeddingHashing,
		EmbeddingDimensions: 32,
		LLMProvider:         config.LLMOpenAI,
		LLMBaseURL:          llmURL + "/v1",
		LLMModel:            "llama3.1:8b",
		LLMMaxTokens:        256,
		ChunkMaxChars:       1000,
		MinCaptureChars:     10,
		TopK:                3,
		MaxTopK:             10,
		HistoryWindow:       6,
		MaxContextTokens:    3000,
		QueryTimeout:        5 * time.Second,
		CaptureTimeout:      5 * time.Second,
		InitRetryInterval:   10 * time.Millisecond,
		OCRCommand:          "definitely-not-installed-ocr",
		HistoryPath:         filepath.Join(t.TempDir(), "history.db"),
	}
}

func TestNewApp_ServesThePipeline(t *testing.T) {
	llm := fakeChatServer(t, "The sky is blue.")
	cfg := testConfig(t, llm.URL)
	ctx := context.Background()

	app, err := NewApp(ctx, cfg, AppOptions{})
	require.NoError(t, err)
	defer app.Close()

	router := app.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready before Start")

	app.Start(ctx)
	select {
	case <-app.worker.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("initialization did not complete")
	}
	require.True(t, app.Runtime.Ready())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/capture", strings.NewReader(`{"text":"The sky is blue today"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"what color is the sky"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "The sky is blue.")

	assert.Equal(t, 2, app.History.Len())
}

func TestNewApp_HistorySurvivesRestart(t *testing.T) {
	llm := fakeChatServer(t, "noted")
	cfg := testConfig(t, llm.URL)
	ctx := context.Background()

	first, err := NewApp(ctx, cfg, AppOptions{})
	require.NoError(t, err)
	first.Start(ctx)
	<-first.worker.Done()
	_, err = first.Query.Ask(ctx, "remember this", 0)
	require.NoError(t, err)
	first.Close()

	second, err := NewApp(ctx, cfg, AppOptions{})
	require.NoError(t, err)
	defer second.Close()
	second.Start(ctx)
	<-second.worker.Done()

	turns := second.History.All(ctx)
	require.Len(t, turns, 2)
	assert.Equal(t, "remember this", turns[0].Content)
}

func TestNewApp_HistoryRestoredBeforeStart(t *testing.T) {
	llm := fakeChatServer(t, "noted")
	cfg := testConfig(t, llm.URL)
	ctx := context.Background()

	first, err := NewApp(ctx, cfg, AppOptions{})
	require.NoError(t, err)
	first.Start(ctx)
	<-first.worker.Done()
	_, err = first.Query.Ask(ctx, "remember this", 0)
	require.NoError(t, err)
	first.Close()

	second, err := NewApp(ctx, cfg, AppOptions{})
	require.NoError(t, err)
	defer second.Close()
	router := second.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/history/system", strings.NewReader(`{"message":"still starting"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	turns := second.History.All(ctx)
	require.Len(t, turns, 3)
	assert.Equal(t, "remember this", turns[0].Content)
	assert.Equal(t, "still starting", turns[2].Content)
	assert.Equal(t, int64(3), turns[2].ID)
}

func TestNewApp_AnthropicWithoutKeyFails(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	cfg.LLMProvider = config.LLMAnthropic

	_, err := NewApp(context.Background(), cfg, AppOptions{})
	require.Error(t, err)
}

func TestEmbeddingModel_SelectsProvider(t *testing.T) {
	cfg := &config.Config{EmbeddingProvider: config.EmbeddingHashing, EmbeddingDimensions: 64}
	assert.IsType(t, &embedding.HashingEmbedder{}, embeddingModel(cfg))
	assert.Equal(t, 64, embeddingModel(cfg).Dimension())

	cfg.EmbeddingProvider = config.EmbeddingOpenAI
	cfg.EmbeddingModel = "text-embedding-3-small"
	cfg.OpenAIAPIKey = "sk-test"
	model := embeddingModel(cfg)
	assert.IsType(t, &openai.Client{}, model)
	assert.Equal(t, "openai:text-embedding-3-small", model.Name())
}
