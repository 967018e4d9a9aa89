//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/secondbrain/internal/cli/admin"
	"github.com/cloo-solutions/secondbrain/internal/config"
	"github.com/cloo-solutions/secondbrain/internal/testutil"
)

const e2eToken = "e2e-secret-token"

// E2ETestEnv holds a running braind app backed by real containers.
type E2ETestEnv struct {
	T         *testing.T
	Ctx       context.Context
	PostgresC *testutil.PostgresContainer
	QdrantC   *testutil.QdrantContainer
	RustFSC   *testutil.RustFSContainer
	LLM       *httptest.Server
	Server    *httptest.Server
	App       *admin.App
	BinaryDir string
	ConfigDir string
	client    *http.Client
}

// SetupE2EEnv starts the containers for backend plus an S3 store, and serves the app.
func SetupE2EEnv(t *testing.T, backend string) *E2ETestEnv {
	ctx := context.Background()
	env := &E2ETestEnv{T: t, Ctx: ctx, client: &http.Client{Timeout: 30 * time.Second}}
	t.Cleanup(env.Cleanup)

	env.RustFSC = testutil.NewRustFSContainer(ctx, t)
	env.LLM = newFakeLLM()

	cfg := &config.Config{
		Environment:         "test",
		APIToken:            e2eToken,
		CORSOrigins:         []string{"*"},
		MaxBodyBytes:        20 << 20,
		VectorBackend:       backend,
		EmbeddingProvider:   config.EmbeddingHashing,
		EmbeddingDimensions: 384,
		LLMProvider:         config.LLMOpenAI,
		LLMBaseURL:          env.LLM.URL + "/v1",
		LLMModel:            "llama3.1:8b",
		LLMMaxTokens:        256,
		ChunkMaxChars:       1000,
		MinCaptureChars:     10,
		TopK:                3,
		MaxTopK:             10,
		HistoryWindow:       6,
		MaxContextTokens:    3000,
		QueryTimeout:        30 * time.Second,
		CaptureTimeout:      30 * time.Second,
		InitRetryInterval:   200 * time.Millisecond,
		OCRCommand:          "tesseract",
		OCRLanguage:         "eng",
		HistoryPath:         filepath.Join(t.TempDir(), "history.db"),
		S3Endpoint:          env.RustFSC.Endpoint(),
		S3AccessKey:         "rustfsadmin",
		S3SecretKey:         "rustfsadmin",
		S3Bucket:            "e2e-captures",
		S3Region:            "us-east-1",
	}

	switch backend {
	case config.BackendPgvector:
		env.PostgresC = testutil.NewPostgresContainer(ctx, t)
		cfg.DatabaseURL = env.PostgresC.ConnectionString()
		cfg.MigrationsDir = "../../migrations"
		cfg.AutoMigrate = true
	case config.BackendQdrant:
		env.QdrantC = testutil.NewQdrantContainer(ctx, t)
		cfg.QdrantHost = env.QdrantC.Host
		cfg.QdrantPort = env.QdrantC.GRPCPort
		cfg.QdrantCollection = "e2e_knowledge"
	}

	app, err := admin.NewApp(ctx, cfg, admin.AppOptions{})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	env.App = app
	app.Start(ctx)

	env.Server = httptest.NewServer(app.Router())
	env.waitForReady(30 * time.Second)
	return env
}

// newFakeLLM answers chat completions by quoting the first captured snippet it was given.
func newFakeLLM() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		answer := "I don't have any information about that yet."
		for _, msg := range req.Messages {
			if _, after, ok := strings.Cut(msg.Content, "[1] "); ok {
				line, _, _ := strings.Cut(after, "\n")
				if _, text, ok := strings.Cut(line, ") "); ok {
					answer = "From your notes: " + text
				}
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{{
				Message: goopenai.ChatCompletionMessage{Role: "assistant", Content: answer},
			}},
		})
	}))
}

func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.App != nil {
		e.App.Close()
	}
	if e.LLM != nil {
		e.LLM.Close()
	}
	if e.QdrantC != nil {
		e.QdrantC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

func (e *E2ETestEnv) waitForReady(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var health struct {
			Ready bool `json:"ready"`
		}
		if resp, err := e.Request(http.MethodGet, "/health", nil); err == nil && resp.StatusCode == http.StatusOK {
			if json.Unmarshal(resp.Data, &health) == nil && health.Ready {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("app not ready after %s", timeout)
}

// APIResponse is the decoded envelope plus the HTTP status.
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func (e *E2ETestEnv) Request(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e2eToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &APIResponse{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return out, nil
}

// MustRequest fails the test unless the call returns wantStatus, and decodes data into out.
func (e *E2ETestEnv) MustRequest(method, path string, body interface{}, wantStatus int, out interface{}) *APIResponse {
	e.T.Helper()
	resp, err := e.Request(method, path, body)
	if err != nil {
		e.T.Fatalf("%s %s: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		e.T.Fatalf("%s %s: status %d (want %d): %s %s", method, path, resp.StatusCode, wantStatus, resp.Code, resp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			e.T.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return resp
}

// BuildBinaries builds the brain client into a temp dir.
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "brain-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir
	e.ConfigDir = filepath.Join(tmpDir, "config")

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "brain"), "./cmd/brain")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build brain: %v\n%s", err, out)
	}
}

// RunBrain runs the brain CLI against the test server.
func (e *E2ETestEnv) RunBrain(stdin string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "brain"), args...)
	cmd.Dir = e.BinaryDir
	cmd.Env = append(os.Environ(),
		"BRAIN_API_URL="+e.Server.URL,
		"BRAIN_API_TOKEN="+e2eToken,
		"XDG_CONFIG_HOME="+e.ConfigDir,
		"HOME="+e.BinaryDir,
	)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}
