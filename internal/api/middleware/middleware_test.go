package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Generated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesUnusableHeader(t *testing.T) {
	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("x", 200)} {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.Header.Set("X-Request-ID", bad)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, bad, seen)
		assert.Len(t, seen, 36)
	}
}

func TestMaxBodyBytes_RejectsDeclaredLength(t *testing.T) {
	handler := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/capture", strings.NewReader(`{"text":"far too long"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"request body exceeds the 8 byte limit","code":"PAYLOAD_TOO_LARGE"}`, w.Body.String())
}

func TestMaxBodyBytes_LimitsStreamedBody(t *testing.T) {
	var readErr error
	handler := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/capture", strings.NewReader(`{"text":"far too long"}`))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, readErr)
}

func TestAccessLog_RecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestID(AccessLogWith(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/history/system", nil)
	req.Header.Set("X-Request-ID", "req-7")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/history/system", entry["path"])
	assert.EqualValues(t, http.StatusCreated, entry["status"])
	assert.EqualValues(t, 5, entry["bytes"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "10.0.0.1", entry["remote_addr"])
	assert.Contains(t, entry, "duration_ms")
}

func TestAccessLog_ServerErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := AccessLogWith(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}

func TestSentryMiddleware_PassesResponseThrough(t *testing.T) {
	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	for _, path := range []string{"/health", "/api/query"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusAccepted, w.Code, path)
	}
}

func TestOperationFor(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		expected string
	}{
		{http.MethodPost, "/api/capture", "capture"},
		{http.MethodPost, "/api/query", "query"},
		{http.MethodGet, "/api/history", "history-get"},
		{http.MethodDelete, "/api/history", "history-clear"},
		{http.MethodPost, "/api/history/system", "history-note"},
		{http.MethodGet, "/api/stats", "stats"},
		{http.MethodDelete, "/api/database", "database-clear"},
		{http.MethodGet, "/api/unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, operationFor(httptest.NewRequest(tt.method, tt.path, nil)))
		})
	}
}

func TestResponseRecorder_ErrorCode(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &responseRecorder{ResponseWriter: w}
	rec.WriteHeader(http.StatusServiceUnavailable)
	rec.Write([]byte(`{"error":"system not ready yet",`))
	rec.Write([]byte(`"code":"NOT_READY"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.statusCode())
	assert.Equal(t, "NOT_READY", rec.errorCode())
	assert.Equal(t, w.Body.Len(), rec.bytes)

	ok := &responseRecorder{ResponseWriter: httptest.NewRecorder()}
	ok.Write([]byte(`{"data":{"code":"not an error"}}`))
	assert.Equal(t, http.StatusOK, ok.statusCode())
	assert.Empty(t, ok.errorCode())
}

func TestAccessLog_RecordsErrorCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := AccessLogWith(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"query cannot be empty","code":"VALIDATION_ERROR"}`))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/query", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "VALIDATION_ERROR", entry["code"])
	assert.Equal(t, "query", entry["operation"])
}

func TestSentryMiddleware_ServerErrorsPassThrough(t *testing.T) {
	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"model failed","code":"GENERATION_FAILED"}`))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/query", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "GENERATION_FAILED")
}
