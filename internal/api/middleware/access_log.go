package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/secondbrain/internal/api"
	"github.com/cloo-solutions/secondbrain/internal/logging"
)

const maxErrorPeek = 512

// responseRecorder tracks status and size, and keeps the head of error bodies
// so the envelope's taxonomy code can be logged and reported.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	bytes   int
	errHead []byte
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.status >= 400 && len(r.errHead) < maxErrorPeek {
		r.errHead = append(r.errHead, b[:min(len(b), maxErrorPeek-len(r.errHead))]...)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// errorCode returns the "code" of a JSON error envelope, or "".
func (r *responseRecorder) errorCode() string {
	if len(r.errHead) == 0 {
		return ""
	}
	var envelope api.ErrorResponse
	if err := json.Unmarshal(r.errHead, &envelope); err != nil {
		return ""
	}
	return envelope.Code
}

// AccessLog emits one structured record per request through the "http" module logger.
func AccessLog(next http.Handler) http.Handler {
	return AccessLogWith(logging.NewModuleLogger("http"))(next)
}

// AccessLogWith is AccessLog with an explicit logger.
func AccessLogWith(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.statusCode()
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", rec.bytes),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("remote_addr", clientIP(r)),
				slog.String("user_agent", r.UserAgent()),
			}
			if operation := operationFor(r); operation != "" {
				attrs = append(attrs, slog.String("operation", operation))
			}
			if code := rec.errorCode(); code != "" {
				attrs = append(attrs, slog.String("code", code))
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
