package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

var sentryHandler = sentryhttp.New(sentryhttp.Options{
	Repanic: true,
	Timeout: 2 * time.Second,
})

// SentryMiddleware traces API requests through sentryhttp, tags each
// transaction with its request id and pipeline operation, and reports 5xx
// responses with their taxonomy code. Health probes are not traced. Without
// an initialized client the SDK drops everything.
func SentryMiddleware(next http.Handler) http.Handler {
	traced := sentryHandler.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			next.ServeHTTP(w, r)
			return
		}

		tags := map[string]string{
			"request_id": GetRequestID(r.Context()),
			"operation":  operationFor(r),
		}
		transaction := sentry.TransactionFromContext(r.Context())
		for key, value := range tags {
			if value == "" {
				continue
			}
			hub.Scope().SetTag(key, value)
			if transaction != nil {
				transaction.SetTag(key, value)
			}
		}

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.statusCode()
		if status < 500 {
			return
		}
		code := rec.errorCode()
		hub.WithScope(func(scope *sentry.Scope) {
			if code != "" {
				scope.SetTag("error_code", code)
				scope.SetFingerprint([]string{"{{ default }}", code})
			}
			hub.CaptureMessage(fmt.Sprintf("HTTP %d %s: %s", status, code, r.URL.Path))
		})
	}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isHealthPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		traced.ServeHTTP(w, r)
	})
}

func isHealthPath(path string) bool {
	return path == "/health" || path == "/api/health"
}

// operationFor names the pipeline operation a request belongs to.
func operationFor(r *http.Request) string {
	switch path := strings.TrimPrefix(r.URL.Path, "/api"); {
	case path == "/capture":
		return "capture"
	case path == "/query":
		return "query"
	case path == "/stats":
		return "stats"
	case path == "/database":
		return "database-clear"
	case strings.HasPrefix(path, "/history"):
		if r.Method == http.MethodDelete {
			return "history-clear"
		}
		if r.Method == http.MethodPost {
			return "history-note"
		}
		return "history-get"
	default:
		return ""
	}
}
