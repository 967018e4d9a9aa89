package handlers

import (
	"context"
	"net/http"
	"time"
)

// requestContext bounds the request context by timeoutMS, or by fallback when
// the client did not ask for a timeout.
func requestContext(r *http.Request, timeoutMS int, fallback time.Duration) (context.Context, context.CancelFunc) {
	timeout := fallback
	if timeoutMS > 0 {
		timeout = time.Duration(timeoutMS) * time.Millisecond
	}
	if timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), timeout)
}
