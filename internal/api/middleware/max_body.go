package middleware

import (
	"net/http"

	"github.com/cloo-solutions/secondbrain/internal/api"
	"github.com/cloo-solutions/secondbrain/internal/domain"
)

// MaxBodyBytes caps request bodies at limit bytes. A declared Content-Length
// over the limit is rejected up front; streamed bodies fail on read and the
// handler's api.DecodeJSON turns that into the same 413.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.ErrorWithCode(w, http.StatusRequestEntityTooLarge, domain.ErrCodePayloadTooLarge, api.BodyLimitMessage(limit))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
