package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

// DecodeJSON decodes the request body into dst. On failure it writes the error
// response and returns false: 413 when the body limit was hit, 400 otherwise.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		ErrorWithCode(w, http.StatusRequestEntityTooLarge, domain.ErrCodePayloadTooLarge, BodyLimitMessage(tooLarge.Limit))
		return false
	}
	ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
	return false
}

// BodyLimitMessage describes a request body limit in whole megabytes where possible.
func BodyLimitMessage(limit int64) string {
	const mb = 1 << 20
	if limit >= mb && limit%mb == 0 {
		return fmt.Sprintf("request body exceeds the %d MB limit", limit/mb)
	}
	return fmt.Sprintf("request body exceeds the %d byte limit", limit)
}
