package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/secondbrain/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorWithCode writes an error JSON response carrying a taxonomy code
func ErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch domain.CodeOf(err) {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.ErrCodeNotReady,
		domain.ErrCodeEmbeddingUnavailable,
		domain.ErrCodeStoreUnavailable,
		domain.ErrCodeRetrievalUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrCodeGenerationFailed:
		return http.StatusBadGateway
	case domain.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCodeNoTextExtracted:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the user-facing text of err: the domain message and, when
// present, its cause.
func ErrorMessage(err error) string {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return err.Error()
	}
	if de.Err == nil {
		return de.Message
	}
	return de.Message + ": " + de.Err.Error()
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	code := domain.CodeOf(err)
	if code == "" {
		code = domain.ErrCodeInternalError
	}
	ErrorWithCode(w, status, code, ErrorMessage(err))
}
