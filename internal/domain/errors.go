package domain

import (
	"context"
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Pipeline error codes
const (
	ErrCodeNotReady             = "NOT_READY"
	ErrCodeNoTextExtracted      = "NO_TEXT_EXTRACTED"
	ErrCodeEmbeddingUnavailable = "EMBEDDING_UNAVAILABLE"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
	ErrCodeRetrievalUnavailable = "RETRIEVAL_UNAVAILABLE"
	ErrCodeGenerationFailed     = "GENERATION_FAILED"
	ErrCodeTimeout              = "TIMEOUT"
	ErrCodeDimensionMismatch    = "DIMENSION_MISMATCH"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Sentinel errors
var (
	ErrEmptyQuery          = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptyChunkText      = NewDomainError(ErrCodeValidation, "chunk text cannot be empty")
	ErrMissingChunkID      = NewDomainError(ErrCodeValidation, "chunk id is required")
	ErrInvalidRole         = NewDomainError(ErrCodeValidation, "invalid conversation role")
	ErrEmptyMessage        = NewDomainError(ErrCodeValidation, "message cannot be empty")
	ErrDimensionMismatch   = NewDomainError(ErrCodeDimensionMismatch, "vector dimension does not match the knowledge store")
	ErrInconsistentVectors = NewDomainError(ErrCodeDimensionMismatch, "vectors in one batch have different dimensions")
	ErrEmbeddingNotLoaded  = NewDomainError(ErrCodeEmbeddingUnavailable, "embedding model is not loaded")
	ErrEmptyModelOutput    = NewDomainError(ErrCodeGenerationFailed, "language model returned an empty answer")
	ErrNoTextExtracted     = NewDomainError(ErrCodeNoTextExtracted, "No meaningful text found")
)

// NotReady reports that process initialization has not completed yet.
func NotReady(message string) *DomainError {
	if message == "" {
		message = "system not ready yet"
	}
	return NewDomainError(ErrCodeNotReady, message)
}

// CodeOf returns the code of the outermost DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether the outermost DomainError in err's chain has the given code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Wrap classifies err under code. A cancelled or expired context turns it into TIMEOUT instead.
func Wrap(ctx context.Context, code, message string, err error) error {
	if err == nil {
		return nil
	}
	if timeout := FromContext(ctx, err); timeout != nil {
		return timeout
	}
	return NewDomainErrorWithCause(code, message, err)
}

// FromContext returns a TIMEOUT error when ctx has been cancelled or its deadline
// exceeded, or when err itself is a context error. Otherwise it returns nil.
func FromContext(ctx context.Context, err error) *DomainError {
	if IsCode(err, ErrCodeTimeout) {
		var de *DomainError
		errors.As(err, &de)
		return de
	}
	cause := err
	if ctx != nil && ctx.Err() != nil {
		cause = ctx.Err()
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return NewDomainErrorWithCause(ErrCodeTimeout, "operation timed out", cause)
	}
	if errors.Is(cause, context.Canceled) {
		return NewDomainErrorWithCause(ErrCodeTimeout, "operation cancelled", cause)
	}
	return nil
}
