package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error code constants surfaced in slice error fields and APIError.Code.
const (
	ErrCodeNetwork      = "network_failure"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeValidation   = "validation_rejected"
	ErrCodeNotFound     = "not_found"
	ErrCodeNoSuggestion = "no_suggestion_available"
	ErrCodeInternal     = "internal_error"
)

// APIError is the uniform failure shape produced by the HTTP adapter.
// Status is zero for transport-level failures (no response received);
// callers must not assume a response body on error.
type APIError struct {
	Code    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeForStatus maps an HTTP response status to the domain error code.
// The inverse of the server-side code-to-status mapping.
func CodeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeUnauthorized
	case status == http.StatusNotFound:
		return ErrCodeNotFound
	case status >= 400 && status < 500:
		return ErrCodeValidation
	default:
		return ErrCodeInternal
	}
}

// Message extracts a human-readable message for slice error fields.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
