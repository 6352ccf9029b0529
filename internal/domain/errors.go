package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the internal error taxonomy carried across the gateway.
// Status follows HTTP semantics: 400 invalid request, 401 authentication
// failure, 429 rate limited, anything else upstream failure.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// NewInvalidRequest creates a 400 error for a malformed or semantically
// invalid external request.
func NewInvalidRequest(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// NewAuthenticationFailure creates a 401 error.
func NewAuthenticationFailure(message string) *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Message: message,
	}
}

// NewRateLimited creates a 429 error.
func NewRateLimited(message string) *APIError {
	return &APIError{
		Status:  http.StatusTooManyRequests,
		Message: message,
	}
}

// NewNotFound creates a 404 error with the given code.
func NewNotFound(code, message string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    code,
		Message: message,
	}
}

// NewUpstreamFailure creates a 500 error for engine or infrastructure
// failures.
func NewUpstreamFailure(message string) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Message: message,
	}
}

// AsAPIError extracts an APIError from an error chain. Errors outside the
// taxonomy become upstream failures with their message preserved verbatim.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewUpstreamFailure(err.Error())
}
