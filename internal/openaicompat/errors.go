package openaicompat

import (
	"encoding/json"
	"net/http"

	"github.com/davidbz/howl/internal/domain"
	"github.com/davidbz/howl/internal/observability"
)

// External error types on the translated surface.
const (
	TypeAuthenticationError = "authentication_error"
	TypeInvalidRequestError = "invalid_request_error"
	TypeRateLimitExceeded   = "rate_limit_exceeded"
	TypeAPIError            = "api_error"
)

// errorType maps an internal status onto the external error type. Anything
// outside the table (5xx or unmapped codes like 404) is an api_error.
func errorType(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return TypeAuthenticationError
	case http.StatusBadRequest:
		return TypeInvalidRequestError
	case http.StatusTooManyRequests:
		return TypeRateLimitExceeded
	default:
		return TypeAPIError
	}
}

// TranslateError rewrites an internal error as the external envelope plus
// the HTTP status to respond with. The internal message and code are
// preserved verbatim; translation never fabricates a message.
func TranslateError(err error) (int, *ErrorEnvelope) {
	apiErr := domain.AsAPIError(err)

	return apiErr.Status, &ErrorEnvelope{
		Error: ErrorBody{
			Message: apiErr.Message,
			Type:    errorType(apiErr.Status),
			Code:    apiErr.Code,
		},
	}
}

// WriteError writes the translated envelope as a JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, envelope := TranslateError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(envelope); encodeErr != nil {
		observability.FromContext(r.Context()).Error("failed to encode error envelope",
			observability.Error(encodeErr),
		)
	}
}
