package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrorDetail is the wire shape of a single error.
type ErrorDetail struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the envelope returned for any failed request.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the wire representation of an error. Internal
// errors expose their hint, not the raw cause.
func NewErrorResponse(err error) *ErrorResponse {
	detail := ErrorDetail{Message: err.Error()}

	var internal *InternalError
	if errors.As(err, &internal) {
		detail.Message = internal.Hint()
		detail.Details = internal.Details()
	}

	return &ErrorResponse{Success: false, Error: detail}
}

// HTTPStatusFromErr maps a marked error to its transport status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusConflict
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
