package dto

import (
	"errors"
	"net/http"

	"github.com/crestbooks/reconcile-backend/internal/domain/recon"
)

// APIError is the structured error body every non-2xx response carries.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable error codes. Clients switch on these, not on messages.
const (
	ErrCodeNotFound          = "not_found"
	ErrCodeBadRequest        = "bad_request"
	ErrCodeAlreadyMatched    = "already_matched"
	ErrCodeNotMatched        = "not_matched"
	ErrCodeNotBalanced       = "not_balanced"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeImmutable         = "immutable"
	ErrCodeCrossAccount      = "cross_account"
	ErrCodeInternalError     = "internal_error"
)

// NewAPIError creates an APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{Code: code, Message: message}
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// MapError translates a domain error into an HTTP status and error body.
// Unknown errors map to 500 with a generic body; the original message is
// never leaked for those.
func MapError(err error) (int, APIError) {
	switch {
	case errors.Is(err, recon.ErrNotFound):
		return http.StatusNotFound, NewAPIError(ErrCodeNotFound, err.Error())
	case errors.Is(err, recon.ErrAlreadyMatched):
		return http.StatusConflict, NewAPIError(ErrCodeAlreadyMatched, err.Error())
	case errors.Is(err, recon.ErrNotMatched):
		return http.StatusConflict, NewAPIError(ErrCodeNotMatched, err.Error())
	case errors.Is(err, recon.ErrNotBalanced):
		return http.StatusConflict, NewAPIError(ErrCodeNotBalanced, err.Error())
	case errors.Is(err, recon.ErrImmutable):
		return http.StatusConflict, NewAPIError(ErrCodeImmutable, err.Error())
	case errors.Is(err, recon.ErrInvalidTransition):
		return http.StatusConflict, NewAPIError(ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, recon.ErrCrossAccount):
		return http.StatusUnprocessableEntity, NewAPIError(ErrCodeCrossAccount, err.Error())
	default:
		return http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, "an internal error occurred")
	}
}
