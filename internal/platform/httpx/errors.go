package httpx

import (
	"errors"
	"net/http"

	"github.com/lumina-id/lumina-id/internal/shared"
)

// Stable error codes exposed to API clients.
const (
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidState       = "INVALID_STATE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// RespondError maps domain errors to HTTP responses. Unknown errors collapse
// into a generic 500 so internals never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrDuplicateEmail):
		Problem(w, http.StatusConflict, "Duplicate Email", err.Error(), CodeDuplicateEmail)
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", err.Error(), CodeInvalidCredentials)
	case errors.Is(err, shared.ErrInvalidToken):
		Problem(w, http.StatusBadRequest, "Invalid Token", err.Error(), CodeInvalidToken)
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error(), CodeInvalidState)
	case errors.Is(err, shared.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), CodeUnauthorized)
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error(), CodeForbidden)
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error(), CodeValidation)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error(), CodeNotFound)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "", CodeInternal)
	}
}
