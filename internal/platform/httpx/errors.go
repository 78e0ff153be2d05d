package httpx

import (
	"errors"
	"net/http"

	"github.com/stockward/stockward/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var fieldErr *shared.FieldError
	switch {
	case errors.As(err, &fieldErr):
		FieldProblem(w, http.StatusBadRequest, "Validation Failed", fieldErr.Field, fieldErr.Reason)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrInfrastructure):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "temporary backend failure")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
