package httpx

import (
	"errors"
	"net/http"

	"github.com/zarforum/zarforum/internal/shared"
)

// RespondError maps domain errors to RFC7807 responses. Errors are surfaced
// verbatim to the presentation layer; nothing here retries or swallows them.
func RespondError(w http.ResponseWriter, err error) {
	var cooldown *shared.CooldownError
	var validation *shared.ValidationError

	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Permission Denied", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.As(err, &cooldown):
		Problem(w, http.StatusTooManyRequests, "Cooldown Active", cooldown.Error())
	case errors.As(err, &validation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", validation.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
