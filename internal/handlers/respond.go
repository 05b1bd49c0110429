package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/services"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
)

// SessionPorts builds the unlock-flag port for one request.
type SessionPorts func(w http.ResponseWriter, r *http.Request, userID string) services.SessionLockPort

// writeServiceError maps a service error onto the HTTP error envelope.
// Services already logged anything the client must not see.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		lockout    *models.LockoutError
		incorrect  *models.IncorrectPINError
		validation *models.ValidationError
		notFound   *models.NotFoundError
	)

	switch {
	case errors.As(err, &lockout):
		pkghttp.WriteLockedOut(w, lockout.Error(), lockout.Seconds())
	case errors.As(err, &incorrect):
		pkghttp.WriteError(w, http.StatusUnauthorized, "incorrect_pin", incorrect.Error())
	case errors.As(err, &validation):
		pkghttp.WriteValidationError(w, validation.Message)
	case errors.Is(err, models.ErrPINNotSet):
		pkghttp.WriteError(w, http.StatusBadRequest, "pin_not_set", "PIN not set")
	case errors.Is(err, models.ErrLocked):
		pkghttp.WriteLocked(w, "Vault is locked")
	case errors.As(err, &notFound):
		pkghttp.WriteNotFound(w, notFound.Message)
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Unauthorized")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid reference")
	default:
		pkghttp.WriteInternalError(w, "Something went wrong")
	}
}

// requireUser returns the caller's id, writing 401 when there is none.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.GetUserID(r)
	if userID == "" {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return "", false
	}
	return userID, true
}
