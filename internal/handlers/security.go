package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/services"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
)

// SessionService is the session lock state machine
type SessionService interface {
	Status(ctx context.Context, userID string, port services.SessionLockPort) (*models.SessionStatus, error)
	Unlock(ctx context.Context, userID, pin string, port services.SessionLockPort) error
	Lock(port services.SessionLockPort)
}

// PINSetter stores the vault PIN
type PINSetter interface {
	SetPIN(ctx context.Context, userID, pin, alertEmail string) error
}

// SecurityHandler serves the PIN and session lock endpoints
type SecurityHandler struct {
	session SessionService
	pins    PINSetter
	ports   SessionPorts
}

func NewSecurityHandler(session SessionService, pins PINSetter, ports SessionPorts) *SecurityHandler {
	return &SecurityHandler{session: session, pins: pins, ports: ports}
}

// Status reports whether a PIN exists and whether this session is unlocked
//
// @Router /security/status [get]
func (h *SecurityHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.session.Status(r.Context(), userID, h.ports(w, r, userID))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionStatusResponse{
		HasPIN:   status.HasPIN,
		Unlocked: status.Unlocked,
		State:    string(status.State),
	})
}

// SetPIN sets the first PIN or replaces it. Replacing requires an unlocked
// session. The session is not unlocked by this call.
//
// @Router /security/pin [post]
func (h *SecurityHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req SetPINRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	status, err := h.session.Status(r.Context(), userID, h.ports(w, r, userID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if status.State == models.LockStateLocked {
		writeServiceError(w, models.ErrLocked)
		return
	}

	if err := h.pins.SetPIN(r.Context(), userID, req.PIN, req.AlertEmail); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteAction(w, http.StatusOK, "PIN Setup Successful")
}

// Unlock verifies a PIN guess and sets the unlock cookie on success
//
// @Router /security/unlock [post]
func (h *SecurityHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UnlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	if err := h.session.Unlock(r.Context(), userID, req.PIN, h.ports(w, r, userID)); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteAction(w, http.StatusOK, "Vault Unlocked")
}

// Lock clears the unlock cookie. It never fails for an authenticated caller.
//
// @Router /security/lock [post]
func (h *SecurityHandler) Lock(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)
	h.session.Lock(h.ports(w, r, userID))
	pkghttp.WriteAction(w, http.StatusOK, "Vault Locked")
}
