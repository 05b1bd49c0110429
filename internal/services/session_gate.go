package services

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/vaultgate/internal/models"
)

// SessionLockPort is the session's unlock flag. The HTTP implementation is a
// signed cookie built per request.
type SessionLockPort interface {
	IsUnlocked() bool
	SetUnlocked() error
	ClearUnlocked()
}

// PINGuard is the part of PINService the gate depends on
type PINGuard interface {
	HasPIN(ctx context.Context, userID string) (bool, error)
	Verify(ctx context.Context, userID, candidate string) error
}

// SessionGate decides whether vault data may be read in a session
type SessionGate struct {
	pins   PINGuard
	logger *slog.Logger
}

// NewSessionGate creates a new SessionGate
func NewSessionGate(pins PINGuard, logger *slog.Logger) *SessionGate {
	return &SessionGate{
		pins:   pins,
		logger: logger,
	}
}

// State derives the lock state from PIN presence and the session flag
func (g *SessionGate) State(ctx context.Context, userID string, port SessionLockPort) (models.LockState, error) {
	hasPIN, err := g.pins.HasPIN(ctx, userID)
	if err != nil {
		return models.LockStateLocked, err
	}

	switch {
	case !hasPIN:
		return models.LockStateNoPIN, nil
	case port != nil && port.IsUnlocked():
		return models.LockStateUnlocked, nil
	default:
		return models.LockStateLocked, nil
	}
}

// Allow reports whether data queries may run. Errors mean not allowed.
func (g *SessionGate) Allow(ctx context.Context, userID string, port SessionLockPort) (bool, error) {
	state, err := g.State(ctx, userID, port)
	if err != nil {
		return false, err
	}
	return state != models.LockStateLocked, nil
}

// Status reports the session state for clients
func (g *SessionGate) Status(ctx context.Context, userID string, port SessionLockPort) (*models.SessionStatus, error) {
	state, err := g.State(ctx, userID, port)
	if err != nil {
		return nil, err
	}

	return &models.SessionStatus{
		HasPIN:   state != models.LockStateNoPIN,
		Unlocked: state == models.LockStateUnlocked,
		State:    state,
	}, nil
}

// Unlock verifies the PIN and marks the session unlocked
func (g *SessionGate) Unlock(ctx context.Context, userID, pin string, port SessionLockPort) error {
	if err := g.pins.Verify(ctx, userID, pin); err != nil {
		return err
	}

	if err := port.SetUnlocked(); err != nil {
		g.logger.Error("failed to set unlock flag", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrStore
	}

	g.logger.Info("vault unlocked", slog.String("user_id", userID))
	return nil
}

// Lock clears the unlock flag
func (g *SessionGate) Lock(port SessionLockPort) {
	port.ClearUnlocked()
}

// requireUnlocked guards single-resource reads. Locked sessions get ErrLocked.
func requireUnlocked(ctx context.Context, gate AccessGate, userID string, port SessionLockPort) error {
	if userID == "" {
		return models.ErrUnauthorized
	}
	ok, err := gate.Allow(ctx, userID, port)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrLocked
	}
	return nil
}
