package models

import "time"

// UserSecurity is the per-user PIN state. Only the PIN guard mutates it.
type UserSecurity struct {
	UserID       string
	EncryptedPIN *string
	PINAttempts  int
	LockoutUntil *time.Time
	AlertEmail   *string
	UpdatedAt    time.Time
}

// HasPIN reports whether a PIN is configured.
func (s *UserSecurity) HasPIN() bool {
	return s != nil && s.EncryptedPIN != nil
}

// LockedAt reports whether a lockout is active at t and how long is left.
func (s *UserSecurity) LockedAt(t time.Time) (bool, time.Duration) {
	if s.LockoutUntil == nil || !t.Before(*s.LockoutUntil) {
		return false, 0
	}
	return true, s.LockoutUntil.Sub(t)
}

// LockState is the session gate state.
type LockState string

const (
	LockStateNoPIN    LockState = "no_pin"
	LockStateLocked   LockState = "locked"
	LockStateUnlocked LockState = "unlocked"
)

// SessionStatus is reported to clients deciding whether to show the PIN prompt.
type SessionStatus struct {
	HasPIN   bool
	Unlocked bool
	State    LockState
}
