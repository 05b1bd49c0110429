package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	unlockTokenType = "unlock"
	unlockKeyInfo   = "vaultgate/session-unlock"
)

// KeyDeriver derives purpose-bound sub-keys from the vault key
type KeyDeriver interface {
	DeriveKey(info string) ([]byte, error)
}

// EpochStore keeps the per-user unlock epoch. Tokens signed under an older
// epoch no longer unlock the session.
type EpochStore interface {
	UnlockEpoch(ctx context.Context, userID string) (int64, error)
	BumpUnlockEpoch(ctx context.Context, userID string) error
}

// UnlockManager signs and checks the session unlock flag. The flag is bound
// to one user and one unlock epoch, and signed with a key derived from the
// vault key.
type UnlockManager struct {
	key    []byte
	epochs EpochStore
	cookie CookieConfig
	logger *slog.Logger
}

// NewUnlockManager derives the signing key from deriver
func NewUnlockManager(deriver KeyDeriver, epochs EpochStore, cookie CookieConfig, logger *slog.Logger) (*UnlockManager, error) {
	key, err := deriver.DeriveKey(unlockKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to derive unlock key: %w", err)
	}
	return &UnlockManager{key: key, epochs: epochs, cookie: cookie, logger: logger}, nil
}

// Sign returns an unlock token for userID under the current epoch
func (m *UnlockManager) Sign(ctx context.Context, userID string) (string, error) {
	epoch, err := m.epochs.UnlockEpoch(ctx, userID)
	if err != nil {
		return "", err
	}

	claims := &models.UnlockClaims{
		Type:  unlockTokenType,
		Epoch: epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign unlock token: %w", err)
	}
	return token, nil
}

// Valid reports whether token unlocks the session of userID. A store failure
// counts as locked.
func (m *UnlockManager) Valid(ctx context.Context, token, userID string) bool {
	if token == "" || userID == "" {
		return false
	}

	claims := &models.UnlockClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil || !parsed.Valid {
		return false
	}

	if claims.Type != unlockTokenType || claims.Subject != userID {
		return false
	}

	epoch, err := m.epochs.UnlockEpoch(ctx, userID)
	if err != nil {
		m.logger.Error("failed to load unlock epoch", slog.String("user_id", userID), slog.Any("error", err))
		return false
	}
	return claims.Epoch == epoch
}

// Revoke invalidates every unlock token issued to userID so far
func (m *UnlockManager) Revoke(ctx context.Context, userID string) error {
	return m.epochs.BumpUnlockEpoch(ctx, userID)
}

// For returns the unlock flag of one request
func (m *UnlockManager) For(w http.ResponseWriter, r *http.Request, userID string) *CookieSessionLock {
	return &CookieSessionLock{manager: m, w: w, r: r, userID: userID}
}

// CookieSessionLock keeps the unlock flag in a signed cookie
type CookieSessionLock struct {
	manager *UnlockManager
	w       http.ResponseWriter
	r       *http.Request
	userID  string

	// set once the flag was changed in this request
	changed  bool
	unlocked bool
}

func (l *CookieSessionLock) IsUnlocked() bool {
	if l.changed {
		return l.unlocked
	}
	token := GetUnlockCookie(l.r)
	return token != "" && l.manager.Valid(l.r.Context(), token, l.userID)
}

func (l *CookieSessionLock) SetUnlocked() error {
	token, err := l.manager.Sign(l.r.Context(), l.userID)
	if err != nil {
		return err
	}
	SetUnlockCookie(l.w, token, l.manager.cookie)
	l.changed, l.unlocked = true, true
	return nil
}

// ClearUnlocked drops the cookie and revokes copies of it held elsewhere.
func (l *CookieSessionLock) ClearUnlocked() {
	ClearUnlockCookie(l.w, l.manager.cookie)
	l.changed, l.unlocked = true, false

	if err := l.manager.Revoke(l.r.Context(), l.userID); err != nil {
		l.manager.logger.Error("failed to revoke unlock tokens", slog.String("user_id", l.userID), slog.Any("error", err))
	}
}
