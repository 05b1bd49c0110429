package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/pkg/logger"
)

const (
	// DefaultMaxPINAttempts is the number of wrong PINs allowed before a lockout.
	DefaultMaxPINAttempts = 5
	// DefaultLockoutDuration is how long a lockout lasts.
	DefaultLockoutDuration = time.Minute
)

var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

// SecurityRepository defines the interface for PIN state access
type SecurityRepository interface {
	Get(ctx context.Context, userID string) (*models.UserSecurity, error)
	SetPIN(ctx context.Context, userID, encryptedPIN string, alertEmail *string) error
	UpdatePINState(ctx context.Context, userID string, fn func(*models.UserSecurity) error) error
}

// SecretCipher encrypts secrets at rest
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PINConfig tunes the guard. Zero values fall back to the defaults.
type PINConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
	StoreTimeout    time.Duration
}

// PINService throttles PIN guesses and verifies the PIN
type PINService struct {
	repo     SecurityRepository
	cipher   SecretCipher
	notifier LockoutNotifier
	audit    *logger.AuditLogger
	logger   *slog.Logger
	config   PINConfig
	now      func() time.Time
}

// NewPINService creates a new PINService
func NewPINService(repo SecurityRepository, cipher SecretCipher, notifier LockoutNotifier, audit *logger.AuditLogger, logger *slog.Logger, config PINConfig) *PINService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxPINAttempts
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}
	if notifier == nil {
		notifier = NewLogLockoutNotifier(logger)
	}

	return &PINService{
		repo:     repo,
		cipher:   cipher,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *PINService) SetClock(now func() time.Time) {
	s.now = now
}

// HasPIN reports whether the user configured a PIN
func (s *PINService) HasPIN(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, models.ErrUnauthorized
	}

	ctx, cancel := storeContext(ctx, s.config.StoreTimeout)
	defer cancel()

	state, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, storeError(s.logger, "failed to load PIN state", err, slog.String("user_id", userID))
	}

	return state.HasPIN(), nil
}

// SetPIN stores a new PIN, resetting attempts and any lockout
func (s *PINService) SetPIN(ctx context.Context, userID, pin, alertEmail string) error {
	if userID == "" {
		return models.ErrUnauthorized
	}
	if !pinPattern.MatchString(pin) {
		return models.NewValidationError("PIN must be 6 digits number")
	}

	encrypted, err := s.cipher.Encrypt(pin)
	if err != nil {
		s.logger.Error("failed to encrypt PIN", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrStore
	}

	ctx, cancel := storeContext(ctx, s.config.StoreTimeout)
	defer cancel()

	if err := s.repo.SetPIN(ctx, userID, encrypted, optional(strings.TrimSpace(alertEmail))); err != nil {
		return storeError(s.logger, "failed to store PIN", err, slog.String("user_id", userID))
	}

	s.audit.LogPINEvent(logger.PINEvent{EventType: "pin_set", UserID: userID, Success: true})
	return nil
}

// Verify checks a candidate PIN. It returns nil on a match, ErrPINNotSet,
// *models.LockoutError or *models.IncorrectPINError otherwise.
func (s *PINService) Verify(ctx context.Context, userID, candidate string) error {
	if userID == "" {
		return models.ErrUnauthorized
	}

	ctx, cancel := storeContext(ctx, s.config.StoreTimeout)
	defer cancel()

	var (
		outcome   error
		triggered *time.Time
		alertTo   *string
	)

	err := s.repo.UpdatePINState(ctx, userID, func(state *models.UserSecurity) error {
		if !state.HasPIN() {
			return models.ErrPINNotSet
		}

		now := s.now()
		if locked, remaining := state.LockedAt(now); locked {
			return &models.LockoutError{Remaining: remaining}
		}

		stored, err := s.cipher.Decrypt(*state.EncryptedPIN)
		if err != nil {
			return err
		}

		if subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1 {
			state.PINAttempts = 0
			state.LockoutUntil = nil
			return nil
		}

		state.PINAttempts++
		if state.PINAttempts >= s.config.MaxAttempts {
			until := now.Add(s.config.LockoutDuration)
			state.PINAttempts = 0
			state.LockoutUntil = &until
			triggered = &until
			alertTo = state.AlertEmail
			outcome = &models.LockoutError{Remaining: s.config.LockoutDuration, Triggered: true}
			return nil
		}

		state.LockoutUntil = nil
		outcome = &models.IncorrectPINError{AttemptsRemaining: s.config.MaxAttempts - state.PINAttempts}
		return nil
	})

	if err != nil {
		var lockout *models.LockoutError
		switch {
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrPINNotSet):
			s.audit.LogPINEvent(logger.PINEvent{EventType: "pin_verify", UserID: userID, FailureReason: "pin_not_set"})
			return models.ErrPINNotSet
		case errors.As(err, &lockout):
			s.audit.LogPINEvent(logger.PINEvent{EventType: "pin_verify", UserID: userID, FailureReason: "locked_out", LockoutSeconds: lockout.Seconds()})
			return lockout
		default:
			s.logger.Error("failed to verify PIN", slog.String("user_id", userID), slog.Any("error", err))
			return models.ErrStore
		}
	}

	if outcome == nil {
		s.audit.LogPINEvent(logger.PINEvent{EventType: "pin_verify", UserID: userID, Success: true})
		return nil
	}

	var incorrect *models.IncorrectPINError
	if errors.As(outcome, &incorrect) {
		s.audit.LogPINEvent(logger.PINEvent{EventType: "pin_verify", UserID: userID, FailureReason: "incorrect_pin", AttemptsRemaining: incorrect.AttemptsRemaining})
		return outcome
	}

	s.audit.LogPINEvent(logger.PINEvent{
		EventType:      "pin_lockout",
		UserID:         userID,
		FailureReason:  "max_attempts",
		LockoutSeconds: int(s.config.LockoutDuration.Seconds()),
	})
	if triggered != nil && alertTo != nil {
		s.sendLockoutAlert(ctx, userID, *alertTo, *triggered)
	}
	return outcome
}

func (s *PINService) sendLockoutAlert(ctx context.Context, userID, recipient string, until time.Time) {
	if err := s.notifier.NotifyLockout(context.WithoutCancel(ctx), recipient, until); err != nil {
		s.logger.Warn("failed to send lockout alert",
			slog.String("user_id", userID),
			slog.String("recipient", logger.SanitizedEmail(recipient)),
			slog.Any("error", err))
	}
}
