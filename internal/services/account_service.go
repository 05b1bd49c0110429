package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/pkg/cipher"
	"github.com/BradenHooton/vaultgate/pkg/logger"
)

// AccountStore defines the interface for account data access
type AccountStore interface {
	GetByID(ctx context.Context, userID, id string) (*models.AccountView, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
	Delete(ctx context.Context, userID, id string) error
}

// TOTPProvider generates one-time codes from stored seeds
type TOTPProvider interface {
	NormalizeSecret(secret string) (string, error)
	Code(secret string, at time.Time) (code string, secondsRemaining int, err error)
	QRCode(accountName, secret string) (string, error)
}

// TOTPCode is the current code of an account and the seconds it stays valid
type TOTPCode struct {
	Code             string
	SecondsRemaining int
}

// AccountService handles account business logic
type AccountService struct {
	accounts     AccountStore
	groups       GroupReader
	emails       EmailReader
	cipher       SecretCipher
	totp         TOTPProvider
	gate         AccessGate
	audit        *logger.AuditLogger
	storeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts AccountStore, groups GroupReader, emails EmailReader, cipher SecretCipher, totp TOTPProvider, gate AccessGate, audit *logger.AuditLogger, storeTimeout time.Duration, logger *slog.Logger) *AccountService {
	return &AccountService{
		accounts:     accounts,
		groups:       groups,
		emails:       emails,
		cipher:       cipher,
		totp:         totp,
		gate:         gate,
		audit:        audit,
		storeTimeout: storeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// cleanCategories trims, drops blanks and de-duplicates
func cleanCategories(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Create validates and stores a new account
func (s *AccountService) Create(ctx context.Context, userID string, in models.NewAccount) (*models.Account, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}

	platform := strings.TrimSpace(in.PlatformName)
	username := strings.TrimSpace(in.Username)
	if platform == "" || username == "" {
		return nil, models.NewValidationError("Platform & Username are required")
	}

	categories := cleanCategories(in.Categories)
	if len(categories) == 0 {
		return nil, models.NewValidationError("Select at least 1 category")
	}

	if !in.NoPassword && in.Password == "" {
		return nil, models.NewValidationError("Password is required")
	}

	emailID := strings.TrimSpace(in.EmailID)
	if !in.NoEmail && emailID == "" {
		return nil, models.NewValidationError("Email is required")
	}

	account := &models.Account{
		UserID:       userID,
		PlatformName: platform,
		Username:     username,
		Categories:   categories,
		Website:      optional(strings.TrimSpace(in.Website)),
		Description:  optional(strings.TrimSpace(in.Description)),
		Icon:         optional(strings.TrimSpace(in.Icon)),
	}

	var err error
	if !in.NoPassword {
		if account.EncryptedPassword, err = s.encrypt(userID, in.Password); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(in.TOTPSecret) != "" {
		if account.EncryptedTOTPSecret, err = s.encryptTOTP(userID, in.TOTPSecret); err != nil {
			return nil, err
		}
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	if !in.NoEmail {
		if err := s.checkEmail(ctx, userID, emailID); err != nil {
			return nil, err
		}
		account.EmailID = &emailID
	}
	if groupID := strings.TrimSpace(in.GroupID); groupID != "" {
		if err := s.checkGroup(ctx, userID, groupID); err != nil {
			return nil, err
		}
		account.GroupID = &groupID
	}

	created, err := s.accounts.Create(ctx, account)
	if err != nil {
		return nil, storeError(s.logger, "failed to create account", err, slog.String("user_id", userID))
	}

	s.audit.LogVaultAction(logger.ActionCreate, "account", userID, created.ID, map[string]string{"platform": created.PlatformName})
	return created, nil
}

// Update applies a partial update. Flags win over values. The result carries
// the account's contents, so a locked session is refused first.
func (s *AccountService) Update(ctx context.Context, userID string, port SessionLockPort, id string, in models.AccountUpdate) (*models.Account, error) {
	if err := requireUnlocked(ctx, s.gate, userID, port); err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	existing, err := s.accounts.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storeError(s.logger, "failed to get account", err, slog.String("account_id", id))
	}
	account := existing.Account

	if in.PlatformName != nil {
		account.PlatformName = strings.TrimSpace(*in.PlatformName)
	}
	if in.Username != nil {
		account.Username = strings.TrimSpace(*in.Username)
	}
	if account.PlatformName == "" || account.Username == "" {
		return nil, models.NewValidationError("Platform & Username are required")
	}

	if in.Categories != nil {
		categories := cleanCategories(in.Categories)
		if len(categories) == 0 {
			return nil, models.NewValidationError("Select at least 1 category")
		}
		account.Categories = categories
	}

	switch {
	case in.NoPassword:
		account.EncryptedPassword = nil
	case in.Password != nil && *in.Password != "":
		if account.EncryptedPassword, err = s.encrypt(userID, *in.Password); err != nil {
			return nil, err
		}
	}

	switch {
	case in.RemoveTOTP:
		account.EncryptedTOTPSecret = nil
	case in.TOTPSecret != nil && strings.TrimSpace(*in.TOTPSecret) != "":
		if account.EncryptedTOTPSecret, err = s.encryptTOTP(userID, *in.TOTPSecret); err != nil {
			return nil, err
		}
	}

	switch {
	case in.NoEmail:
		account.EmailID = nil
	case in.EmailID != nil && strings.TrimSpace(*in.EmailID) != "":
		emailID := strings.TrimSpace(*in.EmailID)
		if err := s.checkEmail(ctx, userID, emailID); err != nil {
			return nil, err
		}
		account.EmailID = &emailID
	}

	if in.Website != nil {
		account.Website = optional(strings.TrimSpace(*in.Website))
	}
	if in.Description != nil {
		account.Description = optional(strings.TrimSpace(*in.Description))
	}
	switch {
	case in.RemoveIcon:
		account.Icon = nil
	case in.Icon != nil && strings.TrimSpace(*in.Icon) != "":
		account.Icon = optional(strings.TrimSpace(*in.Icon))
	}

	updated, err := s.accounts.Update(ctx, &account)
	if err != nil {
		return nil, storeError(s.logger, "failed to update account", err, slog.String("account_id", id))
	}

	s.audit.LogVaultAction(logger.ActionUpdate, "account", userID, updated.ID, nil)
	return updated, nil
}

// Delete permanently deletes one account
func (s *AccountService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return models.ErrUnauthorized
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	if err := s.accounts.Delete(ctx, userID, id); err != nil {
		return storeError(s.logger, "failed to delete account", err, slog.String("account_id", id))
	}

	s.audit.LogVaultAction(logger.ActionDelete, "account", userID, id, nil)
	return nil
}

// Get returns one account with its email and group summaries
func (s *AccountService) Get(ctx context.Context, userID string, port SessionLockPort, id string) (*models.AccountView, error) {
	if err := requireUnlocked(ctx, s.gate, userID, port); err != nil {
		return nil, err
	}
	return s.get(ctx, userID, id)
}

func (s *AccountService) get(ctx context.Context, userID, id string) (*models.AccountView, error) {
	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	view, err := s.accounts.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storeError(s.logger, "failed to get account", err, slog.String("account_id", id))
	}
	return view, nil
}

// RevealPassword returns the decrypted password, or "" when there is none
// or it cannot be decrypted
func (s *AccountService) RevealPassword(ctx context.Context, userID string, port SessionLockPort, id string) (string, error) {
	if err := requireUnlocked(ctx, s.gate, userID, port); err != nil {
		return "", err
	}

	view, err := s.get(ctx, userID, id)
	if err != nil {
		return "", err
	}

	s.audit.LogVaultAction(logger.ActionReveal, "account", userID, id, map[string]string{"field": "password"})

	if !view.HasPassword() {
		return "", nil
	}
	return s.decryptOrEmpty(userID, id, *view.EncryptedPassword), nil
}

func (s *AccountService) decryptOrEmpty(userID, id, ciphertext string) string {
	plaintext, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, cipher.ErrDecryption) {
			level = slog.LevelWarn
		}
		s.logger.Log(context.Background(), level, "failed to decrypt password",
			slog.String("user_id", userID), slog.String("account_id", id), slog.Any("error", err))
		return ""
	}
	return plaintext
}

// TOTPCode returns the current one-time code of an account
func (s *AccountService) TOTPCode(ctx context.Context, userID string, port SessionLockPort, id string) (*TOTPCode, error) {
	_, secret, err := s.totpSecret(ctx, userID, port, id)
	if err != nil {
		return nil, err
	}

	code, remaining, err := s.totp.Code(secret, s.now())
	if err != nil {
		s.logger.Error("failed to generate TOTP code", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrStore
	}

	return &TOTPCode{Code: code, SecondsRemaining: remaining}, nil
}

// TOTPQRCode returns a PNG data URL of the account's otpauth URI
func (s *AccountService) TOTPQRCode(ctx context.Context, userID string, port SessionLockPort, id string) (string, error) {
	view, secret, err := s.totpSecret(ctx, userID, port, id)
	if err != nil {
		return "", err
	}

	s.audit.LogVaultAction(logger.ActionReveal, "account", userID, id, map[string]string{"field": "totp"})

	dataURL, err := s.totp.QRCode(view.PlatformName+" ("+view.Username+")", secret)
	if err != nil {
		s.logger.Error("failed to generate TOTP QR code", slog.String("account_id", id), slog.Any("error", err))
		return "", models.ErrStore
	}
	return dataURL, nil
}

func (s *AccountService) totpSecret(ctx context.Context, userID string, port SessionLockPort, id string) (*models.AccountView, string, error) {
	if err := requireUnlocked(ctx, s.gate, userID, port); err != nil {
		return nil, "", err
	}

	view, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	if !view.HasTOTP() {
		return nil, "", models.NewValidationError("TOTP is not configured")
	}

	secret, err := s.cipher.Decrypt(*view.EncryptedTOTPSecret)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.String("account_id", id), slog.Any("error", err))
		return nil, "", models.ErrStore
	}
	return view, secret, nil
}

func (s *AccountService) encrypt(userID, plaintext string) (*string, error) {
	ciphertext, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		s.logger.Error("failed to encrypt secret", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrStore
	}
	return &ciphertext, nil
}

func (s *AccountService) encryptTOTP(userID, secret string) (*string, error) {
	normalized, err := s.totp.NormalizeSecret(secret)
	if err != nil {
		return nil, models.NewValidationError("Invalid TOTP secret")
	}
	return s.encrypt(userID, normalized)
}

func (s *AccountService) checkEmail(ctx context.Context, userID, emailID string) error {
	if _, err := s.emails.GetByID(ctx, userID, emailID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewValidationError("Email not found")
		}
		return storeError(s.logger, "failed to get email", err, slog.String("email_id", emailID))
	}
	return nil
}

func (s *AccountService) checkGroup(ctx context.Context, userID, groupID string) error {
	if _, err := s.groups.GetByID(ctx, userID, groupID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewValidationError("Group not found")
		}
		return storeError(s.logger, "failed to get group", err, slog.String("group_id", groupID))
	}
	return nil
}
