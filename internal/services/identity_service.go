package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/pkg/logger"
	"github.com/go-playground/validator/v10"
)

var addressValidator = validator.New()

// EmailIdentityStore defines the interface for email identity data access
type EmailIdentityStore interface {
	Create(ctx context.Context, identity *models.EmailIdentity) (*models.EmailIdentity, error)
	GetByID(ctx context.Context, userID, id string) (*models.EmailIdentityView, error)
}

// NewEmailIdentity is the input for creating an email identity
type NewEmailIdentity struct {
	Email           string
	Name            string
	PhoneNumber     string
	IsVerified      bool
	Is2FAEnabled    bool
	RecoveryEmailID string
}

// IdentityService manages the email identities accounts are registered with
type IdentityService struct {
	emails       EmailIdentityStore
	audit        *logger.AuditLogger
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(emails EmailIdentityStore, audit *logger.AuditLogger, storeTimeout time.Duration, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		emails:       emails,
		audit:        audit,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Create stores a new email identity. The recovery email must be one of the
// user's own identities.
func (s *IdentityService) Create(ctx context.Context, userID string, in NewEmailIdentity) (*models.EmailIdentity, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}

	address := strings.TrimSpace(in.Email)
	if err := addressValidator.Var(address, "required,email"); err != nil {
		return nil, models.NewValidationError("Invalid email address")
	}

	identity := &models.EmailIdentity{
		UserID:       userID,
		Email:        address,
		Name:         optional(strings.TrimSpace(in.Name)),
		PhoneNumber:  optional(strings.TrimSpace(in.PhoneNumber)),
		IsVerified:   in.IsVerified,
		Is2FAEnabled: in.Is2FAEnabled,
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	if recoveryID := strings.TrimSpace(in.RecoveryEmailID); recoveryID != "" {
		if _, err := s.emails.GetByID(ctx, userID, recoveryID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.NewValidationError("Recovery email not found")
			}
			return nil, storeError(s.logger, "failed to get recovery email", err, slog.String("email_id", recoveryID))
		}
		identity.RecoveryEmailID = &recoveryID
	}

	created, err := s.emails.Create(ctx, identity)
	if err != nil {
		return nil, storeError(s.logger, "failed to create email identity", err, slog.String("user_id", userID))
	}

	s.audit.LogVaultAction(logger.ActionCreate, "email", userID, created.ID, map[string]string{"email": logger.SanitizedEmail(created.Email)})
	return created, nil
}
