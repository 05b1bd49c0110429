package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/pkg/logger"
)

// BulkAccountStore defines the batch account mutations
type BulkAccountStore interface {
	GetByID(ctx context.Context, userID, id string) (*models.AccountView, error)
	MoveToGroup(ctx context.Context, userID string, ids []string, groupID string) (int64, error)
	EjectFromGroup(ctx context.Context, userID string, ids []string) (int64, error)
	DeleteMany(ctx context.Context, userID string, ids []string) (int64, error)
}

// BulkGroupStore defines the batch group mutations
type BulkGroupStore interface {
	DeleteMany(ctx context.Context, userID string, ids []string) (ejected, deleted int64, err error)
}

// BulkService applies one mutation to many selected rows. Ids the caller does
// not own are skipped and not counted.
type BulkService struct {
	accounts     BulkAccountStore
	groups       BulkGroupStore
	audit        *logger.AuditLogger
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewBulkService creates a new BulkService
func NewBulkService(accounts BulkAccountStore, groups BulkGroupStore, audit *logger.AuditLogger, storeTimeout time.Duration, logger *slog.Logger) *BulkService {
	return &BulkService{
		accounts:     accounts,
		groups:       groups,
		audit:        audit,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

var errNoSelection = models.NewValidationError("No items selected")

var errGroupDestination = &models.NotFoundError{Message: "Group Destination Not Found"}

func formatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}

func checkSelection(userID string, ids []string) error {
	if userID == "" {
		return models.ErrUnauthorized
	}
	if len(ids) == 0 {
		return errNoSelection
	}
	return nil
}

// MoveToGroup moves the selected accounts into groupID
func (s *BulkService) MoveToGroup(ctx context.Context, userID string, ids []string, groupID string) (*models.BulkResult, error) {
	if err := checkSelection(userID, ids); err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	affected, err := s.accounts.MoveToGroup(ctx, userID, ids, groupID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, errGroupDestination
		}
		return nil, storeError(s.logger, "failed to move accounts", err, slog.String("user_id", userID))
	}

	s.audit.LogVaultAction(logger.ActionMove, "account", userID, "", map[string]string{"group_id": groupID, "count": formatCount(affected)})
	return &models.BulkResult{Affected: affected, Message: fmt.Sprintf("Moved %d accounts", affected)}, nil
}

// EjectFromGroup removes the selected accounts from their groups
func (s *BulkService) EjectFromGroup(ctx context.Context, userID string, ids []string) (*models.BulkResult, error) {
	if err := checkSelection(userID, ids); err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	affected, err := s.accounts.EjectFromGroup(ctx, userID, ids)
	if err != nil {
		return nil, storeError(s.logger, "failed to eject accounts", err, slog.String("user_id", userID))
	}

	s.audit.LogVaultAction(logger.ActionEject, "account", userID, "", map[string]string{"count": formatCount(affected)})
	return &models.BulkResult{Affected: affected, Message: fmt.Sprintf("Ejected %d accounts", affected)}, nil
}

// DeleteAccounts permanently deletes the selected accounts
func (s *BulkService) DeleteAccounts(ctx context.Context, userID string, ids []string) (*models.BulkResult, error) {
	if err := checkSelection(userID, ids); err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	affected, err := s.accounts.DeleteMany(ctx, userID, ids)
	if err != nil {
		return nil, storeError(s.logger, "failed to delete accounts", err, slog.String("user_id", userID))
	}

	s.audit.LogVaultAction(logger.ActionDelete, "account", userID, "", map[string]string{"count": formatCount(affected)})
	return &models.BulkResult{Affected: affected, Message: fmt.Sprintf("Deleted %d accounts", affected)}, nil
}

// DeleteGroups deletes the selected groups. Their accounts are ejected, not
// deleted.
func (s *BulkService) DeleteGroups(ctx context.Context, userID string, ids []string) (*models.BulkResult, error) {
	if err := checkSelection(userID, ids); err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	ejected, deleted, err := s.groups.DeleteMany(ctx, userID, ids)
	if err != nil {
		return nil, storeError(s.logger, "failed to delete groups", err, slog.String("user_id", userID))
	}

	s.audit.LogVaultAction(logger.ActionDelete, "group", userID, "", map[string]string{"count": formatCount(deleted), "ejected": formatCount(ejected)})
	return &models.BulkResult{Affected: deleted, Message: fmt.Sprintf("Deleted %d groups", deleted)}, nil
}

// MoveAccount moves a single account into groupID
func (s *BulkService) MoveAccount(ctx context.Context, userID, id, groupID string) (*models.BulkResult, error) {
	if _, err := s.account(ctx, userID, id); err != nil {
		return nil, err
	}

	result, err := s.MoveToGroup(ctx, userID, []string{id}, groupID)
	if err != nil {
		return nil, err
	}
	if result.Affected == 0 {
		return nil, models.ErrNotFound
	}
	result.Message = "Account moved to group"
	return result, nil
}

// EjectAccount removes a single account from its group
func (s *BulkService) EjectAccount(ctx context.Context, userID, id string) (*models.BulkResult, error) {
	account, err := s.account(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if account.GroupID == nil {
		return nil, models.NewValidationError("Account is not inside of group")
	}

	result, err := s.EjectFromGroup(ctx, userID, []string{id})
	if err != nil {
		return nil, err
	}
	result.Message = "Account ejected from group"
	return result, nil
}

func (s *BulkService) account(ctx context.Context, userID, id string) (*models.AccountView, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	account, err := s.accounts.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storeError(s.logger, "failed to get account", err, slog.String("account_id", id))
	}
	return account, nil
}
