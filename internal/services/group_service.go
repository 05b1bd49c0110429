package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/pkg/logger"
)

// GroupStore defines the interface for group data access
type GroupStore interface {
	Create(ctx context.Context, userID, name string) (*models.Group, error)
	Rename(ctx context.Context, userID, id, name string) (*models.Group, error)
	DeleteMany(ctx context.Context, userID string, ids []string) (ejected, deleted int64, err error)
}

// GroupService handles group business logic
type GroupService struct {
	groups       GroupStore
	audit        *logger.AuditLogger
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewGroupService creates a new GroupService
func NewGroupService(groups GroupStore, audit *logger.AuditLogger, storeTimeout time.Duration, logger *slog.Logger) *GroupService {
	return &GroupService{
		groups:       groups,
		audit:        audit,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

func (s *GroupService) Create(ctx context.Context, userID, name string) (*models.Group, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Group Name Required")
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	group, err := s.groups.Create(ctx, userID, name)
	if err != nil {
		return nil, storeError(s.logger, "failed to create group", err, slog.String("user_id", userID))
	}

	s.audit.LogVaultAction(logger.ActionCreate, "group", userID, group.ID, map[string]string{"name": group.Name})
	return group, nil
}

func (s *GroupService) Rename(ctx context.Context, userID, id, name string) (*models.Group, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Group Name Required")
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	group, err := s.groups.Rename(ctx, userID, id, name)
	if err != nil {
		return nil, storeError(s.logger, "failed to rename group", err, slog.String("group_id", id))
	}

	s.audit.LogVaultAction(logger.ActionUpdate, "group", userID, id, map[string]string{"name": name})
	return group, nil
}

// Delete removes one group after ejecting its accounts
func (s *GroupService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return models.ErrUnauthorized
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	ejected, deleted, err := s.groups.DeleteMany(ctx, userID, []string{id})
	if err != nil {
		return storeError(s.logger, "failed to delete group", err, slog.String("group_id", id))
	}
	if deleted == 0 {
		return models.ErrNotFound
	}

	s.audit.LogVaultAction(logger.ActionDelete, "group", userID, id, map[string]string{"ejected": formatCount(ejected)})
	return nil
}
