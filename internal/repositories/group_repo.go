package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/vaultgate/internal/database"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GroupRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewGroupRepository(db *database.DB) *GroupRepository {
	return &GroupRepository{db: db, pool: db.Pool}
}

const groupSummarySelect = `
	SELECT g.id, g.user_id, g.name, g.created_at, COUNT(a.id)
	FROM account_groups g
	LEFT JOIN saved_accounts a ON a.group_id = g.id AND a.user_id = g.user_id`

func scanGroupRow(scanner rowScanner) (*models.Group, error) {
	var group models.Group
	if err := scanner.Scan(&group.ID, &group.UserID, &group.Name, &group.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &group, nil
}

func scanGroupSummaryRow(scanner rowScanner) (*models.GroupSummary, error) {
	var summary models.GroupSummary
	err := scanner.Scan(&summary.ID, &summary.UserID, &summary.Name, &summary.CreatedAt, &summary.AccountCount)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &summary, nil
}

func (r *GroupRepository) Create(ctx context.Context, userID, name string) (*models.Group, error) {
	return insertGroup(ctx, r.pool, userID, name)
}

func insertGroup(ctx context.Context, q querier, userID, name string) (*models.Group, error) {
	sql := `
		INSERT INTO account_groups (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, created_at
	`
	group, err := scanGroupRow(q.QueryRow(ctx, sql, uuid.New(), userID, name, time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

// GetByID returns a group owned by userID with its account count.
func (r *GroupRepository) GetByID(ctx context.Context, userID, id string) (*models.GroupSummary, error) {
	groupID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	sql := groupSummarySelect + ` WHERE g.id = $1 AND g.user_id = $2 GROUP BY g.id`
	return scanGroupSummaryRow(r.pool.QueryRow(ctx, sql, groupID, userID))
}

// List returns every group of userID with account counts, oldest first.
func (r *GroupRepository) List(ctx context.Context, userID string) ([]*models.GroupSummary, error) {
	sql := groupSummarySelect + ` WHERE g.user_id = $1 GROUP BY g.id ORDER BY g.created_at ASC, g.id ASC`

	rows, err := r.pool.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*models.GroupSummary, 0)
	for rows.Next() {
		group, err := scanGroupSummaryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return groups, nil
}

func (r *GroupRepository) Rename(ctx context.Context, userID, id, name string) (*models.Group, error) {
	groupID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	sql := `
		UPDATE account_groups SET name = $3
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, created_at
	`
	return scanGroupRow(r.pool.QueryRow(ctx, sql, groupID, userID, name))
}

// DeleteMany ejects the member accounts of the listed groups owned by userID,
// then deletes the groups, in one transaction. Accounts are never deleted.
func (r *GroupRepository) DeleteMany(ctx context.Context, userID string, ids []string) (ejected, deleted int64, err error) {
	groupIDs := parseIDs(ids)

	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE saved_accounts SET group_id = NULL, updated_at = NOW()
			 WHERE group_id = ANY($1) AND user_id = $2`,
			groupIDs, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to eject group members: %w", err)
		}
		ejected = tag.RowsAffected()

		tag, err = tx.Exec(ctx,
			`DELETE FROM account_groups WHERE id = ANY($1) AND user_id = $2`,
			groupIDs, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete groups: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return ejected, deleted, nil
}
