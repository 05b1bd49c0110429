package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/vaultgate/internal/database"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db, pool: db.Pool}
}

// accountViewColumns projects an account with its email and group summaries.
const accountViewColumns = `
	a.id, a.user_id, a.platform_name, a.username, a.encrypted_password, a.encrypted_totp_secret,
	a.categories, a.email_id, a.group_id, a.website, a.description, a.icon, a.created_at, a.updated_at,
	e.email, g.name`

const accountViewFrom = `
	FROM saved_accounts a
	LEFT JOIN email_identities e ON e.id = a.email_id
	LEFT JOIN account_groups g ON g.id = a.group_id`

const accountColumns = `
	id, user_id, platform_name, username, encrypted_password, encrypted_totp_secret,
	categories, email_id, group_id, website, description, icon, created_at, updated_at`

func scanAccountFields(account *models.Account) []any {
	return []any{
		&account.ID, &account.UserID, &account.PlatformName, &account.Username,
		&account.EncryptedPassword, &account.EncryptedTOTPSecret, &account.Categories,
		&account.EmailID, &account.GroupID, &account.Website, &account.Description, &account.Icon,
		&account.CreatedAt, &account.UpdatedAt,
	}
}

// scanAccountRow populates an Account from a row selected with accountColumns
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	if err := scanner.Scan(scanAccountFields(&account)...); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &account, nil
}

// scanAccountViewRow populates an AccountView from a row selected with accountViewColumns
func scanAccountViewRow(scanner rowScanner) (*models.AccountView, error) {
	var view models.AccountView
	dest := append(scanAccountFields(&view.Account), &view.EmailAddress, &view.GroupName)
	if err := scanner.Scan(dest...); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &view, nil
}

// scanAccountViewRows iterates through rows and scans each into AccountView models
func scanAccountViewRows(rows pgx.Rows) ([]*models.AccountView, error) {
	defer rows.Close()

	views := make([]*models.AccountView, 0)
	for rows.Next() {
		view, err := scanAccountViewRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return views, nil
}

// Count returns the number of accounts matching c.
func (r *AccountRepository) Count(ctx context.Context, c query.Criteria) (int, error) {
	where, args := c.Where(0)
	sql := `SELECT COUNT(*) FROM saved_accounts a WHERE ` + where

	var count int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// List returns accounts matching c in the given order. A limit of zero or
// less returns every match.
func (r *AccountRepository) List(ctx context.Context, c query.Criteria, sort query.Sort, limit, offset int) ([]*models.AccountView, error) {
	where, args := c.Where(0)
	sql := `SELECT ` + accountViewColumns + accountViewFrom + ` WHERE ` + where + ` ORDER BY ` + sort.OrderBy()

	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountViewRows(rows)
}

// ListIDs returns the ids of every account matching c.
func (r *AccountRepository) ListIDs(ctx context.Context, c query.Criteria) ([]string, error) {
	where, args := c.Where(0)
	sql := `SELECT a.id FROM saved_accounts a WHERE ` + where + ` ORDER BY a.created_at DESC, a.id DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account ids: %w", err)
	}

	return scanIDs(rows)
}

func (r *AccountRepository) GetByID(ctx context.Context, userID, id string) (*models.AccountView, error) {
	accountID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	sql := `SELECT ` + accountViewColumns + accountViewFrom + ` WHERE a.id = $1 AND a.user_id = $2`
	return scanAccountViewRow(r.pool.QueryRow(ctx, sql, accountID, userID))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	return insertAccount(ctx, r.pool, account)
}

func insertAccount(ctx context.Context, q querier, account *models.Account) (*models.Account, error) {
	emailID, err := optionalID(account.EmailID)
	if err != nil {
		return nil, err
	}
	groupID, err := optionalID(account.GroupID)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	now := time.Now().UTC()

	sql := `
		INSERT INTO saved_accounts (id, user_id, platform_name, username, encrypted_password, encrypted_totp_secret,
			categories, email_id, group_id, website, description, icon, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING ` + accountColumns

	return scanAccountRow(q.QueryRow(ctx, sql,
		id, account.UserID, account.PlatformName, account.Username,
		account.EncryptedPassword, account.EncryptedTOTPSecret, account.Categories,
		emailID, groupID, account.Website, account.Description, account.Icon, now,
	))
}

// Update writes every mutable column of an account owned by account.UserID.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	accountID, err := parseID(account.ID)
	if err != nil {
		return nil, err
	}
	emailID, err := optionalID(account.EmailID)
	if err != nil {
		return nil, err
	}
	groupID, err := optionalID(account.GroupID)
	if err != nil {
		return nil, err
	}

	sql := `
		UPDATE saved_accounts
		SET platform_name = $3, username = $4, encrypted_password = $5, encrypted_totp_secret = $6,
			categories = $7, email_id = $8, group_id = $9, website = $10, description = $11, icon = $12,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, sql,
		accountID, account.UserID, account.PlatformName, account.Username,
		account.EncryptedPassword, account.EncryptedTOTPSecret, account.Categories,
		emailID, groupID, account.Website, account.Description, account.Icon,
	))
}

// SetGroup moves a single account, or ejects it when groupID is nil.
func (r *AccountRepository) SetGroup(ctx context.Context, userID, id string, groupID *string) error {
	var (
		affected int64
		err      error
	)
	if groupID == nil {
		affected, err = r.EjectFromGroup(ctx, userID, []string{id})
	} else {
		affected, err = r.MoveToGroup(ctx, userID, []string{id}, *groupID)
	}
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, userID, id string) error {
	affected, err := r.DeleteMany(ctx, userID, []string{id})
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MoveToGroup sets the group of every listed account owned by userID. The
// group row is share-locked for the duration of the update so it cannot be
// deleted in between. Returns ErrNotFound when the group is not the user's.
func (r *AccountRepository) MoveToGroup(ctx context.Context, userID string, ids []string, groupID string) (int64, error) {
	target, err := parseID(groupID)
	if err != nil {
		return 0, err
	}
	accountIDs := parseIDs(ids)

	var affected int64
	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM account_groups WHERE id = $1 AND user_id = $2 FOR SHARE`,
			target, userID,
		).Scan(&locked)
		if err != nil {
			return database.MapPostgresError(err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE saved_accounts SET group_id = $1, updated_at = NOW() WHERE id = ANY($2) AND user_id = $3`,
			target, accountIDs, userID,
		)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, models.ErrNotFound
		}
		return 0, fmt.Errorf("failed to move accounts: %w", err)
	}

	return affected, nil
}

// EjectFromGroup clears the group of every listed account owned by userID.
func (r *AccountRepository) EjectFromGroup(ctx context.Context, userID string, ids []string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE saved_accounts SET group_id = NULL, updated_at = NOW()
		 WHERE id = ANY($1) AND user_id = $2 AND group_id IS NOT NULL`,
		parseIDs(ids), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to eject accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteMany permanently deletes the listed accounts owned by userID.
func (r *AccountRepository) DeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM saved_accounts WHERE id = ANY($1) AND user_id = $2`,
		parseIDs(ids), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Import inserts prepared records in one transaction. Groups are resolved by
// id (when set) or found or created by name; emails are linked by address
// when the user owns one. Returns the number of inserted accounts.
func (r *AccountRepository) Import(ctx context.Context, userID string, records []models.ImportRecord) (int, error) {
	inserted := 0

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		groups := make(map[string]string)

		for _, rec := range records {
			account := &models.Account{
				UserID:            userID,
				PlatformName:      rec.PlatformName,
				Username:          rec.Username,
				EncryptedPassword: rec.EncryptedPassword,
				Categories:        rec.Categories,
				Website:           rec.Website,
				Description:       rec.Description,
			}

			switch {
			case rec.GroupID != "":
				account.GroupID = &rec.GroupID
			case rec.GroupName != "":
				id, ok := groups[rec.GroupName]
				if !ok {
					var err error
					id, err = findOrCreateGroup(ctx, tx, userID, rec.GroupName)
					if err != nil {
						return err
					}
					groups[rec.GroupName] = id
				}
				account.GroupID = &id
			}

			if rec.EmailAddress != "" {
				var emailID string
				err := tx.QueryRow(ctx,
					`SELECT id FROM email_identities WHERE user_id = $1 AND lower(email) = lower($2) LIMIT 1`,
					userID, rec.EmailAddress,
				).Scan(&emailID)
				switch {
				case err == nil:
					account.EmailID = &emailID
				case !errors.Is(err, pgx.ErrNoRows):
					return fmt.Errorf("failed to resolve email: %w", err)
				}
			}

			if _, err := insertAccount(ctx, tx, account); err != nil {
				return fmt.Errorf("failed to insert account: %w", err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func findOrCreateGroup(ctx context.Context, q querier, userID, name string) (string, error) {
	var id string
	err := q.QueryRow(ctx,
		`SELECT id FROM account_groups WHERE user_id = $1 AND name = $2 ORDER BY created_at LIMIT 1`,
		userID, name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to find group: %w", err)
	}

	group, err := insertGroup(ctx, q, userID, name)
	if err != nil {
		return "", err
	}
	return group.ID, nil
}
