package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/vaultgate/internal/database"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EmailIdentityRepository struct {
	pool *pgxpool.Pool
}

func NewEmailIdentityRepository(db *database.DB) *EmailIdentityRepository {
	return &EmailIdentityRepository{pool: db.Pool}
}

const emailViewSelect = `
	SELECT e.id, e.user_id, e.email, e.name, e.phone_number, e.is_verified, e.is_2fa_enabled,
		e.recovery_email_id, e.created_at, r.email,
		(SELECT COUNT(*) FROM saved_accounts a WHERE a.email_id = e.id AND a.user_id = e.user_id)
	FROM email_identities e
	LEFT JOIN email_identities r ON r.id = e.recovery_email_id`

func scanEmailViewRow(scanner rowScanner) (*models.EmailIdentityView, error) {
	var v models.EmailIdentityView
	err := scanner.Scan(
		&v.ID, &v.UserID, &v.Email, &v.Name, &v.PhoneNumber, &v.IsVerified, &v.Is2FAEnabled,
		&v.RecoveryEmailID, &v.CreatedAt, &v.RecoveryEmail, &v.AccountCount,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &v, nil
}

func (r *EmailIdentityRepository) Create(ctx context.Context, identity *models.EmailIdentity) (*models.EmailIdentity, error) {
	recoveryID, err := optionalID(identity.RecoveryEmailID)
	if err != nil {
		return nil, err
	}

	sql := `
		INSERT INTO email_identities (id, user_id, email, name, phone_number, is_verified, is_2fa_enabled, recovery_email_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, user_id, email, name, phone_number, is_verified, is_2fa_enabled, recovery_email_id, created_at
	`

	var created models.EmailIdentity
	err = r.pool.QueryRow(ctx, sql,
		uuid.New(), identity.UserID, identity.Email, identity.Name, identity.PhoneNumber,
		identity.IsVerified, identity.Is2FAEnabled, recoveryID, time.Now().UTC(),
	).Scan(
		&created.ID, &created.UserID, &created.Email, &created.Name, &created.PhoneNumber,
		&created.IsVerified, &created.Is2FAEnabled, &created.RecoveryEmailID, &created.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &created, nil
}

// GetByID returns an identity owned by userID.
func (r *EmailIdentityRepository) GetByID(ctx context.Context, userID, id string) (*models.EmailIdentityView, error) {
	emailID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return scanEmailViewRow(r.pool.QueryRow(ctx, emailViewSelect+` WHERE e.id = $1 AND e.user_id = $2`, emailID, userID))
}

// List returns every identity of userID, oldest first.
func (r *EmailIdentityRepository) List(ctx context.Context, userID string) ([]*models.EmailIdentityView, error) {
	rows, err := r.pool.Query(ctx, emailViewSelect+` WHERE e.user_id = $1 ORDER BY e.created_at ASC, e.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query email identities: %w", err)
	}
	defer rows.Close()

	out := make([]*models.EmailIdentityView, 0)
	for rows.Next() {
		v, err := scanEmailViewRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email identity: %w", err)
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}
