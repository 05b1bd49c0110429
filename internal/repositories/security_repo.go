package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/vaultgate/internal/database"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityRepository stores the per-user PIN state.
type SecurityRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewSecurityRepository(db *database.DB) *SecurityRepository {
	return &SecurityRepository{db: db, pool: db.Pool}
}

const securityColumns = `user_id, encrypted_pin, pin_attempts, lockout_until, alert_email, updated_at`

func scanSecurityRow(scanner rowScanner) (*models.UserSecurity, error) {
	var s models.UserSecurity
	err := scanner.Scan(&s.UserID, &s.EncryptedPIN, &s.PINAttempts, &s.LockoutUntil, &s.AlertEmail, &s.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

// Get returns the security state of a user, or ErrNotFound if none was saved.
func (r *SecurityRepository) Get(ctx context.Context, userID string) (*models.UserSecurity, error) {
	sql := `SELECT ` + securityColumns + ` FROM user_security WHERE user_id = $1`
	return scanSecurityRow(r.pool.QueryRow(ctx, sql, userID))
}

// SetPIN stores a new encrypted PIN and clears attempts and lockout. Replacing
// a PIN also advances the unlock epoch.
func (r *SecurityRepository) SetPIN(ctx context.Context, userID, encryptedPIN string, alertEmail *string) error {
	sql := `
		INSERT INTO user_security (user_id, encrypted_pin, pin_attempts, lockout_until, alert_email, created_at, updated_at)
		VALUES ($1, $2, 0, NULL, $3, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET encrypted_pin = EXCLUDED.encrypted_pin,
			pin_attempts = 0,
			unlock_epoch = user_security.unlock_epoch + 1,
			lockout_until = NULL,
			alert_email = EXCLUDED.alert_email,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, sql, userID, encryptedPIN, alertEmail); err != nil {
		return fmt.Errorf("failed to set PIN: %w", database.MapPostgresError(err))
	}
	return nil
}

// UpdatePINState locks the user's row, hands the current state to fn and
// writes back the attempt counter and lockout when fn returns nil. Errors
// from fn roll back and are returned unchanged. Concurrent callers for the
// same user are serialized by the row lock.
func (r *SecurityRepository) UpdatePINState(ctx context.Context, userID string, fn func(*models.UserSecurity) error) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		state, err := scanSecurityRow(tx.QueryRow(ctx,
			`SELECT `+securityColumns+` FROM user_security WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}

		if err := fn(state); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE user_security SET pin_attempts = $2, lockout_until = $3, updated_at = NOW() WHERE user_id = $1`,
			userID, state.PINAttempts, state.LockoutUntil,
		)
		if err != nil {
			return fmt.Errorf("failed to update PIN state: %w", err)
		}
		return nil
	})
}

// UnlockEpoch returns the user's unlock epoch, 0 when no state was saved.
func (r *SecurityRepository) UnlockEpoch(ctx context.Context, userID string) (int64, error) {
	var epoch int64
	err := r.pool.QueryRow(ctx, `SELECT unlock_epoch FROM user_security WHERE user_id = $1`, userID).Scan(&epoch)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get unlock epoch: %w", database.MapPostgresError(err))
	}
	return epoch, nil
}

// BumpUnlockEpoch invalidates every unlock token issued so far. Users without
// saved state have nothing to invalidate.
func (r *SecurityRepository) BumpUnlockEpoch(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_security SET unlock_epoch = unlock_epoch + 1, updated_at = NOW() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to bump unlock epoch: %w", database.MapPostgresError(err))
	}
	return nil
}
