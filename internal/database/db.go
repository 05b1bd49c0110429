package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgErrorCodes maps the SQLSTATE codes callers can act on to model errors.
var pgErrorCodes = map[string]error{
	"23505": models.ErrConflict,   // unique_violation
	"23503": models.ErrBadRequest, // foreign_key_violation
	"23502": models.ErrBadRequest, // not_null_violation
	"23514": models.ErrBadRequest, // check_violation
	"22P02": models.ErrNotFound,   // invalid_text_representation (malformed uuid)
}

// MapPostgresError translates pgx errors into model errors. Anything not
// recognised is returned unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped, ok := pgErrorCodes[pgErr.Code]; ok {
			return mapped
		}
	}
	return err
}

// WithTransaction runs fn in a transaction and commits when fn returns nil.
// Errors from fn are returned as is.
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
