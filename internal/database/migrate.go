package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/vaultgate/migrations"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies, rolls back or reports the embedded goose migrations.
// command is one of "up", "down" or "status".
func (db *DB) Migrate(ctx context.Context, command string) error {
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// goose works on database/sql; reuse the pool's connection settings.
	sqlDB := stdlib.OpenDB(*db.Pool.Config().ConnConfig)
	defer sqlDB.Close()

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, sqlDB, ".")
	case "down":
		err = goose.DownContext(ctx, sqlDB, ".")
	case "status":
		err = goose.StatusContext(ctx, sqlDB, ".")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migrate %s failed: %w", command, err)
	}

	db.logger.Info("migrations complete", slog.String("command", command))
	return nil
}
