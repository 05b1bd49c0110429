package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/BradenHooton/vaultgate/internal/config"
	"github.com/BradenHooton/vaultgate/internal/database"
	pkglogger "github.com/BradenHooton/vaultgate/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "vaultgate",
	Short:         "vaultgate is a personal credential vault API",
	Long:          `An HTTP+JSON API for storing saved accounts, groups and email identities behind a vault PIN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Every command except keygen needs the configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "keygen" {
			logger = pkglogger.New(os.Stderr, "info")
			return nil
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded

		logger = pkglogger.New(os.Stdout, cfg.Server.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd, keygenCmd)
}

// openDatabase connects using the loaded configuration
func openDatabase(ctx context.Context) (*database.DB, error) {
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
