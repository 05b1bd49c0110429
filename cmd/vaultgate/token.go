package main

import (
	"fmt"
	"time"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenExpiry time.Duration
)

// tokenCmd mints an access token. Accounts are managed by the identity
// provider that shares JWT_SECRET; this is for local use and scripting.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user id",
	RunE: func(cmd *cobra.Command, args []string) error {
		expiry := cfg.Auth.AccessTokenExpiry
		if tokenExpiry > 0 {
			expiry = tokenExpiry
		}

		token, err := auth.NewTokenManager(cfg.Auth.JWTSecret, expiry).GenerateAccessToken(tokenUserID, tokenEmail)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id to put in the subject claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "token lifetime (defaults to ACCESS_TOKEN_EXPIRY)")
	_ = tokenCmd.MarkFlagRequired("user")
}
