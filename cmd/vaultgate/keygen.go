package main

import (
	"fmt"

	"github.com/BradenHooton/vaultgate/pkg/cipher"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a new random value for ENCRYPTION_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := cipher.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}
