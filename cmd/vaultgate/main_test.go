package main

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/BradenHooton/vaultgate/pkg/cipher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "token", "keygen"} {
		assert.True(t, names[want], want)
	}
}

func TestKeygen_PrintsUsableKey(t *testing.T) {
	out, err := run(t, "keygen")
	require.NoError(t, err)

	key := strings.TrimSpace(out)
	raw, err := base64.StdEncoding.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, raw, cipher.KeyLength)

	_, err = cipher.NewFromSecret(key)
	assert.NoError(t, err)
}

func TestMigrate_RejectsUnknownCommand(t *testing.T) {
	_, err := run(t, "migrate", "sideways")
	assert.Error(t, err)
}

func TestToken_IssuesValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cmd-test-secret-0123456789abcdefghij")
	t.Setenv("ENCRYPTION_KEY", "cmd-test-encryption-passphrase-long-enough")
	t.Setenv("DB_PASSWORD", "unused")

	out, err := run(t, "token", "--user", "user-7", "--email", "u7@example.com")
	require.NoError(t, err)

	token := strings.TrimSpace(out)
	assert.Equal(t, 3, len(strings.Split(token, ".")))
}
