package services

import (
	"context"
	"strings"
	"testing"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestTransferService(vault *memoryVault, gate AccessGate) *TransferService {
	return NewTransferService(vault.Accounts(), vault.Groups(), vault.Emails(), testCipher(), gate, testAudit(), 0, testLogger())
}

// ============================================================================
// Export
// ============================================================================

func TestTransferService_Export_DecryptFallback(t *testing.T) {
	vault := newMemoryVault()
	c := testCipher()
	good, err := c.Encrypt("hunter2")
	require.NoError(t, err)
	bad := "corrupted"

	group := vault.addGroup("user-1", "Work")
	email := vault.addEmail("user-1", "alice@example.com")
	a := vault.addAccount("user-1", "GitHub", "alice", group.ID, email.ID, "Work", "Dev")
	b := vault.addAccount("user-1", "GitLab", "alice", "", "")
	vault.accounts[a.ID].EncryptedPassword = &good
	vault.accounts[b.ID].EncryptedPassword = &bad
	vault.addAccount("user-2", "Bitbucket", "bob", "", "")

	svc := newTestTransferService(vault, &MockGate{})

	export, err := svc.Export(context.Background(), "user-1", &MockLockPort{}, ExportAll, "")

	require.NoError(t, err)
	require.Len(t, export.Accounts, 2)
	byPlatform := map[string]AccountExportRow{}
	for _, row := range export.Accounts {
		byPlatform[row.PlatformName] = row
	}
	assert.Equal(t, AccountExportRow{
		PlatformName: "GitHub",
		Username:     "alice",
		Password:     "hunter2",
		Email:        "alice@example.com",
		Group:        "Work",
		Categories:   "Work, Dev",
	}, byPlatform["GitHub"])
	assert.Equal(t, "", byPlatform["GitLab"].Password)
}

func TestTransferService_Export_Scopes(t *testing.T) {
	vault := newMemoryVault()
	group := vault.addGroup("user-1", "Work")
	inGroup := vault.addAccount("user-1", "Jira", "alice", group.ID, "")
	vault.addAccount("user-1", "GitHub", "alice", "", "")
	recovery := vault.addEmail("user-1", "backup@example.com")
	primary := vault.addEmail("user-1", "alice@example.com")
	vault.emails[primary.ID].RecoveryEmailID = &recovery.ID
	vault.emails[primary.ID].Is2FAEnabled = true
	svc := newTestTransferService(vault, &MockGate{})
	ctx := context.Background()
	port := &MockLockPort{}

	export, err := svc.Export(ctx, "user-1", port, ExportGroup, group.ID)
	require.NoError(t, err)
	require.Len(t, export.Accounts, 1)
	assert.Equal(t, "Jira", export.Accounts[0].PlatformName)

	export, err = svc.Export(ctx, "user-1", port, ExportSingle, inGroup.ID)
	require.NoError(t, err)
	require.Len(t, export.Accounts, 1)

	_, err = svc.Export(ctx, "user-2", port, ExportSingle, inGroup.ID)
	assert.Equal(t, models.ErrNotFound, err)

	_, err = svc.Export(ctx, "user-2", port, ExportGroup, group.ID)
	assert.Equal(t, models.ErrNotFound, err)

	export, err = svc.Export(ctx, "user-1", port, ExportEmails, "")
	require.NoError(t, err)
	require.Len(t, export.Emails, 2)
	assert.Equal(t, EmailExportRow{
		Email:         "alice@example.com",
		TwoFactor:     "Yes",
		Verified:      "No",
		RecoveryEmail: "backup@example.com",
	}, export.Emails[1])

	_, err = svc.Export(ctx, "user-1", port, ExportScope("everything"), "")
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestTransferService_Export_Locked(t *testing.T) {
	vault := newMemoryVault()
	vault.addAccount("user-1", "GitHub", "alice", "", "")
	svc := newTestTransferService(vault, lockedGate())

	_, err := svc.Export(context.Background(), "user-1", &MockLockPort{}, ExportAll, "")

	assert.Equal(t, models.ErrLocked, err)
}

func TestExport_Encode(t *testing.T) {
	export := &Export{Scope: ExportAll, Accounts: []AccountExportRow{{PlatformName: "GitHub", Username: "alice"}}}

	data, contentType, err := export.Encode("yaml")
	require.NoError(t, err)
	assert.Equal(t, "application/yaml", contentType)

	var decoded struct {
		Scope    string             `yaml:"scope"`
		Accounts []AccountExportRow `yaml:"accounts"`
	}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "all", decoded.Scope)
	assert.Equal(t, "GitHub", decoded.Accounts[0].PlatformName)

	data, contentType, err = export.Encode("")
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Contains(t, string(data), `"platform_name": "GitHub"`)
}

// ============================================================================
// Import
// ============================================================================

func TestParseImport(t *testing.T) {
	rows, err := ParseImport(strings.NewReader(`[{"platform_name":"GitHub","username":"alice"}]`), "json")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GitHub", rows[0].PlatformName)

	rows, err = ParseImport(strings.NewReader("accounts:\n  - platform_name: GitLab\n    username: bob\n"), "yaml")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0].Username)

	_, err = ParseImport(strings.NewReader(`{{{`), "json")
	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestTransferService_Import(t *testing.T) {
	vault := newMemoryVault()
	existing := vault.addGroup("user-1", "Work")
	email := vault.addEmail("user-1", "alice@example.com")
	svc := newTestTransferService(vault, &MockGate{})

	result, err := svc.Import(context.Background(), "user-1", []ImportRow{
		{PlatformName: "GitHub", Username: "alice", Password: "hunter2", Email: "ALICE@example.com", Group: "Work", Categories: "Dev, Work ,"},
		{PlatformName: "Steam", Username: "alice", Group: "Games"},
		{PlatformName: "", Username: "nobody"},
		{PlatformName: "Orphan", Username: "  "},
	}, "")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "Import Done: 2 Success, 2 Failed", result.Message)

	var github, steam *models.Account
	for _, a := range vault.accounts {
		switch a.PlatformName {
		case "GitHub":
			github = a
		case "Steam":
			steam = a
		}
	}
	require.NotNil(t, github)
	require.NotNil(t, steam)

	assert.Equal(t, existing.ID, *github.GroupID)
	assert.Equal(t, email.ID, *github.EmailID)
	assert.Equal(t, []string{"Dev", "Work"}, github.Categories)
	require.NotNil(t, github.EncryptedPassword)
	plaintext, err := testCipher().Decrypt(*github.EncryptedPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)

	assert.Equal(t, []string{"Imported"}, steam.Categories)
	assert.Nil(t, steam.EncryptedPassword)
	require.NotNil(t, steam.GroupID)
	assert.Equal(t, "Games", vault.groups[*steam.GroupID].Name)
}

func TestTransferService_Import_TargetGroup(t *testing.T) {
	vault := newMemoryVault()
	target := vault.addGroup("user-1", "Imported stuff")
	foreign := vault.addGroup("user-2", "Theirs")
	svc := newTestTransferService(vault, &MockGate{})
	ctx := context.Background()
	rows := []ImportRow{{PlatformName: "GitHub", Username: "alice", Group: "Ignored"}}

	_, err := svc.Import(ctx, "user-1", rows, foreign.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	result, err := svc.Import(ctx, "user-1", rows, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	for _, a := range vault.accounts {
		assert.Equal(t, target.ID, *a.GroupID)
	}
	assert.Len(t, vault.groups, 2)
}

func TestTransferService_Import_Empty(t *testing.T) {
	svc := newTestTransferService(newMemoryVault(), &MockGate{})

	_, err := svc.Import(context.Background(), "user-1", nil, "")

	var validation *models.ValidationError
	assert.ErrorAs(t, err, &validation)
}
