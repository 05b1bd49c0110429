package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/query"
	"github.com/BradenHooton/vaultgate/pkg/logger"
	"gopkg.in/yaml.v3"
)

type ExportScope string

const (
	ExportAll    ExportScope = "all"
	ExportGroup  ExportScope = "group"
	ExportSingle ExportScope = "single"
	ExportEmails ExportScope = "emails"
)

// Encoding formats for export and import
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const defaultImportCategory = "Imported"

// TransferAccountStore defines the account storage used by import and export
type TransferAccountStore interface {
	GetByID(ctx context.Context, userID, id string) (*models.AccountView, error)
	List(ctx context.Context, c query.Criteria, sort query.Sort, limit, offset int) ([]*models.AccountView, error)
	Import(ctx context.Context, userID string, records []models.ImportRecord) (int, error)
}

// AccountExportRow is one exported account with its password in clear text
type AccountExportRow struct {
	PlatformName string `json:"platform_name" yaml:"platform_name"`
	Username     string `json:"username" yaml:"username"`
	Password     string `json:"password" yaml:"password"`
	Email        string `json:"email" yaml:"email"`
	Group        string `json:"group" yaml:"group"`
	Categories   string `json:"categories" yaml:"categories"`
	Website      string `json:"website" yaml:"website"`
	Description  string `json:"description" yaml:"description"`
}

// EmailExportRow is one exported email identity
type EmailExportRow struct {
	Name          string `json:"name" yaml:"name"`
	Email         string `json:"email" yaml:"email"`
	PhoneNumber   string `json:"phone_number" yaml:"phone_number"`
	TwoFactor     string `json:"two_factor" yaml:"two_factor"`
	Verified      string `json:"verified" yaml:"verified"`
	RecoveryEmail string `json:"recovery_email" yaml:"recovery_email"`
	TotalAccounts int    `json:"total_accounts" yaml:"total_accounts"`
}

// Export is the result of an export
type Export struct {
	Scope      ExportScope        `json:"scope" yaml:"scope"`
	ExportedAt time.Time          `json:"exported_at" yaml:"exported_at"`
	Accounts   []AccountExportRow `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	Emails     []EmailExportRow   `json:"emails,omitempty" yaml:"emails,omitempty"`
}

// Encode renders the export as JSON (the default) or YAML and returns the
// content type to serve it with.
func (e *Export) Encode(format string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return nil, "", fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to encode yaml: %w", err)
		}
		return buf.Bytes(), "application/yaml", nil
	default:
		data, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode json: %w", err)
		}
		return data, "application/json", nil
	}
}

// ImportRow is one row of an import file
type ImportRow struct {
	PlatformName string `json:"platform_name" yaml:"platform_name"`
	Username     string `json:"username" yaml:"username"`
	Password     string `json:"password" yaml:"password"`
	Email        string `json:"email" yaml:"email"`
	Group        string `json:"group" yaml:"group"`
	Categories   string `json:"categories" yaml:"categories"`
	Website      string `json:"website" yaml:"website"`
	Description  string `json:"description" yaml:"description"`
}

// ParseImport decodes import rows. Both a bare list and an export document
// (an object with an "accounts" list) are accepted.
func ParseImport(r io.Reader, format string) ([]ImportRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}

	var doc struct {
		Accounts []ImportRow `json:"accounts" yaml:"accounts"`
	}
	var rows []ImportRow

	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		if yaml.Unmarshal(data, &rows) == nil {
			return rows, nil
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, models.NewValidationError("Invalid import file")
		}
	default:
		if json.Unmarshal(data, &rows) == nil {
			return rows, nil
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, models.NewValidationError("Invalid import file")
		}
	}
	return doc.Accounts, nil
}

// TransferService imports and exports vault contents
type TransferService struct {
	accounts     TransferAccountStore
	groups       GroupReader
	emails       EmailReader
	cipher       SecretCipher
	gate         AccessGate
	audit        *logger.AuditLogger
	storeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewTransferService creates a new TransferService
func NewTransferService(accounts TransferAccountStore, groups GroupReader, emails EmailReader, cipher SecretCipher, gate AccessGate, audit *logger.AuditLogger, storeTimeout time.Duration, logger *slog.Logger) *TransferService {
	return &TransferService{
		accounts:     accounts,
		groups:       groups,
		emails:       emails,
		cipher:       cipher,
		gate:         gate,
		audit:        audit,
		storeTimeout: storeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Export collects the rows of one scope. Passwords that cannot be decrypted
// are exported empty.
func (s *TransferService) Export(ctx context.Context, userID string, port SessionLockPort, scope ExportScope, id string) (*Export, error) {
	if err := requireUnlocked(ctx, s.gate, userID, port); err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	out := &Export{Scope: scope, ExportedAt: s.now().UTC()}

	var (
		views []*models.AccountView
		err   error
	)

	switch scope {
	case ExportAll, "":
		out.Scope = ExportAll
		all := query.Criteria{UserID: userID, Group: query.PresenceAll, Email: query.PresenceAll, Password: query.PresenceAll}
		views, err = s.accounts.List(ctx, all, query.SortNewest, 0, 0)
	case ExportGroup:
		if _, err := s.groups.GetByID(ctx, userID, id); err != nil {
			return nil, storeError(s.logger, "failed to get group", err, slog.String("group_id", id))
		}
		views, err = s.accounts.List(ctx, query.InGroup(userID, id, ""), query.SortNewest, 0, 0)
	case ExportSingle:
		var view *models.AccountView
		if view, err = s.accounts.GetByID(ctx, userID, id); err == nil {
			views = []*models.AccountView{view}
		}
	case ExportEmails:
		emails, err := s.emails.List(ctx, userID)
		if err != nil {
			return nil, storeError(s.logger, "failed to list emails", err, slog.String("user_id", userID))
		}
		out.Emails = make([]EmailExportRow, 0, len(emails))
		for _, e := range emails {
			out.Emails = append(out.Emails, emailExportRow(e))
		}
		s.audit.LogVaultAction(logger.ActionExport, "email", userID, "", map[string]string{"count": formatCount(int64(len(out.Emails)))})
		return out, nil
	default:
		return nil, models.NewValidationError("Invalid export scope")
	}
	if err != nil {
		return nil, storeError(s.logger, "failed to load accounts for export", err, slog.String("user_id", userID))
	}

	out.Accounts = make([]AccountExportRow, 0, len(views))
	for _, v := range views {
		out.Accounts = append(out.Accounts, s.accountExportRow(v))
	}

	s.audit.LogVaultAction(logger.ActionExport, "account", userID, id, map[string]string{
		"scope": string(out.Scope),
		"count": formatCount(int64(len(out.Accounts))),
	})
	return out, nil
}

func (s *TransferService) accountExportRow(v *models.AccountView) AccountExportRow {
	row := AccountExportRow{
		PlatformName: v.PlatformName,
		Username:     v.Username,
		Email:        deref(v.EmailAddress),
		Group:        deref(v.GroupName),
		Categories:   strings.Join(v.Categories, ", "),
		Website:      deref(v.Website),
		Description:  deref(v.Description),
	}

	if v.EncryptedPassword != nil {
		password, err := s.cipher.Decrypt(*v.EncryptedPassword)
		if err != nil {
			s.logger.Warn("failed to decrypt password for export", slog.String("account_id", v.ID), slog.Any("error", err))
		} else {
			row.Password = password
		}
	}
	return row
}

func emailExportRow(e *models.EmailIdentityView) EmailExportRow {
	return EmailExportRow{
		Name:          deref(e.Name),
		Email:         e.Email,
		PhoneNumber:   deref(e.PhoneNumber),
		TwoFactor:     yesNo(e.Is2FAEnabled),
		Verified:      yesNo(e.IsVerified),
		RecoveryEmail: deref(e.RecoveryEmail),
		TotalAccounts: e.AccountCount,
	}
}

// Import stores rows as new accounts in one transaction. Rows without a
// platform or username are counted as failed and skipped.
func (s *TransferService) Import(ctx context.Context, userID string, rows []ImportRow, targetGroupID string) (*models.ImportResult, error) {
	if userID == "" {
		return nil, models.ErrUnauthorized
	}
	if len(rows) == 0 {
		return nil, models.NewValidationError("No data to import")
	}

	ctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()

	targetGroupID = strings.TrimSpace(targetGroupID)
	if targetGroupID != "" {
		if _, err := s.groups.GetByID(ctx, userID, targetGroupID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, errGroupDestination
			}
			return nil, storeError(s.logger, "failed to get group", err, slog.String("group_id", targetGroupID))
		}
	}

	records := make([]models.ImportRecord, 0, len(rows))
	failed := 0
	for _, row := range rows {
		record, ok, err := s.importRecord(row, targetGroupID)
		if err != nil {
			s.logger.Error("failed to encrypt imported password", slog.String("user_id", userID), slog.Any("error", err))
			return nil, models.ErrStore
		}
		if !ok {
			failed++
			continue
		}
		records = append(records, record)
	}

	succeeded := 0
	if len(records) > 0 {
		var err error
		succeeded, err = s.accounts.Import(ctx, userID, records)
		if err != nil {
			return nil, storeError(s.logger, "failed to import accounts", err, slog.String("user_id", userID))
		}
	}

	s.audit.LogVaultAction(logger.ActionImport, "account", userID, "", map[string]string{
		"succeeded": formatCount(int64(succeeded)),
		"failed":    formatCount(int64(failed)),
	})

	return &models.ImportResult{
		Succeeded: succeeded,
		Failed:    failed,
		Message:   fmt.Sprintf("Import Done: %d Success, %d Failed", succeeded, failed),
	}, nil
}

func (s *TransferService) importRecord(row ImportRow, targetGroupID string) (models.ImportRecord, bool, error) {
	platform := strings.TrimSpace(row.PlatformName)
	username := strings.TrimSpace(row.Username)
	if platform == "" || username == "" {
		return models.ImportRecord{}, false, nil
	}

	categories := cleanCategories(strings.Split(row.Categories, ","))
	if len(categories) == 0 {
		categories = []string{defaultImportCategory}
	}

	record := models.ImportRecord{
		PlatformName: platform,
		Username:     username,
		Categories:   categories,
		EmailAddress: strings.TrimSpace(row.Email),
		Website:      optional(strings.TrimSpace(row.Website)),
		Description:  optional(strings.TrimSpace(row.Description)),
	}
	if targetGroupID != "" {
		record.GroupID = targetGroupID
	} else {
		record.GroupName = strings.TrimSpace(row.Group)
	}

	if row.Password != "" {
		encrypted, err := s.cipher.Encrypt(row.Password)
		if err != nil {
			return models.ImportRecord{}, false, err
		}
		record.EncryptedPassword = &encrypted
	}

	return record, true, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
