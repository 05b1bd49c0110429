package logger

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Vault actions recorded by LogVaultAction.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionMove   = "MOVE"
	ActionEject  = "EJECT"
	ActionImport = "IMPORT"
	ActionExport = "EXPORT"
	ActionReveal = "REVEAL"
)

// PINEvent describes a PIN setup, unlock attempt or lock.
type PINEvent struct {
	EventType         string
	UserID            string
	IPAddress         string
	Success           bool
	FailureReason     string
	AttemptsRemaining int
	LockoutSeconds    int
}

// AuditLogger writes security and vault audit records
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger: logger,
	}
}

// LogPINEvent logs PIN related events. Failures are logged at warn level.
func (al *AuditLogger) LogPINEvent(event PINEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "pin"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	if event.AttemptsRemaining > 0 {
		attrs = append(attrs, slog.Int("attempts_remaining", event.AttemptsRemaining))
	}
	if event.LockoutSeconds > 0 {
		attrs = append(attrs, slog.Int("lockout_seconds", event.LockoutSeconds))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogVaultAction logs a change to (or a read of secrets from) a vault entity.
func (al *AuditLogger) LogVaultAction(action, entityType, userID, entityID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "vault"),
		slog.String("action", action),
		slog.String("entity_type", entityType),
		slog.String("user_id", userID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if entityID != "" {
		attrs = append(attrs, slog.String("entity_id", entityID))
	}

	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		attrs = append(attrs, slog.String(key, metadata[key]))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
