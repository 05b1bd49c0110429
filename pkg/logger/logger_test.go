package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedAudit() (*AuditLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestAuditLogger_LogPINEvent_FailureIsWarn(t *testing.T) {
	audit, buf := newBufferedAudit()

	audit.LogPINEvent(PINEvent{EventType: "pin_verify", UserID: "user-1", Success: false, FailureReason: "incorrect_pin", AttemptsRemaining: 3})

	line := decodeLine(t, buf)
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "pin", line["audit_type"])
	assert.Equal(t, "incorrect_pin", line["failure_reason"])
	assert.EqualValues(t, 3, line["attempts_remaining"])
}

func TestAuditLogger_LogVaultAction(t *testing.T) {
	audit, buf := newBufferedAudit()

	audit.LogVaultAction(ActionCreate, "account", "user-1", "acc-1", map[string]string{"platform": "GitHub"})

	line := decodeLine(t, buf)
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "CREATE", line["action"])
	assert.Equal(t, "account", line["entity_type"])
	assert.Equal(t, "acc-1", line["entity_id"])
	assert.Equal(t, "GitHub", line["platform"])
}

func TestSanitizedEmail(t *testing.T) {
	tests := map[string]string{
		"alice@example.com":   "a****@*******.com",
		"bo@mail.example.org": "b*@************.org",
		"x@localhost":         "x@localhost",
		"not-an-email":        "[invalid-email]",
		"@example.com":        "[invalid-email]",
		"a@b@c.com":           "[invalid-email]",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizedEmail(in), in)
	}
}

func TestHasSensitiveParam(t *testing.T) {
	assert.True(t, HasSensitiveParam("pin=123456"))
	assert.True(t, HasSensitiveParam("q=x&Token=abc"))
	assert.True(t, HasSensitiveParam("alert_email=a%40b.c"))
	assert.False(t, HasSensitiveParam("q=github&page=2"))
	assert.False(t, HasSensitiveParam("q=password"))
	assert.False(t, HasSensitiveParam(""))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
