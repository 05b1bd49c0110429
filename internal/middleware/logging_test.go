package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T, handler http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	SecureLogger(logger, pkghttp.NewIPConfig(nil))(handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/emails?email=me@example.com", nil)

	entry := captureLog(t, okHandler(), req)

	assert.Equal(t, "/emails?[REDACTED]", entry["path"])
	assert.NotContains(t, entry["path"], "example.com")
}

func TestSecureLogger_KeepsPlainQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/accounts?page=2&sort=az", nil)

	entry := captureLog(t, okHandler(), req)

	assert.Equal(t, "/accounts?page=2&sort=az", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestSecureLogger_ServerErrorsLogAtError(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	entry := captureLog(t, failing, requestAs("user-1", "192.0.2.1:1000"))

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "192.0.2.1", entry["client_ip"])
}
