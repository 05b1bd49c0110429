package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-that-is-long-enough-for-hs256-signing"

func echoUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(GetUserID(r)))
	})
}

// ============================================================================
// TokenManager
// ============================================================================

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	tm := NewTokenManager(testJWTSecret, 15*time.Minute)

	token, err := tm.GenerateAccessToken("user-1", "alice@example.com")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_ValidateToken_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("another-secret-of-reasonable-length-1234", time.Minute).GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	_, err = NewTokenManager(testJWTSecret, time.Minute).ValidateToken(token)

	assert.Error(t, err)
}

func TestTokenManager_ValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager(testJWTSecret, -time.Minute)
	token, err := tm.GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)

	assert.Error(t, err)
}

func TestTokenManager_ValidateToken_SubjectFallback(t *testing.T) {
	claims := &models.TokenClaims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	got, err := NewTokenManager(testJWTSecret, time.Minute).ValidateToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-9", got.UserID)
}

// ============================================================================
// AuthMiddleware
// ============================================================================

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager(testJWTSecret, 15*time.Minute)
	valid, err := tm.GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	refreshClaims := &models.TokenClaims{
		Type:   "refresh",
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized, ""},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(tm)(echoUserHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestGetUserID_NoClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Equal(t, "", GetUserID(req))
	assert.Nil(t, GetUserFromContext(req))
}
