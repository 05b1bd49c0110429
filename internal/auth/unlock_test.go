package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BradenHooton/vaultgate/pkg/cipher"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryEpochs implements EpochStore for testing
type memoryEpochs struct {
	mu     sync.Mutex
	epochs map[string]int64
	err    error
}

func newMemoryEpochs() *memoryEpochs {
	return &memoryEpochs{epochs: map[string]int64{}}
}

func (m *memoryEpochs) UnlockEpoch(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epochs[userID], m.err
}

func (m *memoryEpochs) BumpUnlockEpoch(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.epochs[userID]++
	return nil
}

func newTestUnlockManager(t *testing.T, seed byte) *UnlockManager {
	t.Helper()
	return newTestUnlockManagerWith(t, seed, newMemoryEpochs())
}

func newTestUnlockManagerWith(t *testing.T, seed byte, epochs EpochStore) *UnlockManager {
	t.Helper()
	key := make([]byte, cipher.KeyLength)
	for i := range key {
		key[i] = seed + byte(i)
	}
	c, err := cipher.New(key)
	require.NoError(t, err)

	m, err := NewUnlockManager(c, epochs, CookieConfig{Secure: true, SameSite: "lax"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return m
}

func unlockCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == UnlockCookieName {
			return c
		}
	}
	return nil
}

func TestUnlockManager_BoundToUser(t *testing.T) {
	m := newTestUnlockManager(t, 0)

	token, err := m.Sign(context.Background(), "user-a")
	require.NoError(t, err)

	assert.True(t, m.Valid(context.Background(), token, "user-a"))
	assert.False(t, m.Valid(context.Background(), token, "user-b"))
	assert.False(t, m.Valid(context.Background(), "", "user-a"))
	assert.False(t, m.Valid(context.Background(), token, ""))
}

func TestUnlockManager_RejectsForeignAndTamperedTokens(t *testing.T) {
	m := newTestUnlockManager(t, 0)
	other := newTestUnlockManager(t, 100)

	foreign, err := other.Sign(context.Background(), "user-a")
	require.NoError(t, err)
	assert.False(t, m.Valid(context.Background(), foreign, "user-a"))

	token, err := m.Sign(context.Background(), "user-a")
	require.NoError(t, err)
	tampered := token[:len(token)-2] + "xx"
	assert.False(t, m.Valid(context.Background(), tampered, "user-a"))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-a", "typ": "unlock"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, m.Valid(context.Background(), unsigned, "user-a"))
}

func TestCookieSessionLock_SetAndRead(t *testing.T) {
	m := newTestUnlockManager(t, 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/security/unlock", nil)
	lock := m.For(rec, req, "user-a")

	assert.False(t, lock.IsUnlocked())
	require.NoError(t, lock.SetUnlocked())
	assert.True(t, lock.IsUnlocked())

	cookie := unlockCookieFrom(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Zero(t, cookie.MaxAge)
	assert.True(t, cookie.Expires.IsZero())

	next := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	next.AddCookie(cookie)
	assert.True(t, m.For(httptest.NewRecorder(), next, "user-a").IsUnlocked())
	assert.False(t, m.For(httptest.NewRecorder(), next, "user-b").IsUnlocked())
}

func TestCookieSessionLock_Clear(t *testing.T) {
	m := newTestUnlockManager(t, 0)
	token, err := m.Sign(context.Background(), "user-a")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/security/lock", nil)
	req.AddCookie(&http.Cookie{Name: UnlockCookieName, Value: token})
	rec := httptest.NewRecorder()
	lock := m.For(rec, req, "user-a")

	require.True(t, lock.IsUnlocked())
	lock.ClearUnlocked()

	assert.False(t, lock.IsUnlocked())
	cookie := unlockCookieFrom(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Empty(t, cookie.Value)
}

func TestCookieSessionLock_ClearRevokesCopiedCookie(t *testing.T) {
	m := newTestUnlockManager(t, 0)
	token, err := m.Sign(context.Background(), "user-a")
	require.NoError(t, err)

	copied := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	copied.AddCookie(&http.Cookie{Name: UnlockCookieName, Value: token})
	require.True(t, m.For(httptest.NewRecorder(), copied, "user-a").IsUnlocked())

	lockReq := httptest.NewRequest(http.MethodPost, "/security/lock", nil)
	lockReq.AddCookie(&http.Cookie{Name: UnlockCookieName, Value: token})
	m.For(httptest.NewRecorder(), lockReq, "user-a").ClearUnlocked()

	assert.False(t, m.For(httptest.NewRecorder(), copied, "user-a").IsUnlocked())

	// unlocking again issues a token for the new epoch
	rec := httptest.NewRecorder()
	require.NoError(t, m.For(rec, httptest.NewRequest(http.MethodPost, "/security/unlock", nil), "user-a").SetUnlocked())
	fresh := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	fresh.AddCookie(unlockCookieFrom(rec))
	assert.True(t, m.For(httptest.NewRecorder(), fresh, "user-a").IsUnlocked())
}

func TestUnlockManager_EpochChangeInvalidatesTokens(t *testing.T) {
	epochs := newMemoryEpochs()
	m := newTestUnlockManagerWith(t, 0, epochs)
	ctx := context.Background()

	token, err := m.Sign(ctx, "user-a")
	require.NoError(t, err)
	other, err := m.Sign(ctx, "user-b")
	require.NoError(t, err)

	// e.g. a replaced PIN
	require.NoError(t, epochs.BumpUnlockEpoch(ctx, "user-a"))

	assert.False(t, m.Valid(ctx, token, "user-a"))
	assert.True(t, m.Valid(ctx, other, "user-b"))
}

func TestUnlockManager_EpochStoreFailureIsLocked(t *testing.T) {
	epochs := newMemoryEpochs()
	m := newTestUnlockManagerWith(t, 0, epochs)
	token, err := m.Sign(context.Background(), "user-a")
	require.NoError(t, err)

	epochs.err = errors.New("connection refused")

	assert.False(t, m.Valid(context.Background(), token, "user-a"))
	_, err = m.Sign(context.Background(), "user-a")
	assert.Error(t, err)
}
