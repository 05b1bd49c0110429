package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPINService(repo *MockSecurityRepository, notifier LockoutNotifier, clock *testClock) *PINService {
	svc := NewPINService(repo, testCipher(), notifier, testAudit(), testLogger(), PINConfig{})
	if clock != nil {
		svc.SetClock(clock.Now)
	}
	return svc
}

// ============================================================================
// SetPIN
// ============================================================================

func TestPINService_SetPIN_RejectsInvalidFormat(t *testing.T) {
	svc := newTestPINService(NewMockSecurityRepository(), nil, nil)

	for _, pin := range []string{"", "12345", "1234567", "12a456", " 123456", "١٢٣٤٥٦"} {
		err := svc.SetPIN(context.Background(), "user-1", pin, "")

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation, "pin %q", pin)
		assert.Equal(t, "PIN must be 6 digits number", validation.Message)
	}
}

func TestPINService_SetPIN_StoresCiphertext(t *testing.T) {
	repo := NewMockSecurityRepository()
	svc := newTestPINService(repo, nil, nil)

	require.NoError(t, svc.SetPIN(context.Background(), "user-1", "123456", " alerts@example.com "))

	state := repo.States["user-1"]
	require.NotNil(t, state.EncryptedPIN)
	assert.NotEqual(t, "123456", *state.EncryptedPIN)
	assert.Equal(t, 0, state.PINAttempts)
	assert.Nil(t, state.LockoutUntil)
	require.NotNil(t, state.AlertEmail)
	assert.Equal(t, "alerts@example.com", *state.AlertEmail)

	hasPIN, err := svc.HasPIN(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, hasPIN)
}

func TestPINService_SetPIN_StoreError(t *testing.T) {
	repo := NewMockSecurityRepository()
	repo.SetPINErr = errors.New("connection refused")
	svc := newTestPINService(repo, nil, nil)

	err := svc.SetPIN(context.Background(), "user-1", "123456", "")

	assert.Equal(t, models.ErrStore, err)
}

func TestPINService_HasPIN_NoRow(t *testing.T) {
	svc := newTestPINService(NewMockSecurityRepository(), nil, nil)

	hasPIN, err := svc.HasPIN(context.Background(), "user-1")

	require.NoError(t, err)
	assert.False(t, hasPIN)
}

func TestPINService_HasPIN_StoreError(t *testing.T) {
	repo := NewMockSecurityRepository()
	repo.GetErr = errors.New("timeout")
	svc := newTestPINService(repo, nil, nil)

	_, err := svc.HasPIN(context.Background(), "user-1")

	assert.Equal(t, models.ErrStore, err)
}

// ============================================================================
// Verify
// ============================================================================

func TestPINService_Verify_NotSet(t *testing.T) {
	svc := newTestPINService(NewMockSecurityRepository(), nil, nil)

	err := svc.Verify(context.Background(), "user-1", "123456")

	assert.Equal(t, models.ErrPINNotSet, err)
	assert.Equal(t, "PIN not set", err.Error())
}

func TestPINService_Verify_Correct(t *testing.T) {
	repo := NewMockSecurityRepository()
	svc := newTestPINService(repo, nil, nil)
	require.NoError(t, svc.SetPIN(context.Background(), "user-1", "123456", ""))

	require.Error(t, svc.Verify(context.Background(), "user-1", "000000"))
	assert.Equal(t, 1, repo.States["user-1"].PINAttempts)

	require.NoError(t, svc.Verify(context.Background(), "user-1", "123456"))
	assert.Equal(t, 0, repo.States["user-1"].PINAttempts)
}

func TestPINService_Verify_LockoutTiming(t *testing.T) {
	repo := NewMockSecurityRepository()
	clock := newTestClock()
	notifier := &MockLockoutNotifier{}
	svc := newTestPINService(repo, notifier, clock)
	ctx := context.Background()
	require.NoError(t, svc.SetPIN(ctx, "user-1", "123456", "alerts@example.com"))

	for remaining := 4; remaining >= 1; remaining-- {
		err := svc.Verify(ctx, "user-1", "000000")

		var incorrect *models.IncorrectPINError
		require.ErrorAs(t, err, &incorrect)
		assert.Equal(t, remaining, incorrect.AttemptsRemaining)
	}

	err := svc.Verify(ctx, "user-1", "000000")
	var lockout *models.LockoutError
	require.ErrorAs(t, err, &lockout)
	assert.True(t, lockout.Triggered)
	assert.Equal(t, "Locked out for 1 minute", lockout.Error())
	assert.Equal(t, 0, repo.States["user-1"].PINAttempts)
	assert.Equal(t, []string{"alerts@example.com"}, notifier.Sent)

	// t=0: even the correct PIN is rejected and no attempt is consumed
	err = svc.Verify(ctx, "user-1", "123456")
	require.ErrorAs(t, err, &lockout)
	assert.False(t, lockout.Triggered)
	assert.Equal(t, 60, lockout.Seconds())
	assert.Equal(t, 0, repo.States["user-1"].PINAttempts)

	// t=30s
	clock.Advance(30 * time.Second)
	err = svc.Verify(ctx, "user-1", "123456")
	require.ErrorAs(t, err, &lockout)
	assert.Equal(t, 30, lockout.Seconds())
	assert.Equal(t, "Too many attempts. Try again in 30s", lockout.Error())

	// t=61s
	clock.Advance(31 * time.Second)
	require.NoError(t, svc.Verify(ctx, "user-1", "123456"))
	assert.Nil(t, repo.States["user-1"].LockoutUntil)
	assert.Len(t, notifier.Sent, 1)
}

func TestPINService_Verify_FailedAttemptAfterLockoutExpiryStartsOver(t *testing.T) {
	repo := NewMockSecurityRepository()
	clock := newTestClock()
	svc := newTestPINService(repo, nil, clock)
	ctx := context.Background()
	require.NoError(t, svc.SetPIN(ctx, "user-1", "123456", ""))

	for i := 0; i < 5; i++ {
		_ = svc.Verify(ctx, "user-1", "000000")
	}
	clock.Advance(61 * time.Second)

	err := svc.Verify(ctx, "user-1", "000000")

	var incorrect *models.IncorrectPINError
	require.ErrorAs(t, err, &incorrect)
	assert.Equal(t, 4, incorrect.AttemptsRemaining)
	assert.Nil(t, repo.States["user-1"].LockoutUntil)
}

func TestPINService_Verify_NotifierFailureKeepsOutcome(t *testing.T) {
	repo := NewMockSecurityRepository()
	notifier := &MockLockoutNotifier{Err: errors.New("ses unavailable")}
	svc := newTestPINService(repo, notifier, newTestClock())
	ctx := context.Background()
	require.NoError(t, svc.SetPIN(ctx, "user-1", "123456", "alerts@example.com"))

	var err error
	for i := 0; i < 5; i++ {
		err = svc.Verify(ctx, "user-1", "000000")
	}

	var lockout *models.LockoutError
	require.ErrorAs(t, err, &lockout)
	assert.True(t, lockout.Triggered)
	assert.NotNil(t, repo.States["user-1"].LockoutUntil)
}

func TestPINService_Verify_NoAlertWithoutEmail(t *testing.T) {
	repo := NewMockSecurityRepository()
	notifier := &MockLockoutNotifier{}
	svc := newTestPINService(repo, notifier, newTestClock())
	ctx := context.Background()
	require.NoError(t, svc.SetPIN(ctx, "user-1", "123456", ""))

	for i := 0; i < 5; i++ {
		_ = svc.Verify(ctx, "user-1", "000000")
	}

	assert.Empty(t, notifier.Sent)
}

func TestPINService_Verify_StoreError(t *testing.T) {
	repo := NewMockSecurityRepository()
	repo.UpdateErr = errors.New("deadlock detected")
	svc := newTestPINService(repo, nil, nil)

	err := svc.Verify(context.Background(), "user-1", "123456")

	assert.Equal(t, models.ErrStore, err)
}

func TestPINService_Verify_IsolatedPerUser(t *testing.T) {
	repo := NewMockSecurityRepository()
	svc := newTestPINService(repo, nil, newTestClock())
	ctx := context.Background()
	require.NoError(t, svc.SetPIN(ctx, "user-a", "111111", ""))
	require.NoError(t, svc.SetPIN(ctx, "user-b", "222222", ""))

	for i := 0; i < 5; i++ {
		_ = svc.Verify(ctx, "user-a", "000000")
	}

	assert.Error(t, svc.Verify(ctx, "user-b", "111111"))
	assert.NoError(t, svc.Verify(ctx, "user-b", "222222"))
}

func TestPINService_Verify_ConcurrentAttemptsTriggerOneLockout(t *testing.T) {
	repo := NewMockSecurityRepository()
	svc := newTestPINService(repo, nil, newTestClock())
	ctx := context.Background()
	require.NoError(t, svc.SetPIN(ctx, "user-1", "123456", ""))

	const attempts = 10
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Verify(ctx, "user-1", "000000")
		}(i)
	}
	wg.Wait()

	var incorrect, triggered, blocked int
	for _, err := range errs {
		var lockout *models.LockoutError
		var wrong *models.IncorrectPINError
		switch {
		case errors.As(err, &wrong):
			incorrect++
		case errors.As(err, &lockout) && lockout.Triggered:
			triggered++
		case errors.As(err, &lockout):
			blocked++
		}
	}

	assert.Equal(t, 4, incorrect)
	assert.Equal(t, 1, triggered)
	assert.Equal(t, 5, blocked)
}
