package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/query"
	"github.com/BradenHooton/vaultgate/internal/services"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   auth.TokenTypeAccess,
	}
	return req.WithContext(auth.WithUser(req.Context(), claims))
}

// WithChiRouteContext sets chi URL parameters on a request
//
//	req = WithChiRouteContext(req, map[string]string{"id": "acc-1"})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response and
// returns its message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) string {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp.Message
}

// MockPort is an in-memory unlock flag
type MockPort struct {
	Unlocked bool
	Cleared  bool
}

func (p *MockPort) IsUnlocked() bool { return p.Unlocked }

func (p *MockPort) SetUnlocked() error {
	p.Unlocked = true
	return nil
}

func (p *MockPort) ClearUnlocked() {
	p.Unlocked = false
	p.Cleared = true
}

// Ports returns a SessionPorts that always hands out p
func (p *MockPort) Ports() SessionPorts {
	return func(w http.ResponseWriter, r *http.Request, userID string) services.SessionLockPort {
		return p
	}
}

// MockSessionService implements SessionService for testing
type MockSessionService struct {
	StatusFunc func(ctx context.Context, userID string, port services.SessionLockPort) (*models.SessionStatus, error)
	UnlockFunc func(ctx context.Context, userID, pin string, port services.SessionLockPort) error
}

func (m *MockSessionService) Status(ctx context.Context, userID string, port services.SessionLockPort) (*models.SessionStatus, error) {
	if m.StatusFunc == nil {
		return &models.SessionStatus{State: models.LockStateNoPIN}, nil
	}
	return m.StatusFunc(ctx, userID, port)
}

func (m *MockSessionService) Unlock(ctx context.Context, userID, pin string, port services.SessionLockPort) error {
	if m.UnlockFunc == nil {
		return port.SetUnlocked()
	}
	return m.UnlockFunc(ctx, userID, pin, port)
}

func (m *MockSessionService) Lock(port services.SessionLockPort) {
	port.ClearUnlocked()
}

// MockPINSetter implements PINSetter for testing
type MockPINSetter struct {
	SetPINFunc func(ctx context.Context, userID, pin, alertEmail string) error
}

func (m *MockPINSetter) SetPIN(ctx context.Context, userID, pin, alertEmail string) error {
	if m.SetPINFunc == nil {
		return nil
	}
	return m.SetPINFunc(ctx, userID, pin, alertEmail)
}

// MockListingService implements ListingService for testing. Unset funcs
// return empty results.
type MockListingService struct {
	ListAccountsFunc    func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.AccountPage, error)
	AccountIDsFunc      func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) ([]string, error)
	ListGroupsFunc      func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.GroupPage, error)
	GroupIDsFunc        func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) ([]string, error)
	GroupDetailFunc     func(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string, page int) (*models.GroupDetail, error)
	GroupAccountIDsFunc func(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string) ([]string, error)
	ListEmailsFunc      func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.EmailPage, error)
	DashboardFunc       func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.Dashboard, error)
}

func (m *MockListingService) ListAccounts(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.AccountPage, error) {
	if m.ListAccountsFunc == nil {
		return &models.AccountPage{Meta: models.EmptyPageMeta()}, nil
	}
	return m.ListAccountsFunc(ctx, userID, port, f)
}

func (m *MockListingService) AccountIDs(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) ([]string, error) {
	if m.AccountIDsFunc == nil {
		return nil, nil
	}
	return m.AccountIDsFunc(ctx, userID, port, f)
}

func (m *MockListingService) ListGroups(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.GroupPage, error) {
	if m.ListGroupsFunc == nil {
		return &models.GroupPage{Meta: models.EmptyPageMeta()}, nil
	}
	return m.ListGroupsFunc(ctx, userID, port, f)
}

func (m *MockListingService) GroupIDs(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) ([]string, error) {
	if m.GroupIDsFunc == nil {
		return nil, nil
	}
	return m.GroupIDsFunc(ctx, userID, port, f)
}

func (m *MockListingService) GroupDetail(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string, page int) (*models.GroupDetail, error) {
	if m.GroupDetailFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GroupDetailFunc(ctx, userID, port, groupID, text, page)
}

func (m *MockListingService) GroupAccountIDs(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string) ([]string, error) {
	if m.GroupAccountIDsFunc == nil {
		return nil, nil
	}
	return m.GroupAccountIDsFunc(ctx, userID, port, groupID, text)
}

func (m *MockListingService) ListEmails(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.EmailPage, error) {
	if m.ListEmailsFunc == nil {
		return &models.EmailPage{Meta: models.EmptyPageMeta()}, nil
	}
	return m.ListEmailsFunc(ctx, userID, port, f)
}

func (m *MockListingService) Dashboard(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.Dashboard, error) {
	if m.DashboardFunc == nil {
		return &models.Dashboard{
			Accounts:           models.AccountPage{Meta: models.EmptyPageMeta()},
			Groups:             models.GroupPage{Meta: models.EmptyPageMeta()},
			CombinedTotalPages: 1,
		}, nil
	}
	return m.DashboardFunc(ctx, userID, port, f)
}

// MockAccountService implements AccountService for testing
type MockAccountService struct {
	CreateFunc         func(ctx context.Context, userID string, in models.NewAccount) (*models.Account, error)
	UpdateFunc         func(ctx context.Context, userID string, port services.SessionLockPort, id string, in models.AccountUpdate) (*models.Account, error)
	DeleteFunc         func(ctx context.Context, userID, id string) error
	GetFunc            func(ctx context.Context, userID string, port services.SessionLockPort, id string) (*models.AccountView, error)
	RevealPasswordFunc func(ctx context.Context, userID string, port services.SessionLockPort, id string) (string, error)
	TOTPCodeFunc       func(ctx context.Context, userID string, port services.SessionLockPort, id string) (*services.TOTPCode, error)
	TOTPQRCodeFunc     func(ctx context.Context, userID string, port services.SessionLockPort, id string) (string, error)
}

func (m *MockAccountService) Create(ctx context.Context, userID string, in models.NewAccount) (*models.Account, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrStore
	}
	return m.CreateFunc(ctx, userID, in)
}

func (m *MockAccountService) Update(ctx context.Context, userID string, port services.SessionLockPort, id string, in models.AccountUpdate) (*models.Account, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, userID, port, id, in)
}

func (m *MockAccountService) Delete(ctx context.Context, userID, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, userID, id)
}

func (m *MockAccountService) Get(ctx context.Context, userID string, port services.SessionLockPort, id string) (*models.AccountView, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, userID, port, id)
}

func (m *MockAccountService) RevealPassword(ctx context.Context, userID string, port services.SessionLockPort, id string) (string, error) {
	if m.RevealPasswordFunc == nil {
		return "", models.ErrNotFound
	}
	return m.RevealPasswordFunc(ctx, userID, port, id)
}

func (m *MockAccountService) TOTPCode(ctx context.Context, userID string, port services.SessionLockPort, id string) (*services.TOTPCode, error) {
	if m.TOTPCodeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.TOTPCodeFunc(ctx, userID, port, id)
}

func (m *MockAccountService) TOTPQRCode(ctx context.Context, userID string, port services.SessionLockPort, id string) (string, error) {
	if m.TOTPQRCodeFunc == nil {
		return "", models.ErrNotFound
	}
	return m.TOTPQRCodeFunc(ctx, userID, port, id)
}

// MockBulkService implements BulkService for testing
type MockBulkService struct {
	MoveToGroupFunc    func(ctx context.Context, userID string, ids []string, groupID string) (*models.BulkResult, error)
	EjectFromGroupFunc func(ctx context.Context, userID string, ids []string) (*models.BulkResult, error)
	DeleteAccountsFunc func(ctx context.Context, userID string, ids []string) (*models.BulkResult, error)
	DeleteGroupsFunc   func(ctx context.Context, userID string, ids []string) (*models.BulkResult, error)
	MoveAccountFunc    func(ctx context.Context, userID, id, groupID string) (*models.BulkResult, error)
	EjectAccountFunc   func(ctx context.Context, userID, id string) (*models.BulkResult, error)
}

func (m *MockBulkService) MoveToGroup(ctx context.Context, userID string, ids []string, groupID string) (*models.BulkResult, error) {
	if m.MoveToGroupFunc == nil {
		return nil, models.ErrStore
	}
	return m.MoveToGroupFunc(ctx, userID, ids, groupID)
}

func (m *MockBulkService) EjectFromGroup(ctx context.Context, userID string, ids []string) (*models.BulkResult, error) {
	if m.EjectFromGroupFunc == nil {
		return nil, models.ErrStore
	}
	return m.EjectFromGroupFunc(ctx, userID, ids)
}

func (m *MockBulkService) DeleteAccounts(ctx context.Context, userID string, ids []string) (*models.BulkResult, error) {
	if m.DeleteAccountsFunc == nil {
		return nil, models.ErrStore
	}
	return m.DeleteAccountsFunc(ctx, userID, ids)
}

func (m *MockBulkService) DeleteGroups(ctx context.Context, userID string, ids []string) (*models.BulkResult, error) {
	if m.DeleteGroupsFunc == nil {
		return nil, models.ErrStore
	}
	return m.DeleteGroupsFunc(ctx, userID, ids)
}

func (m *MockBulkService) MoveAccount(ctx context.Context, userID, id, groupID string) (*models.BulkResult, error) {
	if m.MoveAccountFunc == nil {
		return nil, models.ErrStore
	}
	return m.MoveAccountFunc(ctx, userID, id, groupID)
}

func (m *MockBulkService) EjectAccount(ctx context.Context, userID, id string) (*models.BulkResult, error) {
	if m.EjectAccountFunc == nil {
		return nil, models.ErrStore
	}
	return m.EjectAccountFunc(ctx, userID, id)
}

// MockGroupService implements GroupService for testing
type MockGroupService struct {
	CreateFunc func(ctx context.Context, userID, name string) (*models.Group, error)
	RenameFunc func(ctx context.Context, userID, id, name string) (*models.Group, error)
	DeleteFunc func(ctx context.Context, userID, id string) error
}

func (m *MockGroupService) Create(ctx context.Context, userID, name string) (*models.Group, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrStore
	}
	return m.CreateFunc(ctx, userID, name)
}

func (m *MockGroupService) Rename(ctx context.Context, userID, id, name string) (*models.Group, error) {
	if m.RenameFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RenameFunc(ctx, userID, id, name)
}

func (m *MockGroupService) Delete(ctx context.Context, userID, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, userID, id)
}

// MockIdentityService implements IdentityService for testing
type MockIdentityService struct {
	CreateFunc func(ctx context.Context, userID string, in services.NewEmailIdentity) (*models.EmailIdentity, error)
}

func (m *MockIdentityService) Create(ctx context.Context, userID string, in services.NewEmailIdentity) (*models.EmailIdentity, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrStore
	}
	return m.CreateFunc(ctx, userID, in)
}

// MockTransferService implements TransferService for testing
type MockTransferService struct {
	ExportFunc func(ctx context.Context, userID string, port services.SessionLockPort, scope services.ExportScope, id string) (*services.Export, error)
	ImportFunc func(ctx context.Context, userID string, rows []services.ImportRow, targetGroupID string) (*models.ImportResult, error)
}

func (m *MockTransferService) Export(ctx context.Context, userID string, port services.SessionLockPort, scope services.ExportScope, id string) (*services.Export, error) {
	if m.ExportFunc == nil {
		return nil, models.ErrLocked
	}
	return m.ExportFunc(ctx, userID, port, scope, id)
}

func (m *MockTransferService) Import(ctx context.Context, userID string, rows []services.ImportRow, targetGroupID string) (*models.ImportResult, error) {
	if m.ImportFunc == nil {
		return nil, models.ErrStore
	}
	return m.ImportFunc(ctx, userID, rows, targetGroupID)
}
