package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/vaultgate/internal/handlers"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/query"
	"github.com/BradenHooton/vaultgate/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroup() *models.GroupSummary {
	return &models.GroupSummary{
		Group:        models.Group{ID: "grp-1", UserID: "user-1", Name: "Dev", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		AccountCount: 3,
	}
}

// ============================================================================
// Groups
// ============================================================================

func TestGroupDetail_PassesTextAndPage(t *testing.T) {
	var gotID, gotText string
	var gotPage int
	listing := &handlers.MockListingService{
		GroupDetailFunc: func(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string, page int) (*models.GroupDetail, error) {
			gotID, gotText, gotPage = groupID, text, page
			return &models.GroupDetail{
				Group:    sampleGroup(),
				Accounts: []*models.AccountView{sampleView()},
				Meta:     models.PageMeta{TotalCount: 3, TotalPages: 1, CurrentPage: 1},
			}, nil
		},
	}
	port := &handlers.MockPort{Unlocked: true}
	handler := handlers.NewGroupHandler(listing, &handlers.MockGroupService{}, &handlers.MockBulkService{}, port.Ports())

	req := handlers.WithAuthContext(httptest.NewRequest("GET", "/groups/grp-1?q=hub&page=0", nil), "user-1", "")
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "grp-1"})
	w := httptest.NewRecorder()
	handler.Get(w, req)

	var resp handlers.GroupDetailResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "grp-1", gotID)
	assert.Equal(t, "hub", gotText)
	assert.Equal(t, 1, gotPage)
	assert.Equal(t, "Dev", resp.Group.Name)
	assert.Equal(t, 3, resp.Group.AccountCount)
	require.Len(t, resp.Accounts, 1)
}

func TestGroupDetail_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"foreign group", models.ErrNotFound, http.StatusNotFound, "not_found"},
		{"locked", models.ErrLocked, http.StatusLocked, "vault_locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := &handlers.MockListingService{
				GroupDetailFunc: func(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string, page int) (*models.GroupDetail, error) {
					return nil, tt.err
				},
			}
			port := &handlers.MockPort{}
			handler := handlers.NewGroupHandler(listing, &handlers.MockGroupService{}, &handlers.MockBulkService{}, port.Ports())

			req := handlers.WithAuthContext(httptest.NewRequest("GET", "/groups/grp-9", nil), "user-1", "")
			req = handlers.WithChiRouteContext(req, map[string]string{"id": "grp-9"})
			w := httptest.NewRecorder()
			handler.Get(w, req)

			handlers.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

func TestListGroups_Success(t *testing.T) {
	listing := &handlers.MockListingService{
		ListGroupsFunc: func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.GroupPage, error) {
			return &models.GroupPage{Groups: []*models.GroupSummary{sampleGroup()}, Meta: models.PageMeta{TotalCount: 1, TotalPages: 1, CurrentPage: 1}}, nil
		},
	}
	port := &handlers.MockPort{}
	handler := handlers.NewGroupHandler(listing, &handlers.MockGroupService{}, &handlers.MockBulkService{}, port.Ports())

	w := httptest.NewRecorder()
	handler.List(w, handlers.WithAuthContext(httptest.NewRequest("GET", "/groups", nil), "user-1", ""))

	var resp handlers.GroupListResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, 3, resp.Groups[0].AccountCount)
}

func TestCreateGroup_NameRequired(t *testing.T) {
	groups := &handlers.MockGroupService{
		CreateFunc: func(ctx context.Context, userID, name string) (*models.Group, error) {
			return nil, models.NewValidationError("Group Name Required")
		},
	}
	port := &handlers.MockPort{}
	handler := handlers.NewGroupHandler(&handlers.MockListingService{}, groups, &handlers.MockBulkService{}, port.Ports())

	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "POST", "/groups", map[string]string{"name": "  "}), "user-1", "")
	w := httptest.NewRecorder()
	handler.Create(w, req)

	msg := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
	assert.Equal(t, "Group Name Required", msg)
}

func TestCreateGroup_Success(t *testing.T) {
	groups := &handlers.MockGroupService{
		CreateFunc: func(ctx context.Context, userID, name string) (*models.Group, error) {
			g := sampleGroup().Group
			g.Name = name
			return &g, nil
		},
	}
	port := &handlers.MockPort{}
	handler := handlers.NewGroupHandler(&handlers.MockListingService{}, groups, &handlers.MockBulkService{}, port.Ports())

	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "POST", "/groups", map[string]string{"name": "Games"}), "user-1", "")
	w := httptest.NewRecorder()
	handler.Create(w, req)

	var resp handlers.GroupWriteResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "Group Created Successfully!", resp.Message)
	assert.Equal(t, "Games", resp.Group.Name)
}

func TestBulkDeleteGroups_ReportsGroupsDeleted(t *testing.T) {
	bulk := &handlers.MockBulkService{
		DeleteGroupsFunc: func(ctx context.Context, userID string, ids []string) (*models.BulkResult, error) {
			return &models.BulkResult{Affected: 1, Message: "1 Groups Deleted"}, nil
		},
	}
	port := &handlers.MockPort{}
	handler := handlers.NewGroupHandler(&handlers.MockListingService{}, &handlers.MockGroupService{}, bulk, port.Ports())

	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "POST", "/groups/bulk/delete", map[string]interface{}{"ids": []string{"grp-1", "grp-foreign"}}), "user-1", "")
	w := httptest.NewRecorder()
	handler.BulkDelete(w, req)

	assert.JSONEq(t, `{"success":true,"message":"1 Groups Deleted","count":1}`, w.Body.String())
}

// ============================================================================
// Emails / dashboard
// ============================================================================

func TestCreateEmail_InvalidRecovery(t *testing.T) {
	identities := &handlers.MockIdentityService{
		CreateFunc: func(ctx context.Context, userID string, in services.NewEmailIdentity) (*models.EmailIdentity, error) {
			return nil, models.NewValidationError("Recovery email not found")
		},
	}
	port := &handlers.MockPort{}
	handler := handlers.NewEmailHandler(&handlers.MockListingService{}, identities, port.Ports())

	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "POST", "/emails", map[string]string{"email": "me@example.com", "recovery_email_id": "eml-foreign"}), "user-1", "")
	w := httptest.NewRecorder()
	handler.Create(w, req)

	msg := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
	assert.Equal(t, "Recovery email not found", msg)
}

func TestListEmails_Success(t *testing.T) {
	listing := &handlers.MockListingService{
		ListEmailsFunc: func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.EmailPage, error) {
			return &models.EmailPage{
				Emails: []*models.EmailIdentityView{{
					EmailIdentity: models.EmailIdentity{ID: "eml-1", Email: "me@example.com", Is2FAEnabled: true},
					AccountCount:  4,
				}},
				Meta: models.PageMeta{TotalCount: 1, TotalPages: 1, CurrentPage: 1},
			}, nil
		},
	}
	port := &handlers.MockPort{Unlocked: true}
	handler := handlers.NewEmailHandler(listing, &handlers.MockIdentityService{}, port.Ports())

	w := httptest.NewRecorder()
	handler.List(w, handlers.WithAuthContext(httptest.NewRequest("GET", "/emails?q=me", nil), "user-1", ""))

	var resp handlers.EmailListResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp.Emails, 1)
	assert.Equal(t, 4, resp.Emails[0].AccountCount)
	assert.True(t, resp.Emails[0].Is2FAEnabled)
}

func TestDashboard_CombinedPages(t *testing.T) {
	listing := &handlers.MockListingService{
		DashboardFunc: func(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.Dashboard, error) {
			return &models.Dashboard{
				Accounts:           models.AccountPage{Accounts: []*models.AccountView{sampleView()}, Meta: models.PageMeta{TotalCount: 30, TotalPages: 3, CurrentPage: 1}},
				Groups:             models.GroupPage{Groups: []*models.GroupSummary{sampleGroup()}, Meta: models.PageMeta{TotalCount: 1, TotalPages: 1, CurrentPage: 1}},
				CombinedTotalPages: 3,
			}, nil
		},
	}
	port := &handlers.MockPort{Unlocked: true}
	handler := handlers.NewDashboardHandler(listing, port.Ports())

	w := httptest.NewRecorder()
	handler.Get(w, handlers.WithAuthContext(httptest.NewRequest("GET", "/dashboard", nil), "user-1", ""))

	var resp handlers.DashboardResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 3, resp.CombinedTotalPages)
	assert.Equal(t, 3, resp.Accounts.Meta.TotalPages)
	assert.Len(t, resp.Groups.Groups, 1)
}
