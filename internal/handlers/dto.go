package handlers

import (
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
)

// Security DTOs

// SetPINRequest sets or replaces the vault PIN
type SetPINRequest struct {
	PIN        string `json:"pin" validate:"required,len=6,numeric"`
	AlertEmail string `json:"alert_email" validate:"omitempty,email,max=255"`
}

// UnlockRequest carries a PIN guess
type UnlockRequest struct {
	PIN string `json:"pin" validate:"required,len=6,numeric"`
}

type SessionStatusResponse struct {
	HasPIN   bool   `json:"has_pin"`
	Unlocked bool   `json:"unlocked"`
	State    string `json:"state"`
}

// Account DTOs

type CreateAccountRequest struct {
	PlatformName string   `json:"platform_name" validate:"max=255"`
	Username     string   `json:"username" validate:"max=255"`
	Password     string   `json:"password" validate:"max=1024"`
	NoPassword   bool     `json:"no_password"`
	TOTPSecret   string   `json:"totp_secret" validate:"max=256"`
	Categories   []string `json:"categories" validate:"max=32,dive,max=64"`
	EmailID      string   `json:"email_id"`
	NoEmail      bool     `json:"no_email"`
	GroupID      string   `json:"group_id"`
	Website      string   `json:"website" validate:"max=2048"`
	Description  string   `json:"description" validate:"max=4096"`
	Icon         string   `json:"icon" validate:"max=2048"`
}

func (req *CreateAccountRequest) toModel() models.NewAccount {
	return models.NewAccount{
		PlatformName: req.PlatformName,
		Username:     req.Username,
		Password:     req.Password,
		NoPassword:   req.NoPassword,
		TOTPSecret:   req.TOTPSecret,
		Categories:   req.Categories,
		EmailID:      req.EmailID,
		NoEmail:      req.NoEmail,
		GroupID:      req.GroupID,
		Website:      req.Website,
		Description:  req.Description,
		Icon:         req.Icon,
	}
}

// UpdateAccountRequest is partial: omitted fields are left unchanged
type UpdateAccountRequest struct {
	PlatformName *string  `json:"platform_name" validate:"omitempty,max=255"`
	Username     *string  `json:"username" validate:"omitempty,max=255"`
	Password     *string  `json:"password" validate:"omitempty,max=1024"`
	NoPassword   bool     `json:"no_password"`
	TOTPSecret   *string  `json:"totp_secret" validate:"omitempty,max=256"`
	RemoveTOTP   bool     `json:"remove_totp"`
	Categories   []string `json:"categories" validate:"omitempty,max=32,dive,max=64"`
	EmailID      *string  `json:"email_id"`
	NoEmail      bool     `json:"no_email"`
	Website      *string  `json:"website" validate:"omitempty,max=2048"`
	Description  *string  `json:"description" validate:"omitempty,max=4096"`
	Icon         *string  `json:"icon" validate:"omitempty,max=2048"`
	RemoveIcon   bool     `json:"remove_icon"`
}

func (req *UpdateAccountRequest) toModel() models.AccountUpdate {
	return models.AccountUpdate{
		PlatformName: req.PlatformName,
		Username:     req.Username,
		Password:     req.Password,
		NoPassword:   req.NoPassword,
		TOTPSecret:   req.TOTPSecret,
		RemoveTOTP:   req.RemoveTOTP,
		Categories:   req.Categories,
		EmailID:      req.EmailID,
		NoEmail:      req.NoEmail,
		Website:      req.Website,
		Description:  req.Description,
		Icon:         req.Icon,
		RemoveIcon:   req.RemoveIcon,
	}
}

// AccountResponse never carries secrets, only whether they exist
type AccountResponse struct {
	ID           string   `json:"id"`
	PlatformName string   `json:"platform_name"`
	Username     string   `json:"username"`
	HasPassword  bool     `json:"has_password"`
	HasTOTP      bool     `json:"has_totp"`
	Categories   []string `json:"categories"`
	EmailID      *string  `json:"email_id"`
	Email        *string  `json:"email"`
	GroupID      *string  `json:"group_id"`
	GroupName    *string  `json:"group_name"`
	Website      *string  `json:"website"`
	Description  *string  `json:"description"`
	Icon         *string  `json:"icon"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func accountToResponse(a *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:           a.ID,
		PlatformName: a.PlatformName,
		Username:     a.Username,
		HasPassword:  a.HasPassword(),
		HasTOTP:      a.HasTOTP(),
		Categories:   a.Categories,
		EmailID:      a.EmailID,
		GroupID:      a.GroupID,
		Website:      a.Website,
		Description:  a.Description,
		Icon:         a.Icon,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
}

func accountViewToResponse(v *models.AccountView) *AccountResponse {
	resp := accountToResponse(&v.Account)
	resp.Email = v.EmailAddress
	resp.GroupName = v.GroupName
	return resp
}

func accountViewsToResponse(views []*models.AccountView) []*AccountResponse {
	out := make([]*AccountResponse, len(views))
	for i, v := range views {
		out[i] = accountViewToResponse(v)
	}
	return out
}

type AccountWriteResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Account *AccountResponse `json:"account"`
}

type RevealPasswordResponse struct {
	Password string `json:"password"`
}

type TOTPCodeResponse struct {
	Code             string `json:"code"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

type TOTPQRCodeResponse struct {
	QRCode string `json:"qr_code"` // PNG data URL
}

// Group DTOs

type GroupRequest struct {
	Name string `json:"name" validate:"max=255"`
}

type GroupResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AccountCount int    `json:"account_count"`
	CreatedAt    string `json:"created_at"`
}

func groupToResponse(g *models.Group, count int) *GroupResponse {
	return &GroupResponse{
		ID:           g.ID,
		Name:         g.Name,
		AccountCount: count,
		CreatedAt:    g.CreatedAt.Format(time.RFC3339),
	}
}

func groupSummariesToResponse(groups []*models.GroupSummary) []*GroupResponse {
	out := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		out[i] = groupToResponse(&g.Group, g.AccountCount)
	}
	return out
}

// GroupRef is a group without derived fields
type GroupRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func groupRef(g *models.Group) *GroupRef {
	return &GroupRef{ID: g.ID, Name: g.Name, CreatedAt: g.CreatedAt.Format(time.RFC3339)}
}

type GroupWriteResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Group   *GroupRef `json:"group"`
}

// Email identity DTOs

type CreateEmailRequest struct {
	Email           string `json:"email" validate:"required,max=255"`
	Name            string `json:"name" validate:"max=255"`
	PhoneNumber     string `json:"phone_number" validate:"max=64"`
	IsVerified      bool   `json:"is_verified"`
	Is2FAEnabled    bool   `json:"is_2fa_enabled"`
	RecoveryEmailID string `json:"recovery_email_id"`
}

type EmailResponse struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Name            *string `json:"name"`
	PhoneNumber     *string `json:"phone_number"`
	IsVerified      bool    `json:"is_verified"`
	Is2FAEnabled    bool    `json:"is_2fa_enabled"`
	RecoveryEmailID *string `json:"recovery_email_id"`
	RecoveryEmail   *string `json:"recovery_email"`
	AccountCount    int     `json:"account_count"`
	CreatedAt       string  `json:"created_at"`
}

func emailToResponse(e *models.EmailIdentity) *EmailResponse {
	return &EmailResponse{
		ID:              e.ID,
		Email:           e.Email,
		Name:            e.Name,
		PhoneNumber:     e.PhoneNumber,
		IsVerified:      e.IsVerified,
		Is2FAEnabled:    e.Is2FAEnabled,
		RecoveryEmailID: e.RecoveryEmailID,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
}

func emailViewsToResponse(views []*models.EmailIdentityView) []*EmailResponse {
	out := make([]*EmailResponse, len(views))
	for i, v := range views {
		resp := emailToResponse(&v.EmailIdentity)
		resp.RecoveryEmail = v.RecoveryEmail
		resp.AccountCount = v.AccountCount
		out[i] = resp
	}
	return out
}

type EmailWriteResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Email   *EmailResponse `json:"email"`
}

// Listing DTOs

type PageMetaResponse struct {
	TotalCount  int `json:"total_count"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

func metaToResponse(m models.PageMeta) PageMetaResponse {
	return PageMetaResponse{TotalCount: m.TotalCount, TotalPages: m.TotalPages, CurrentPage: m.CurrentPage}
}

type AccountListResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Meta     PageMetaResponse   `json:"meta"`
}

type GroupListResponse struct {
	Groups []*GroupResponse `json:"groups"`
	Meta   PageMetaResponse `json:"meta"`
}

type EmailListResponse struct {
	Emails []*EmailResponse `json:"emails"`
	Meta   PageMetaResponse `json:"meta"`
}

type GroupDetailResponse struct {
	Group    *GroupResponse     `json:"group"`
	Accounts []*AccountResponse `json:"accounts"`
	Meta     PageMetaResponse   `json:"meta"`
}

type DashboardResponse struct {
	Accounts           AccountListResponse `json:"accounts"`
	Groups             GroupListResponse   `json:"groups"`
	CombinedTotalPages int                 `json:"combined_total_pages"`
}

// IDsResponse backs "select all matching"
type IDsResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func idsResponse(ids []string) IDsResponse {
	if ids == nil {
		ids = []string{}
	}
	return IDsResponse{IDs: ids, Count: len(ids)}
}

// Bulk DTOs

type BulkRequest struct {
	IDs []string `json:"ids" validate:"max=1000"`
}

type BulkMoveRequest struct {
	IDs     []string `json:"ids" validate:"max=1000"`
	GroupID string   `json:"group_id" validate:"required"`
}

type MoveAccountRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ImportResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}
