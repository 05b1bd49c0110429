package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/query"
	"github.com/BradenHooton/vaultgate/internal/services"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ListingService defines the gated read side of the vault
type ListingService interface {
	ListAccounts(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.AccountPage, error)
	AccountIDs(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) ([]string, error)
	ListGroups(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.GroupPage, error)
	GroupIDs(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) ([]string, error)
	GroupDetail(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string, page int) (*models.GroupDetail, error)
	GroupAccountIDs(ctx context.Context, userID string, port services.SessionLockPort, groupID, text string) ([]string, error)
	ListEmails(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.EmailPage, error)
	Dashboard(ctx context.Context, userID string, port services.SessionLockPort, f query.Filter) (*models.Dashboard, error)
}

// AccountService defines account writes and gated secret reads
type AccountService interface {
	Create(ctx context.Context, userID string, in models.NewAccount) (*models.Account, error)
	Update(ctx context.Context, userID string, port services.SessionLockPort, id string, in models.AccountUpdate) (*models.Account, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID string, port services.SessionLockPort, id string) (*models.AccountView, error)
	RevealPassword(ctx context.Context, userID string, port services.SessionLockPort, id string) (string, error)
	TOTPCode(ctx context.Context, userID string, port services.SessionLockPort, id string) (*services.TOTPCode, error)
	TOTPQRCode(ctx context.Context, userID string, port services.SessionLockPort, id string) (string, error)
}

// BulkService defines batch and single-item group membership changes
type BulkService interface {
	MoveToGroup(ctx context.Context, userID string, ids []string, groupID string) (*models.BulkResult, error)
	EjectFromGroup(ctx context.Context, userID string, ids []string) (*models.BulkResult, error)
	DeleteAccounts(ctx context.Context, userID string, ids []string) (*models.BulkResult, error)
	DeleteGroups(ctx context.Context, userID string, ids []string) (*models.BulkResult, error)
	MoveAccount(ctx context.Context, userID, id, groupID string) (*models.BulkResult, error)
	EjectAccount(ctx context.Context, userID, id string) (*models.BulkResult, error)
}

// AccountHandler handles saved account requests
type AccountHandler struct {
	listing  ListingService
	accounts AccountService
	bulk     BulkService
	ports    SessionPorts
}

func NewAccountHandler(listing ListingService, accounts AccountService, bulk BulkService, ports SessionPorts) *AccountHandler {
	return &AccountHandler{listing: listing, accounts: accounts, bulk: bulk, ports: ports}
}

// RegisterRoutes registers all account routes with the chi router
func (h *AccountHandler) RegisterRoutes(router chi.Router) {
	router.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/ids", h.IDs)
		r.Post("/bulk/move", h.BulkMove)
		r.Post("/bulk/eject", h.BulkEject)
		r.Post("/bulk/delete", h.BulkDelete)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/password", h.RevealPassword)
			r.Get("/totp", h.TOTPCode)
			r.Get("/totp/qr", h.TOTPQRCode)
			r.Put("/group", h.Move)
			r.Delete("/group", h.Eject)
		})
	})
}

// List returns one page of accounts matching the filter
//
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	page, err := h.listing.ListAccounts(r.Context(), userID, h.ports(w, r, userID), parseFilter(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AccountListResponse{
		Accounts: accountViewsToResponse(page.Accounts),
		Meta:     metaToResponse(page.Meta),
	})
}

// IDs returns every account id matching the filter, unpaginated
//
// @Router /accounts/ids [get]
func (h *AccountHandler) IDs(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	ids, err := h.listing.AccountIDs(r.Context(), userID, h.ports(w, r, userID), parseFilter(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, idsResponse(ids))
}

// Create adds a saved account
//
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	account, err := h.accounts.Create(r.Context(), userID, req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, AccountWriteResponse{
		Success: true,
		Message: "Account Add Success!",
		Account: accountToResponse(account),
	})
}

// Get returns one account with its email and group summaries
//
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	view, err := h.accounts.Get(r.Context(), userID, h.ports(w, r, userID), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountViewToResponse(view))
}

// Update applies a partial update
//
// @Router /accounts/{id} [put]
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	account, err := h.accounts.Update(r.Context(), userID, h.ports(w, r, userID), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AccountWriteResponse{
		Success: true,
		Message: "Account Update Success!",
		Account: accountToResponse(account),
	})
}

// @Router /accounts/{id} [delete]
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteAction(w, http.StatusOK, "Account Deleted")
}

// RevealPassword returns the decrypted password, "" when none is stored or
// it cannot be decrypted
//
// @Router /accounts/{id}/password [get]
func (h *AccountHandler) RevealPassword(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	password, err := h.accounts.RevealPassword(r.Context(), userID, h.ports(w, r, userID), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RevealPasswordResponse{Password: password})
}

// @Router /accounts/{id}/totp [get]
func (h *AccountHandler) TOTPCode(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	code, err := h.accounts.TOTPCode(r.Context(), userID, h.ports(w, r, userID), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TOTPCodeResponse{Code: code.Code, SecondsRemaining: code.SecondsRemaining})
}

// @Router /accounts/{id}/totp/qr [get]
func (h *AccountHandler) TOTPQRCode(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	qr, err := h.accounts.TOTPQRCode(r.Context(), userID, h.ports(w, r, userID), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TOTPQRCodeResponse{QRCode: qr})
}

// Move puts one account into a group
//
// @Router /accounts/{id}/group [put]
func (h *AccountHandler) Move(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MoveAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	result, err := h.bulk.MoveAccount(r.Context(), userID, chi.URLParam(r, "id"), req.GroupID)
	writeBulkResult(w, result, err)
}

// Eject removes one account from its group
//
// @Router /accounts/{id}/group [delete]
func (h *AccountHandler) Eject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.bulk.EjectAccount(r.Context(), userID, chi.URLParam(r, "id"))
	writeBulkResult(w, result, err)
}

// @Router /accounts/bulk/move [post]
func (h *AccountHandler) BulkMove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req BulkMoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	result, err := h.bulk.MoveToGroup(r.Context(), userID, req.IDs, req.GroupID)
	writeBulkResult(w, result, err)
}

// @Router /accounts/bulk/eject [post]
func (h *AccountHandler) BulkEject(w http.ResponseWriter, r *http.Request) {
	handleBulkIDs(w, r, h.bulk.EjectFromGroup)
}

// @Router /accounts/bulk/delete [post]
func (h *AccountHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	handleBulkIDs(w, r, h.bulk.DeleteAccounts)
}

type bulkFunc func(ctx context.Context, userID string, ids []string) (*models.BulkResult, error)

func handleBulkIDs(w http.ResponseWriter, r *http.Request, fn bulkFunc) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req BulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	result, err := fn(r.Context(), userID, req.IDs)
	writeBulkResult(w, result, err)
}

func writeBulkResult(w http.ResponseWriter, result *models.BulkResult, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteActionCount(w, result.Message, result.Affected)
}
