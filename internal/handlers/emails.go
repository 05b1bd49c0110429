package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/services"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
	"github.com/go-chi/chi/v5"
)

// IdentityService creates email identities
type IdentityService interface {
	Create(ctx context.Context, userID string, in services.NewEmailIdentity) (*models.EmailIdentity, error)
}

// EmailHandler handles email identity requests
type EmailHandler struct {
	listing    ListingService
	identities IdentityService
	ports      SessionPorts
}

func NewEmailHandler(listing ListingService, identities IdentityService, ports SessionPorts) *EmailHandler {
	return &EmailHandler{listing: listing, identities: identities, ports: ports}
}

func (h *EmailHandler) RegisterRoutes(router chi.Router) {
	router.Route("/emails", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
	})
}

// List accepts q, page and sort
//
// @Router /emails [get]
func (h *EmailHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	page, err := h.listing.ListEmails(r.Context(), userID, h.ports(w, r, userID), parseFilter(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, EmailListResponse{
		Emails: emailViewsToResponse(page.Emails),
		Meta:   metaToResponse(page.Meta),
	})
}

// @Router /emails [post]
func (h *EmailHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	identity, err := h.identities.Create(r.Context(), userID, services.NewEmailIdentity{
		Email:           req.Email,
		Name:            req.Name,
		PhoneNumber:     req.PhoneNumber,
		IsVerified:      req.IsVerified,
		Is2FAEnabled:    req.Is2FAEnabled,
		RecoveryEmailID: req.RecoveryEmailID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, EmailWriteResponse{
		Success: true,
		Message: "Email Added",
		Email:   emailToResponse(identity),
	})
}
