package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/models"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
	"github.com/go-chi/chi/v5"
)

// GroupService defines group writes
type GroupService interface {
	Create(ctx context.Context, userID, name string) (*models.Group, error)
	Rename(ctx context.Context, userID, id, name string) (*models.Group, error)
	Delete(ctx context.Context, userID, id string) error
}

// GroupHandler handles account group requests
type GroupHandler struct {
	listing ListingService
	groups  GroupService
	bulk    BulkService
	ports   SessionPorts
}

func NewGroupHandler(listing ListingService, groups GroupService, bulk BulkService, ports SessionPorts) *GroupHandler {
	return &GroupHandler{listing: listing, groups: groups, bulk: bulk, ports: ports}
}

// RegisterRoutes registers all group routes with the chi router
func (h *GroupHandler) RegisterRoutes(router chi.Router) {
	router.Route("/groups", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/ids", h.IDs)
		r.Post("/bulk/delete", h.BulkDelete)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Rename)
			r.Delete("/", h.Delete)
			r.Get("/ids", h.AccountIDs)
		})
	})
}

// @Router /groups [get]
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	page, err := h.listing.ListGroups(r.Context(), userID, h.ports(w, r, userID), parseFilter(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, GroupListResponse{
		Groups: groupSummariesToResponse(page.Groups),
		Meta:   metaToResponse(page.Meta),
	})
}

// @Router /groups/ids [get]
func (h *GroupHandler) IDs(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	ids, err := h.listing.GroupIDs(r.Context(), userID, h.ports(w, r, userID), parseFilter(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, idsResponse(ids))
}

// Get returns the group with one page of its accounts, newest first.
// Accepts q and page.
//
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)
	q := r.URL.Query()

	detail, err := h.listing.GroupDetail(r.Context(), userID, h.ports(w, r, userID),
		chi.URLParam(r, "id"), q.Get("q"), parsePage(q.Get("page")))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, GroupDetailResponse{
		Group:    groupToResponse(&detail.Group.Group, detail.Group.AccountCount),
		Accounts: accountViewsToResponse(detail.Accounts),
		Meta:     metaToResponse(detail.Meta),
	})
}

// AccountIDs returns the ids of the group's accounts matching q
//
// @Router /groups/{id}/ids [get]
func (h *GroupHandler) AccountIDs(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	ids, err := h.listing.GroupAccountIDs(r.Context(), userID, h.ports(w, r, userID),
		chi.URLParam(r, "id"), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, idsResponse(ids))
}

// @Router /groups [post]
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req GroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	group, err := h.groups.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, GroupWriteResponse{
		Success: true,
		Message: "Group Created Successfully!",
		Group:   groupRef(group),
	})
}

// @Router /groups/{id} [put]
func (h *GroupHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req GroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	group, err := h.groups.Rename(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, GroupWriteResponse{
		Success: true,
		Message: "Group Updated Successfully",
		Group:   groupRef(group),
	})
}

// Delete ejects the group's accounts and removes the group
//
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.groups.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteAction(w, http.StatusOK, "Group Deleted")
}

// @Router /groups/bulk/delete [post]
func (h *GroupHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	handleBulkIDs(w, r, h.bulk.DeleteGroups)
}
