package handlers

import (
	"net/http"

	"github.com/BradenHooton/vaultgate/internal/auth"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
)

// DashboardHandler serves the combined account and group listing
type DashboardHandler struct {
	listing ListingService
	ports   SessionPorts
}

func NewDashboardHandler(listing ListingService, ports SessionPorts) *DashboardHandler {
	return &DashboardHandler{listing: listing, ports: ports}
}

// @Router /dashboard [get]
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)

	dash, err := h.listing.Dashboard(r.Context(), userID, h.ports(w, r, userID), parseFilter(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DashboardResponse{
		Accounts: AccountListResponse{
			Accounts: accountViewsToResponse(dash.Accounts.Accounts),
			Meta:     metaToResponse(dash.Accounts.Meta),
		},
		Groups: GroupListResponse{
			Groups: groupSummariesToResponse(dash.Groups.Groups),
			Meta:   metaToResponse(dash.Groups.Meta),
		},
		CombinedTotalPages: dash.CombinedTotalPages,
	})
}
