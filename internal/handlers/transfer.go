package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/BradenHooton/vaultgate/internal/auth"
	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/BradenHooton/vaultgate/internal/services"
	pkghttp "github.com/BradenHooton/vaultgate/pkg/http"
)

// TransferService imports and exports vault contents
type TransferService interface {
	Export(ctx context.Context, userID string, port services.SessionLockPort, scope services.ExportScope, id string) (*services.Export, error)
	Import(ctx context.Context, userID string, rows []services.ImportRow, targetGroupID string) (*models.ImportResult, error)
}

// TransferHandler serves export downloads and import uploads
type TransferHandler struct {
	transfer TransferService
	ports    SessionPorts
}

func NewTransferHandler(transfer TransferService, ports SessionPorts) *TransferHandler {
	return &TransferHandler{transfer: transfer, ports: ports}
}

// Export streams a file download.
//
//	?scope=all|group|single|emails&id=...&format=json|yaml
//
// @Router /export [get]
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r)
	q := r.URL.Query()

	scope := services.ExportScope(q.Get("scope"))
	if scope == "" {
		scope = services.ExportAll
	}
	format := requestFormat(q.Get("format"), "")

	export, err := h.transfer.Export(r.Context(), userID, h.ports(w, r, userID), scope, q.Get("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, contentType, err := export.Encode(format)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("vault-export-%s-%s.%s", export.Scope, export.ExportedAt.Format("20060102-150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import reads a JSON or YAML body. The format comes from the format
// parameter or the Content-Type; group_id imports every row into that group.
//
// @Router /import [post]
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	format := requestFormat(q.Get("format"), r.Header.Get("Content-Type"))

	rows, err := services.ParseImport(http.MaxBytesReader(w, r.Body, maxImportBytes), format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkghttp.WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Import file is too large")
			return
		}
		writeServiceError(w, err)
		return
	}

	result, err := h.transfer.Import(r.Context(), userID, rows, q.Get("group_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ImportResponse{
		Success:   true,
		Message:   result.Message,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
}

// requestFormat picks yaml when asked for explicitly or by content type and
// json otherwise
func requestFormat(param, contentType string) string {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case services.FormatYAML, "yml":
		return services.FormatYAML
	case services.FormatJSON:
		return services.FormatJSON
	}
	if strings.Contains(strings.ToLower(contentType), "yaml") {
		return services.FormatYAML
	}
	return services.FormatJSON
}
