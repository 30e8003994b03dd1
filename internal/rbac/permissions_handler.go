package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// PermissionsHandler exposes the permission matrix for introspection.
type PermissionsHandler struct{}

// NewPermissionsHandler constructs the handler.
func NewPermissionsHandler() *PermissionsHandler {
	return &PermissionsHandler{}
}

// MountRoutes attaches permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAll)
	r.Get("/me", h.listMine)
}

func (h *PermissionsHandler) listAll(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]string, len(matrix))
	for role := range matrix {
		out[role] = ActionsFor([]string{role})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *PermissionsHandler) listMine(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"roles":   principal.Roles,
		"actions": ActionsFor(principal.Roles),
	})
}
