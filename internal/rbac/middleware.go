package rbac

import (
	"log/slog"
	"net/http"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Middleware wires authorization checks for HTTP handlers. It is the
// final stage of the gate and assumes authentication and rate checks
// already ran: a missing principal here is a wiring bug, answered with
// 401 rather than a panic.
type Middleware struct {
	Logger *slog.Logger
}

// Require ensures the principal's role snapshot grants at least one of
// the actions. Denials are 403, never 404: "exists but not allowed" is
// kept distinct from "does not exist" for every gated route.
func (m Middleware) Require(actions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(actions) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			for _, action := range actions {
				if Allowed(principal.Roles, action) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Info("permission denied",
					slog.Int64("user_id", principal.UserID),
					slog.Any("actions", actions))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		})
	}
}
