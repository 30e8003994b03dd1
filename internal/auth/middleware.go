package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Middleware authenticates bearer tokens and attaches the principal to
// the request context. It is the first stage of the authorization gate:
// signature, expiry and revocation are settled here before any rate or
// permission checks run.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Authenticate rejects requests without a valid bearer token. Each
// failure reason gets its own problem title so clients can distinguish a
// stale session from a forged token.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		claims, err := m.Service.ValidateToken(r.Context(), raw)
		if err != nil {
			m.respondInvalid(w, err)
			return
		}
		principal := &shared.Principal{
			UserID:   claims.UserID,
			Username: claims.Username,
			Roles:    claims.Roles,
			TokenID:  claims.ID,
		}
		if claims.IssuedAt != nil {
			principal.IssuedAt = claims.IssuedAt.Time
		}
		if claims.ExpiresAt != nil {
			principal.ExpiresAt = claims.ExpiresAt.Time
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func (m Middleware) respondInvalid(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		m.Metrics.AuthFailure("expired")
		httpx.Problem(w, http.StatusUnauthorized, "Token Expired", "session token has expired")
	case errors.Is(err, ErrTokenRevoked):
		m.Metrics.AuthFailure("revoked")
		httpx.Problem(w, http.StatusUnauthorized, "Token Revoked", "session token has been revoked")
	case errors.Is(err, ErrTokenMalformed):
		m.Metrics.AuthFailure("malformed")
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Token", "session token could not be verified")
	case errors.Is(err, shared.ErrStoreUnavailable):
		if m.Logger != nil {
			m.Logger.Error("session store unavailable", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
	default:
		if m.Logger != nil {
			m.Logger.Error("validate token", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
