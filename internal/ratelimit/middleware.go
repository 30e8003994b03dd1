package ratelimit

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Middleware short-circuits requests over quota before they reach the
// handlers. It keys on the authenticated principal when one is present
// and on the client address otherwise, which is how unauthenticated
// login attempts stay bounded.
type Middleware struct {
	Limiter *Limiter
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Limit enforces the class quota. When the shared store is unreachable
// the request is allowed through with a logged warning; traffic shaping
// degrades rather than taking every endpoint down with the store.
func (m Middleware) Limit(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := m.Limiter.Allow(r.Context(), class, identityFor(r))
			if err != nil {
				if m.Logger != nil {
					m.Logger.Warn("rate limit check failed, allowing request", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !result.Allowed {
				m.Metrics.RateLimited(string(class))
				seconds := int(math.Ceil(result.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests",
					"rate limit exceeded, retry after "+strconv.Itoa(seconds)+"s")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFor(r *http.Request) string {
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		return "user:" + strconv.FormatInt(p.UserID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
