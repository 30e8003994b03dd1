package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/blog/categories"
	"github.com/inkwell-blog/inkwell/internal/blog/comments"
	"github.com/inkwell-blog/inkwell/internal/blog/posts"
	"github.com/inkwell-blog/inkwell/internal/blog/tags"
	"github.com/inkwell-blog/inkwell/internal/observability"
	"github.com/inkwell-blog/inkwell/internal/ratelimit"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/users"
	"github.com/inkwell-blog/inkwell/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	AuthMiddleware     auth.Middleware
	RateMiddleware     ratelimit.Middleware
	RBACMiddleware     rbac.Middleware
	PostsHandler       *posts.Handler
	CategoriesHandler  *categories.Handler
	TagsHandler        *tags.Handler
	CommentsHandler    *comments.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Inkwell defaults. The
// authorization gate for protected routes always runs in the same
// order: authenticate, then rate limit, then permission check.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	gate := Gate(params.AuthMiddleware, params.RateMiddleware)

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/posts", func(sr chi.Router) { params.PostsHandler.MountRoutes(sr) })
	r.Route("/categories", func(sr chi.Router) { params.CategoriesHandler.MountRoutes(sr) })
	r.Route("/tags", func(sr chi.Router) { params.TagsHandler.MountRoutes(sr) })
	r.Route("/comments", func(sr chi.Router) { params.CommentsHandler.MountRoutes(sr) })

	r.Route("/users", func(sr chi.Router) { params.UsersHandler.MountRoutes(sr) })

	r.Route("/permissions", func(sr chi.Router) {
		sr.Use(gate)
		params.PermissionsHandler.MountRoutes(sr)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(sr chi.Router) {
			sr.Use(gate)
			sr.Use(params.RBACMiddleware.Require(rbac.ActionManageUsers))
			params.JobHandler.MountRoutes(sr)
		})
	}

	return r
}

// Gate builds the shared authenticate+rate-limit chain handed to module
// handlers that mount their own protected subtrees. Limits are keyed per
// user when a principal exists, so identity has to be settled first.
func Gate(authMW auth.Middleware, rateMW ratelimit.Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return authMW.Authenticate(rateMW.Limit(ratelimit.ClassAPI)(next))
	}
}
