package posts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	blogshared "github.com/inkwell-blog/inkwell/internal/blog/shared"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Handler wires HTTP endpoints for posts. Reads are public; writes pass
// the full authorization gate installed by the router.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	gate      func(http.Handler) http.Handler
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler. gate is the authenticate+rate-limit
// chain shared by all protected routes.
func NewHandler(logger *slog.Logger, service *Service, gate func(http.Handler) http.Handler, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), gate: gate, rbac: rbacMW}
}

// MountRoutes registers post routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/likes", h.likeCount)
	r.Get("/slug/{slug}", h.getBySlug)

	r.Group(func(r chi.Router) {
		r.Use(h.gate)
		r.Post("/{id}/like", h.toggleLike)
		r.With(h.rbac.Require(rbac.ActionCreatePost)).Post("/", h.create)
		r.With(h.rbac.Require(rbac.ActionUpdatePost)).Put("/{id}", h.update)
		r.With(h.rbac.Require(rbac.ActionUpdatePost)).Get("/{id}/revisions", h.revisions)
		r.With(h.rbac.Require(rbac.ActionDeletePost)).Delete("/{id}", h.delete)
	})
}

type postRequest struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Slug       string   `json:"slug" validate:"omitempty,max=200"`
	Content    string   `json:"content" validate:"required"`
	CategoryID *int64   `json:"category_id"`
	Tags       []string `json:"tags" validate:"dive,min=1,max=50"`
	Published  bool     `json:"published"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r, 10, 100)
	filters := blogshared.ListFilters{Page: page, Limit: limit, Search: r.URL.Query().Get("search")}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list posts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"posts":      items,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	post, err := h.service.Create(r.Context(), actor, Post{
		Title:      req.Title,
		Slug:       req.Slug,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
		Published:  req.Published,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req postRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	err := h.service.Update(r.Context(), actor, Post{
		ID:         id,
		Title:      req.Title,
		Slug:       req.Slug,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
		Published:  req.Published,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "post updated"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	actor := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "post deleted"})
}

func (h *Handler) likeCount(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	count, err := h.service.LikeCount(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"post_id": id, "likes": count})
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	actor := shared.PrincipalFromContext(r.Context())
	liked, count, err := h.service.ToggleLike(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"post_id": id, "liked": liked, "likes": count})
}

func (h *Handler) revisions(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	actor := shared.PrincipalFromContext(r.Context())
	items, err := h.service.ListRevisions(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"post_id": id, "revisions": items})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("posts", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body must be valid JSON")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
