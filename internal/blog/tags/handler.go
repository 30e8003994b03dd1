package tags

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

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	gate      func(http.Handler) http.Handler
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, gate func(http.Handler) http.Handler, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), gate: gate, rbac: rbacMW}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{slug}", h.getBySlug)

	r.Group(func(r chi.Router) {
		r.Use(h.gate)
		r.With(h.rbac.Require(rbac.ActionCreateTag)).Post("/", h.create)
		r.With(h.rbac.Require(rbac.ActionDeleteTag)).Delete("/{id}", h.delete)
	})
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	Slug string `json:"slug" validate:"omitempty,max=50"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.PageParams(r, 100, 500)
	filters := blogshared.ListFilters{Page: page, Limit: limit, Search: r.URL.Query().Get("search")}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list tags", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tags":       items,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	tag, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tag)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	tag, err := h.service.Create(r.Context(), Tag{Name: req.Name, Slug: req.Slug})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tag)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "tag deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("tags", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
