package comments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

// MountRoutes registers comment routes. Listing is public (pending
// comments stay hidden unless the caller can moderate), everything else
// requires authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/post/{postID}", h.listByPost)

	r.Group(func(r chi.Router) {
		r.Use(h.gate)
		r.With(h.rbac.Require(rbac.ActionCreateComment)).Post("/post/{postID}", h.create)
		r.With(h.rbac.Require(rbac.ActionModerateComment)).Post("/{id}/approve", h.approve)
		r.With(h.rbac.Require(rbac.ActionModerateComment)).Post("/{id}/reject", h.reject)
		r.Delete("/{id}", h.delete)
	})
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *Handler) listByPost(w http.ResponseWriter, r *http.Request) {
	postID, _ := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	page, limit := shared.PageParams(r, 20, 100)
	actor := shared.PrincipalFromContext(r.Context())
	items, total, err := h.service.ListByPost(r.Context(), actor, postID, page, limit)
	if err != nil {
		h.logger.Error("list comments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"comments":   items,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	postID, _ := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	var req commentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	comment, err := h.service.Create(r.Context(), actor, postID, req.Content)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Approve(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "comment approved"})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Reject(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "comment rejected"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	actor := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "comment deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("comments", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
