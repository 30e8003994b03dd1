package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	validator    *validator.Validate
	authMW       Middleware
	loginLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler. loginLimiter guards the login and
// reset-request endpoints; it is keyed by client address because no
// identity exists yet at that point.
func NewHandler(logger *slog.Logger, service *Service, loginLimiter func(http.Handler) http.Handler) *Handler {
	if loginLimiter == nil {
		loginLimiter = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		logger:       logger,
		service:      service,
		validator:    validator.New(),
		authMW:       Middleware{Service: service, Logger: logger},
		loginLimiter: loginLimiter,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.With(h.loginLimiter).Post("/login", h.handleLogin)
	r.With(h.loginLimiter).Post("/reset-password", h.handleResetRequest)
	r.Post("/reset-password/{token}", h.handleResetConsume)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.authMW.Authenticate)
		r.Get("/session/verify", h.handleVerify)
	})
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetConsumeRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func toUserResponse(u *User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Roles: u.Roles}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "username or email already exists")
			return
		}
		h.logger.Error("register", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": toUserResponse(user)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	token, user, err := h.service.Login(r.Context(), identifier, req.Password, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials):
			httpx.Problem(w, http.StatusUnauthorized, "Invalid Credentials", "invalid username or password")
		case errors.Is(err, shared.ErrInactiveAccount):
			httpx.Problem(w, http.StatusForbidden, "Account Inactive", "account is inactive")
		default:
			h.logger.Error("login", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

// handleLogout does not sit behind the authenticate middleware: the
// registry check there would reject a second logout with the same
// token, and revoking an already-revoked token must keep succeeding.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := bearerToken(r)
	if raw == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
		return
	}
	if err := h.service.LogoutToken(r.Context(), raw); err != nil {
		h.logger.Warn("logout", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": userResponse{
			ID:       principal.UserID,
			Username: principal.Username,
			Roles:    principal.Roles,
		},
	})
}

// handleResetRequest answers uniformly whether or not the email exists,
// so the endpoint cannot be used to enumerate accounts.
func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		h.logger.Error("request reset", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "password reset instructions sent if the email exists"})
}

func (h *Handler) handleResetConsume(w http.ResponseWriter, r *http.Request) {
	var req resetConsumeRequest
	if !h.decode(w, r, &req) {
		return
	}
	token := chi.URLParam(r, "token")
	if err := h.service.ConsumeReset(r.Context(), token, req.Password); err != nil {
		switch {
		case errors.Is(err, ErrResetTokenUsed):
			httpx.Problem(w, http.StatusBadRequest, "Reset Token Already Used", "reset token was already consumed")
		case errors.Is(err, ErrResetTokenInvalid), errors.Is(err, ErrResetTokenExpired):
			httpx.Problem(w, http.StatusBadRequest, "Invalid Reset Token", "reset token is invalid or has expired")
		default:
			h.logger.Error("consume reset", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "password reset successful"})
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
