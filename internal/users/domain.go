package users

import (
	"fmt"
	"time"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// User is a managed account as seen by administrators.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Wrapped httpx sentinels; the handler delegates status mapping to
// httpx.RespondError.
var (
	ErrNotFound    = fmt.Errorf("users: user: %w", httpx.ErrNotFound)
	ErrUnknownRole = fmt.Errorf("users: unknown role: %w", httpx.ErrValidation)
	ErrLastAdmin   = fmt.Errorf("users: cannot remove the last active admin: %w", httpx.ErrConflict)
)
