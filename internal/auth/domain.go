package auth

import (
	"errors"
	"time"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token validation failure reasons. The gate maps each to a distinct
// problem response so clients can tell a stale token from a forged one.
var (
	ErrTokenMalformed = errors.New("auth: malformed token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenRevoked   = errors.New("auth: token revoked")
)

// Reset token failure reasons.
var (
	ErrResetTokenInvalid = errors.New("auth: reset token invalid")
	ErrResetTokenExpired = errors.New("auth: reset token expired")
	ErrResetTokenUsed    = errors.New("auth: reset token already used")
)

// ErrDuplicateUser indicates the username or email is already taken.
var ErrDuplicateUser = errors.New("auth: username or email already exists")
