package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is inactive")
	// ErrStoreUnavailable indicates the shared store could not be reached.
	ErrStoreUnavailable = errors.New("shared store unavailable")
)
