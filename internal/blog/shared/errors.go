// Package shared holds helpers common to the blog content modules.
package shared

import (
	"fmt"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
)

// Module errors wrap the httpx sentinels, so handlers hand them straight
// to httpx.RespondError for status mapping.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = fmt.Errorf("blog: record: %w", httpx.ErrNotFound)
	// ErrDuplicateSlug indicates a slug collision on create or update.
	ErrDuplicateSlug = fmt.Errorf("blog: slug taken: %w", httpx.ErrDuplicate)
	// ErrNotOwner indicates the actor does not own the record and holds
	// no overriding role.
	ErrNotOwner = fmt.Errorf("blog: not the record owner: %w", httpx.ErrForbidden)
)

// ListFilters captures common listing parameters.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
}

// Offset computes the row offset for the filter.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
