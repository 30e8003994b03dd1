// Package rbac holds the role-permission matrix and the authorization
// middleware consulting it. Permissions are plain data: a role maps to a
// set of action tags, and a user's effective permissions are the union
// over their role snapshot. Keeping the policy in one table makes it
// centrally testable instead of scattering checks across handlers.
package rbac

import (
	"sort"
	"strings"
)

// Role names known to the system.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleAuthor    = "author"
	RoleReader    = "reader"
)

// Action tags guarding protected operations.
const (
	ActionCreatePost      = "create:post"
	ActionUpdatePost      = "update:post"
	ActionDeletePost      = "delete:post"
	ActionCreateCategory  = "create:category"
	ActionUpdateCategory  = "update:category"
	ActionDeleteCategory  = "delete:category"
	ActionCreateTag       = "create:tag"
	ActionDeleteTag       = "delete:tag"
	ActionCreateComment   = "create:comment"
	ActionDeleteComment   = "delete:comment"
	ActionModerateComment = "moderate:comment"
	ActionManageUsers     = "manage:users"
)

var readerActions = []string{
	ActionCreateComment,
}

var authorActions = append([]string{
	ActionCreatePost,
	ActionUpdatePost,
	ActionDeletePost,
}, readerActions...)

var moderatorActions = append([]string{
	ActionDeleteComment,
	ActionModerateComment,
}, authorActions...)

var adminActions = append([]string{
	ActionCreateCategory,
	ActionUpdateCategory,
	ActionDeleteCategory,
	ActionCreateTag,
	ActionDeleteTag,
	ActionManageUsers,
}, moderatorActions...)

var matrix = map[string]map[string]struct{}{
	RoleReader:    toSet(readerActions),
	RoleAuthor:    toSet(authorActions),
	RoleModerator: toSet(moderatorActions),
	RoleAdmin:     toSet(adminActions),
}

func toSet(actions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// KnownRole reports whether the role name exists in the matrix.
func KnownRole(role string) bool {
	_, ok := matrix[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// Allowed reports whether any of the roles grants the action. Unknown
// roles grant nothing.
func Allowed(roles []string, action string) bool {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return false
	}
	for _, role := range roles {
		if actions, ok := matrix[strings.ToLower(role)]; ok {
			if _, ok := actions[action]; ok {
				return true
			}
		}
	}
	return false
}

// ActionsFor returns the union of permitted actions for the roles,
// sorted for stable output.
func ActionsFor(roles []string) []string {
	union := make(map[string]struct{})
	for _, role := range roles {
		for action := range matrix[strings.ToLower(role)] {
			union[action] = struct{}{}
		}
	}
	out := make([]string, 0, len(union))
	for action := range union {
		out = append(out, action)
	}
	sort.Strings(out)
	return out
}
