package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowedPerRole(t *testing.T) {
	cases := []struct {
		name    string
		roles   []string
		action  string
		allowed bool
	}{
		{"reader comments", []string{RoleReader}, ActionCreateComment, true},
		{"reader cannot post", []string{RoleReader}, ActionCreatePost, false},
		{"reader cannot moderate", []string{RoleReader}, ActionModerateComment, false},
		{"author posts", []string{RoleAuthor}, ActionCreatePost, true},
		{"author inherits comments", []string{RoleAuthor}, ActionCreateComment, true},
		{"author cannot manage users", []string{RoleAuthor}, ActionManageUsers, false},
		{"moderator moderates", []string{RoleModerator}, ActionModerateComment, true},
		{"moderator deletes comments", []string{RoleModerator}, ActionDeleteComment, true},
		{"moderator cannot manage categories", []string{RoleModerator}, ActionCreateCategory, false},
		{"admin manages users", []string{RoleAdmin}, ActionManageUsers, true},
		{"admin manages categories", []string{RoleAdmin}, ActionCreateCategory, true},
		{"admin inherits everything", []string{RoleAdmin}, ActionCreateComment, true},
		{"multiple roles union", []string{RoleReader, RoleAuthor}, ActionCreatePost, true},
		{"unknown role grants nothing", []string{"superuser"}, ActionCreatePost, false},
		{"no roles", nil, ActionCreateComment, false},
		{"empty action", []string{RoleAdmin}, "", false},
		{"unknown action", []string{RoleAdmin}, "launch:rockets", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.allowed, Allowed(tc.roles, tc.action))
		})
	}
}

func TestAllowedCaseInsensitive(t *testing.T) {
	require.True(t, Allowed([]string{"Admin"}, "Manage:Users"))
	require.True(t, Allowed([]string{RoleReader}, " create:comment "))
}

func TestActionsForSortedUnion(t *testing.T) {
	actions := ActionsFor([]string{RoleReader, RoleModerator})
	require.Contains(t, actions, ActionCreateComment)
	require.Contains(t, actions, ActionModerateComment)
	require.NotContains(t, actions, ActionManageUsers)
	require.IsIncreasing(t, actions)

	// Duplicate roles do not duplicate actions.
	again := ActionsFor([]string{RoleModerator, RoleModerator, RoleReader})
	require.Equal(t, actions, again)
}

func TestKnownRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleModerator, RoleAuthor, RoleReader} {
		require.True(t, KnownRole(role))
	}
	require.True(t, KnownRole("ADMIN"))
	require.False(t, KnownRole("superuser"))
	require.False(t, KnownRole(""))
}
