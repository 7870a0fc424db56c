package auth_test

import (
	"testing"

	auth "github.com/nightnovels/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestRoleHierarchyOrdering(t *testing.T) {
	idx := func(role auth.RoleName) int {
		i, ok := auth.RoleIndex(role)
		assert.True(t, ok, "role %s should be known", role)
		return i
	}

	assert.Equal(t, 0, idx(auth.RoleSuperAdmin))
	assert.Less(t, idx(auth.RoleSuperAdmin), idx(auth.RoleAdmin))
	assert.Less(t, idx(auth.RoleAdmin), idx(auth.RoleContentEditor))
	assert.Less(t, idx(auth.RoleContentEditor), idx(auth.RoleAuthor))
	assert.Less(t, idx(auth.RoleAuthor), idx(auth.RoleUser))
	assert.Less(t, idx(auth.RoleUser), idx(auth.RoleBlocked))
	assert.Less(t, idx(auth.RoleBlocked), idx(auth.RoleAuthorSuspended))

	_, ok := auth.RoleIndex("made_up_role")
	assert.False(t, ok)
}

func TestIsValidRole(t *testing.T) {
	for _, role := range auth.RoleHierarchy {
		assert.True(t, auth.IsValidRole(role))
	}
	assert.False(t, auth.IsValidRole(""))
	assert.False(t, auth.IsValidRole("root"))
}

func TestIsAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		userRole auth.RoleName
		minRole  auth.RoleName
		expected bool
	}{
		{"super admin outranks admin", auth.RoleSuperAdmin, auth.RoleAdmin, true},
		{"admin outranks user", auth.RoleAdmin, auth.RoleUser, true},
		{"same tier satisfies itself", auth.RoleUser, auth.RoleUser, true},
		{"user does not outrank admin", auth.RoleUser, auth.RoleAdmin, false},
		{"blocked does not outrank user", auth.RoleBlocked, auth.RoleUser, false},
		{"unknown user role fails", "root", auth.RoleUser, false},
		{"unknown min role fails", auth.RoleSuperAdmin, "root", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsAtLeast(tt.userRole, tt.minRole))
		})
	}
}

func TestAuthorizeExactMatch(t *testing.T) {
	authorizer := auth.NewAuthorizer()

	t.Run("membership grants access", func(t *testing.T) {
		err := authorizer.Authorize([]auth.RoleName{auth.RoleUser}, auth.RoleUser)
		assert.NoError(t, err)
	})

	t.Run("any required role suffices", func(t *testing.T) {
		err := authorizer.Authorize(
			[]auth.RoleName{auth.RoleAuthor},
			auth.RoleAdmin, auth.RoleAuthor,
		)
		assert.NoError(t, err)
	})

	t.Run("hierarchy is not implied", func(t *testing.T) {
		// super_admin outranks admin in the hierarchy, but Authorize checks
		// membership only
		err := authorizer.Authorize([]auth.RoleName{auth.RoleSuperAdmin}, auth.RoleAdmin)
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("no roles is always forbidden", func(t *testing.T) {
		err := authorizer.Authorize(nil, auth.RoleUser)
		assert.ErrorIs(t, err, auth.ErrForbidden)

		err = authorizer.Authorize([]auth.RoleName{})
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("empty requirement admits any role holder", func(t *testing.T) {
		err := authorizer.Authorize([]auth.RoleName{auth.RoleBlocked})
		assert.NoError(t, err)
	})

	t.Run("no intersection is forbidden", func(t *testing.T) {
		err := authorizer.Authorize(
			[]auth.RoleName{auth.RoleUser, auth.RoleAuthor},
			auth.RoleAdmin, auth.RoleContentEditor,
		)
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})
}
