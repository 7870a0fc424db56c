package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/nightnovels/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestAccessClaims(t *testing.T) {
	now := time.Now()
	claims := &auth.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-id",
			Issuer:    "test-issuer",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UID:          "uid-id",
		AccountEmail: "pepe.rone@example.com",
		AccountRoles: []auth.RoleName{auth.RoleAdmin, auth.RoleUser},
	}

	t.Run("accessors", func(t *testing.T) {
		assert.Equal(t, "subject-id", claims.Subject())
		assert.Equal(t, "uid-id", claims.UserID())
		assert.Equal(t, "pepe.rone@example.com", claims.Email())
		assert.Equal(t, []auth.RoleName{auth.RoleAdmin, auth.RoleUser}, claims.Roles())
		assert.WithinDuration(t, now, claims.IssuedAt(), time.Second)
		assert.WithinDuration(t, now.Add(time.Hour), claims.Expires(), time.Second)
	})

	t.Run("UserID falls back to subject", func(t *testing.T) {
		c := &auth.AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		}
		assert.Equal(t, "subject-id", c.UserID())
	})

	t.Run("HasRole is exact membership", func(t *testing.T) {
		assert.True(t, claims.HasRole(auth.RoleAdmin))
		assert.True(t, claims.HasRole(auth.RoleUser))
		assert.False(t, claims.HasRole(auth.RoleSuperAdmin))
		assert.False(t, claims.HasRole(auth.RoleAuthor))
	})

	t.Run("IsAtLeast uses the best held role", func(t *testing.T) {
		assert.True(t, claims.IsAtLeast(auth.RoleAdmin))
		assert.True(t, claims.IsAtLeast(auth.RoleUser))
		assert.True(t, claims.IsAtLeast(auth.RoleAuthor))
		assert.False(t, claims.IsAtLeast(auth.RoleSuperAdmin))
	})

	t.Run("zero timestamps", func(t *testing.T) {
		c := &auth.AccessClaims{}
		assert.True(t, c.Expires().IsZero())
		assert.True(t, c.IssuedAt().IsZero())
	})
}

func TestRefreshClaims(t *testing.T) {
	claims := &auth.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
		UID:              "uid-id",
		AccountEmail:     "pepe.rone@example.com",
	}

	assert.Equal(t, "uid-id", claims.UserID())
	assert.Equal(t, "pepe.rone@example.com", claims.Email())

	empty := &auth.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
	}
	assert.Equal(t, "subject-id", empty.UserID())
}
