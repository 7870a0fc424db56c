package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token-class markers embedded in the token_use claim. The real isolation
// between classes comes from the distinct signing secrets; the marker is a
// second gate checked at verification time.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// AuthClaims represents verified access-token claims with role checks
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Roles() []RoleName
	HasRole(role RoleName) bool
	IsAtLeast(minRole RoleName) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// AccessClaims is the concrete implementation of AuthClaims. Roles are
// embedded so the boundary layer can gate requests without a storage
// round-trip.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID          string     `json:"uid,omitempty"`
	AccountEmail string     `json:"email,omitempty"`
	AccountRoles []RoleName `json:"roles,omitempty"`
	TokenUse     string     `json:"token_use,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*AccessClaims)(nil)

// Subject returns the subject claim
func (c *AccessClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account ID
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the account email
func (c *AccessClaims) Email() string {
	return c.AccountEmail
}

// Roles returns the role names captured at issuance
func (c *AccessClaims) Roles() []RoleName {
	return c.AccountRoles
}

// HasRole checks if the claims carry a specific role (exact match)
func (c *AccessClaims) HasRole(role RoleName) bool {
	for _, r := range c.AccountRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks if any carried role meets the minimum required tier
func (c *AccessClaims) IsAtLeast(minRole RoleName) bool {
	for _, r := range c.AccountRoles {
		if IsAtLeast(r, minRole) {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RefreshClaims carry identity only. Roles are deliberately absent so a role
// change takes effect on the next refresh without reissuing the refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID          string `json:"uid,omitempty"`
	AccountEmail string `json:"email,omitempty"`
	TokenUse     string `json:"token_use,omitempty"`
}

// UserID returns the account ID
func (c *RefreshClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Email returns the account email
func (c *RefreshClaims) Email() string {
	return c.AccountEmail
}
