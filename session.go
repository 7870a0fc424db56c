package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Roles          []RoleName     `json:"roles,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetRoles() []RoleName {
	return s.Roles
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

// HasRole checks if the session carries a specific role
func (s *SessionObject) HasRole(role RoleName) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks if any session role meets the minimum required tier
func (s *SessionObject) IsAtLeast(minRole RoleName) bool {
	for _, r := range s.Roles {
		if IsAtLeast(r, minRole) {
			return true
		}
	}
	return false
}

// IsFresh reports whether the session was issued within the given window,
// e.g. "15m". Boundary code can demand a fresh login before sensitive
// operations instead of trusting a long-lived token.
func (s *SessionObject) IsFresh(threshold string) (bool, error) {
	if s.IssuedAt == nil {
		return false, nil
	}
	return IsWithinThresholdPeriod(*s.IssuedAt, threshold)
}

// TODO: enable only in development!
func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s aud=%v iss=%s iat=%s roles=%v",
		s.UserID,
		s.Audience,
		s.Issuer,
		issuedAt,
		s.Roles,
	)
}

// sessionFromAccessClaims creates a SessionObject from verified access claims
func sessionFromAccessClaims(claims *AccessClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	data := make(map[string]any)
	if claims.AccountEmail != "" {
		data["email"] = claims.AccountEmail
	}

	var audience []string
	if claims.RegisteredClaims.Audience != nil {
		audience = append(audience, claims.RegisteredClaims.Audience...)
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Audience:       audience,
		Issuer:         claims.RegisteredClaims.Issuer,
		Roles:          append([]RoleName(nil), claims.AccountRoles...),
		Data:           data,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
