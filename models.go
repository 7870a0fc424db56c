package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleName is a named privilege tier
type RoleName = string

const (
	// RoleSuperAdmin is the highest privilege tier, granted to the first account only
	RoleSuperAdmin RoleName = "super_admin"
	// RoleAdmin is an administrative role
	RoleAdmin RoleName = "admin"
	// RoleContentEditor can manage published content
	RoleContentEditor RoleName = "content_editor"
	// RoleAuthor can create content
	RoleAuthor RoleName = "author"
	// RoleUser is the default role for every account
	RoleUser RoleName = "user"
	// RoleBlocked marks an account denied access
	RoleBlocked RoleName = "blocked"
	// RoleAuthorSuspended marks an author with publishing revoked
	RoleAuthorSuspended RoleName = "author_suspended"
)

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Role is a row of the closed role taxonomy. The privilege ordering lives in
// RoleHierarchy, not in the table.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          RoleName  `bun:"role,notnull,unique" json:"role,omitempty"`
	Description   string    `bun:"description" json:"description,omitempty"`
}

// AccountRole joins accounts to roles, unique per pair
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:acr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	RoleID        uuid.UUID `bun:"role_id,notnull,type:uuid" json:"role_id,omitempty"`
}

// VerificationState describes where a code stands in its lifecycle
type VerificationState = string

const (
	// VerificationNone means no code has been issued
	VerificationNone VerificationState = "none"
	// VerificationPending means a live code is outstanding
	VerificationPending VerificationState = "pending"
	// VerificationConsumed means the code was used successfully
	VerificationConsumed VerificationState = "consumed"
	// VerificationExpired means the code outlived its window
	VerificationExpired VerificationState = "expired"
)

// VerificationRecord tracks email-verification and password-reset secrets for
// one account. A code field and its expiry are always set and cleared together:
// a code is live iff it is present and now is before the expiry.
type VerificationRecord struct {
	bun.BaseModel `bun:"table:verifications,alias:vrf"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	Account       *Account  `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`

	EmailVerificationCode      string     `bun:"email_verification_code,nullzero" json:"-"`
	EmailVerificationExpiresAt *time.Time `bun:"email_verification_expires_at,nullzero" json:"email_verification_expires_at,omitempty"`
	Verified                   bool       `bun:"is_verified" json:"is_verified,omitempty"`

	// PasswordResetToken is retained server side only; it is never mailed and,
	// matching the source system, never participates in validation. Only
	// PasswordResetCode is checked at reset time.
	PasswordResetToken     string     `bun:"password_reset_token,nullzero" json:"-"`
	PasswordResetCode      string     `bun:"password_reset_code,nullzero" json:"-"`
	PasswordResetExpiresAt *time.Time `bun:"password_reset_expires_at,nullzero" json:"password_reset_expires_at,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EmailCodeState derives the email-verification lifecycle state at the given instant
func (v *VerificationRecord) EmailCodeState(now time.Time) VerificationState {
	if v.Verified {
		return VerificationConsumed
	}
	return codeState(v.EmailVerificationCode, v.EmailVerificationExpiresAt, now)
}

// ResetState derives the password-reset lifecycle state at the given instant.
// A consumed reset clears its fields, so it reports VerificationNone.
func (v *VerificationRecord) ResetState(now time.Time) VerificationState {
	return codeState(v.PasswordResetCode, v.PasswordResetExpiresAt, now)
}

// EmailCodeLive reports whether the stored email code can still be redeemed
func (v *VerificationRecord) EmailCodeLive(now time.Time) bool {
	return codeState(v.EmailVerificationCode, v.EmailVerificationExpiresAt, now) == VerificationPending
}

// ResetCodeLive reports whether the stored reset code can still be redeemed
func (v *VerificationRecord) ResetCodeLive(now time.Time) bool {
	return codeState(v.PasswordResetCode, v.PasswordResetExpiresAt, now) == VerificationPending
}

func codeState(code string, expiresAt *time.Time, now time.Time) VerificationState {
	if code == "" || expiresAt == nil {
		return VerificationNone
	}
	if !now.Before(*expiresAt) {
		return VerificationExpired
	}
	return VerificationPending
}

// Profile is the roles-annotated account view returned on login
type Profile struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Roles     []RoleName `json:"roles"`
	RoleInfo  []Role     `json:"roles_with_description,omitempty"`
	Verified  bool       `json:"is_verified"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
