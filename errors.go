package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the exported error variables. The boundary layer can
// branch on these without string-matching messages.
const (
	TextCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	TextCodeCodeInvalidOrExpired = "CODE_INVALID_OR_EXPIRED"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeSamePassword         = "SAME_PASSWORD"
	TextCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	TextCodeForbidden            = "FORBIDDEN"
)

// ErrDuplicateEmail is returned when a registration reuses an existing email
var ErrDuplicateEmail = goerrors.New("email address is already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
// The message must stay identical for the two cases so callers cannot
// enumerate accounts.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrEmailNotVerified rejects logins for accounts that never verified their
// email. The submitted email is attached as metadata so clients can offer a
// resend.
var ErrEmailNotVerified = goerrors.New("email address has not been verified", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeEmailNotVerified)

// ErrCodeInvalidOrExpired rejects verification or reset codes that are absent,
// mismatched, already consumed, or past their window
var ErrCodeInvalidOrExpired = goerrors.New("verification code is invalid or expired", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeCodeInvalidOrExpired)

// ErrTokenExpired is returned when a token fails validation on expiry alone
var ErrTokenExpired = goerrors.New("authentication token has expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for any other token validation failure
var ErrTokenMalformed = goerrors.New("authentication token is invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrSamePassword rejects a password reset that reuses the current password
var ErrSamePassword = goerrors.New("new password must be different from the current password", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeSamePassword)

// ErrAccountNotFound is returned when an account lookup comes up empty in a
// path where the absence may be surfaced (e.g. password reset requests)
var ErrAccountNotFound = goerrors.New("no account is associated with this email", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeAccountNotFound)

// ErrForbidden rejects a caller whose roles do not intersect the required set,
// or who carries no roles at all
var ErrForbidden = goerrors.New("insufficient role for this resource", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch; orchestration
// maps it to ErrInvalidCredentials before it reaches a caller
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// IsDuplicateEmail will check for the duplicate email failure kind
func IsDuplicateEmail(err error) bool {
	return hasTextCode(err, TextCodeDuplicateEmail)
}

// IsInvalidOrExpiredCode will check for the code validation failure kind
func IsInvalidOrExpiredCode(err error) bool {
	return hasTextCode(err, TextCodeCodeInvalidOrExpired)
}

// IsInvalidOrExpiredToken matches both token failure modes; callers treat them
// uniformly as a terminal 401
func IsInvalidOrExpiredToken(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired) || hasTextCode(err, TextCodeTokenMalformed)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
