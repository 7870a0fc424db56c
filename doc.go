// Package auth provides account authentication primitives: credential
// storage, JWT issuance for separate access and refresh token classes,
// email verification and password reset codes, plus role based
// authorization helpers.
//
// Token classes:
//   - Access tokens are short-lived and carry the account's roles so route
//     guards can authorize without touching storage. Refresh tokens carry
//     identity only and are signed with a distinct secret; exchanging one
//     re-derives roles from persistence.
//
// Verification codes:
//   - CodeManager issues 6-digit email verification codes and the password
//     reset pair. Both live inside a short window; redeeming or reissuing a
//     secret replaces the outstanding one. ResetExpiryScheduler emits a
//     best-effort activity event if a reset window lapses unredeemed.
//
// Roles:
//   - Accounts hold a set of roles from a closed hierarchy. Authorize gates
//     on exact membership; IsAtLeast compares tiers for callers that want
//     ordering semantics. The first registered account is seeded with
//     super_admin in addition to the default user role.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     command handlers for login, registration, verification, and password
//     reset events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package auth
