package auth

// RoleHierarchy is the closed role taxonomy ordered by privilege: index 0 is
// the highest tier. The ordering is configured at deployment, never mutated at
// runtime; adding a role is an administrative change against persistence.
var RoleHierarchy = []RoleName{
	RoleSuperAdmin,
	RoleAdmin,
	RoleContentEditor,
	RoleAuthor,
	RoleUser,
	RoleBlocked,
	RoleAuthorSuspended,
}

// RoleIndex returns the privilege index of a role, false when unknown
func RoleIndex(role RoleName) (int, bool) {
	for i, r := range RoleHierarchy {
		if r == role {
			return i, true
		}
	}
	return 0, false
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(role RoleName) bool {
	_, ok := RoleIndex(role)
	return ok
}

// IsAtLeast checks if userRole meets the minimum required tier. Both roles
// must be known; a lower index outranks a higher one.
func IsAtLeast(userRole, minRole RoleName) bool {
	userIdx, ok := RoleIndex(userRole)
	if !ok {
		return false
	}

	minIdx, ok := RoleIndex(minRole)
	if !ok {
		return false
	}

	return userIdx <= minIdx
}

// Authorizer grants or denies access from role membership. Authorize uses
// exact-match semantics; the IsAtLeast hierarchy comparator is a separate
// primitive and does not feed into it.
type Authorizer struct {
	logger Logger
}

// NewAuthorizer creates an Authorizer
func NewAuthorizer() *Authorizer {
	return &Authorizer{logger: defLogger{}}
}

func (a *Authorizer) WithLogger(logger Logger) *Authorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Authorize allows the caller iff its role membership intersects the required
// set. Hierarchy is not implied: holding super_admin does not satisfy a
// requirement for admin.
func (a *Authorizer) Authorize(userRoles []RoleName, required ...RoleName) error {
	if len(userRoles) == 0 {
		a.logger.Warn("authorize rejected caller with no roles")
		return ErrForbidden
	}

	if len(required) == 0 {
		return nil
	}

	for _, have := range userRoles {
		for _, want := range required {
			if have == want {
				return nil
			}
		}
	}

	return ErrForbidden
}
