package auth

// HasUserUUID reports whether the session subject parses as a UUID. Sessions
// built from verified access claims always carry one; hand-built session
// objects may not.
func HasUserUUID(session Session) bool {
	if session == nil {
		return false
	}
	if _, err := session.GetUserUUID(); err != nil {
		return false
	}
	return true
}
