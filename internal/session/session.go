// Package session carries the caller's identity explicitly through services.
package session

// Role is a marketplace user role.
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleConsumer Role = "consumer"
	RoleAdmin    Role = "admin"
)

// Session identifies who a request is made on behalf of.
// Token is the bearer token forwarded to the marketplace backend, if any.
type Session struct {
	UserID string
	Role   Role
	Token  string
}

// Anonymous is the session used for public catalog reads.
var Anonymous = Session{}

// IsAnonymous reports whether no user is attached.
func (s Session) IsAnonymous() bool {
	return s.UserID == ""
}

// CanActFor reports whether s may read or modify data owned by userID.
func (s Session) CanActFor(userID string) bool {
	if s.Role == RoleAdmin {
		return true
	}
	return s.UserID != "" && s.UserID == userID
}
