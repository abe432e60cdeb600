package service

import "github.com/iliyamo/booksphere/internal/model"

// Principal is the authenticated identity behind a request.
type Principal struct {
	UserID   uint64
	Username string
	Email    string
	Role     model.Role
}

// Authenticated reports whether p identifies a user.
func (p Principal) Authenticated() bool { return p.UserID != 0 }

// IsAdmin reports whether p carries the admin role.
func (p Principal) IsAdmin() bool { return p.Authenticated() && p.Role == model.RoleAdmin }

// PrincipalOf builds the principal for a loaded user.
func PrincipalOf(u model.User) Principal {
	return Principal{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// RequireRole is the role-gate: p must be authenticated and hold one of
// the given roles.
func RequireRole(p Principal, roles ...model.Role) error {
	if !p.Authenticated() {
		return unauthenticated("authentication required")
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return forbidden("you do not have permission to perform this action")
}

// ownerScope is the owner-gate.  The returned id is applied as a query
// filter by every booking read and write, so rows owned by other users
// are never loaded at all.
func ownerScope(p Principal) (uint64, error) {
	if !p.Authenticated() {
		return 0, unauthenticated("authentication required")
	}
	return p.UserID, nil
}
