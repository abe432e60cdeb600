package model

import (
	"strings"
	"time"
)

// Role is the single authorization attribute of a user.  It replaces any
// combination of staff/superuser style flags: a user is either a regular
// user or an admin, and the value never changes after registration.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a stored role string onto a Role.  Unknown values fall
// back to RoleUser so that a corrupted row can never grant admin rights.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// User represents an application user record as stored in the
// `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – display name as entered at registration.
//	Email        – unique email address, always lower case.
//	PasswordHash – bcrypt hashed password.
//	Role         – user or admin.
//	IsActive     – disabled accounts cannot log in.
//	CreatedAt    – timestamp of creation (date joined).
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"date_joined"`
	UpdatedAt    time.Time `json:"-"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// AuthToken models a row in the `auth_tokens` table.  A user owns at
// most one token; the row is keyed by user_id.
//
// Fields:
//
//	UserID    – owner of the token (primary key).
//	TokenID   – the JWT id (jti) embedded in Token.
//	Token     – the bearer string handed to the client.
//	CreatedAt – when the token was issued.
//	ExpiresAt – when the token stops being accepted.
type AuthToken struct {
	UserID    uint64
	TokenID   string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at instant now.
func (t AuthToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
