package middleware

// identity.go holds the helpers that move the authenticated principal
// through the Echo context.  TokenAuth stores it; handlers, RequireRole
// and the rate limiter read it back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booksphere/internal/service"
)

const (
	principalKey = "principal"
	userIDKey    = "user_id"
	roleKey      = "role"
)

// SetPrincipal stores p on the request context.
func SetPrincipal(c echo.Context, p service.Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, strconv.FormatUint(p.UserID, 10))
	c.Set(roleKey, string(p.Role))
}

// PrincipalFrom returns the principal stored by TokenAuth, or the zero
// (anonymous) principal.
func PrincipalFrom(c echo.Context) service.Principal {
	if p, ok := c.Get(principalKey).(service.Principal); ok {
		return p
	}
	return service.Principal{}
}

// userID returns the caller's id as a string, or "guest".
func userID(c echo.Context) string {
	if p := PrincipalFrom(c); p.Authenticated() {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "guest"
}
