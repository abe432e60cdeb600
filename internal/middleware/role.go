package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/service"
)

// RequireRole returns a middleware that lets the request through only when
// the principal stored by TokenAuth holds one of roles.  It must run
// after TokenAuth.  Services repeat the same check, so a route that
// forgets this middleware is still protected.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := service.RequireRole(PrincipalFrom(c), roles...)
			switch service.KindOf(err) {
			case 0:
				return next(c)
			case service.KindUnauthenticated:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication credentials were not provided"})
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to perform this action"})
		}
	}
}
