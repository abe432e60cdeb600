package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booksphere/internal/service"
	"github.com/iliyamo/booksphere/internal/utils"
)

// Authenticator resolves a raw bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (service.Principal, error)
}

// TokenAuth returns an Echo middleware that requires an
// "Authorization: Bearer <token>" (or "Token <token>") header, resolves it
// through a and stores the principal in the context.  A missing or
// rejected token ends the request with 401.
func TokenAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := utils.TokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication credentials were not provided"})
			}

			p, err := a.Authenticate(c.Request().Context(), raw)
			if err != nil {
				if service.KindOf(err) == service.KindUnauthenticated {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
				return err
			}

			SetPrincipal(c, p)
			return next(c)
		}
	}
}
