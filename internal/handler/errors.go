package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/service"
)

// statusFor maps a service error kind to its HTTP status.  This is the
// only place the mapping lives.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindInvalidCredentials:
		return http.StatusBadRequest
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": ..., "fields": ...}.  Errors that
// did not come from the service layer are logged and reported as a bare
// 500.
func writeError(c echo.Context, log zerolog.Logger, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		log.Error().Err(err).Str("route", c.Path()).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	body := echo.Map{"error": se.Message}
	if len(se.Fields) > 0 {
		body["fields"] = se.Fields
	}
	return c.JSON(statusFor(se.Kind), body)
}

// badRequest is for malformed requests rejected before reaching a service.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
