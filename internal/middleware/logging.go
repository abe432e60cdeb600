package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request with method, route, status,
// latency and the caller's id.  Headers and bodies are never logged.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			ev := log.Info()
			switch {
			case status >= 500:
				ev = log.Error().Err(err)
			case status >= 400:
				ev = log.Warn()
			}
			ev.Str("method", c.Request().Method).
				Str("route", c.Path()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("ip", c.RealIP()).
				Str("user", userID(c)).
				Msg("request")
			return nil
		}
	}
}
