package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// requestTimeout bounds the persistence work of a single request.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter; ok is false only
// for a present but malformed value.
func queryInt(c echo.Context, name string) (n int, ok bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
