package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/booksphere/internal/handler"
	"github.com/iliyamo/booksphere/internal/metrics"
	"github.com/iliyamo/booksphere/internal/middleware"
	"github.com/iliyamo/booksphere/internal/model"
)

// Guards bundles the middleware the route groups are assembled from.
// Middleware is attached per route rather than per group so that an
// unknown path under /v1 is a plain 404 and not a 401.
type Guards struct {
	Auth      echo.MiddlewareFunc // TokenAuth
	Admin     echo.MiddlewareFunc // RequireRole(admin), after Auth
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc // public event reads
}

func (g Guards) public() []echo.MiddlewareFunc { return []echo.MiddlewareFunc{g.RateLimit} }

func (g Guards) authed() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.Auth, g.RateLimit}
}

func (g Guards) admin() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.Auth, g.Admin, g.RateLimit}
}

// NewGuards builds Guards from an authenticator, a rate limiter and the
// response cache (which may be nil).
func NewGuards(a middleware.Authenticator, rl echo.MiddlewareFunc, cache *middleware.ResponseCache) Guards {
	return Guards{
		Auth:      middleware.TokenAuth(a),
		Admin:     middleware.RequireRole(model.RoleAdmin),
		RateLimit: rl,
		Cache:     cache.Middleware(),
	}
}

// RegisterRoutes registers the operational endpoints: /healthz for load
// balancers and /metrics for Prometheus.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}

// RegisterAuth registers registration, login, logout and /me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	v1 := e.Group("/v1")
	v1.POST("/register/user", a.RegisterUser, g.public()...)
	v1.POST("/register/admin", a.RegisterAdmin, g.public()...)
	v1.POST("/login", a.Login, g.public()...)

	v1.POST("/logout", a.Logout, g.authed()...)
	v1.GET("/me", a.Me, g.authed()...)
}

// RegisterEvents registers the catalog.  Reads are open to guests and
// cached; writes require an admin token.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, g Guards) {
	v1 := e.Group("/v1")
	read := append(g.public(), g.Cache)
	v1.GET("/events", h.List, read...)
	v1.GET("/events/:id", h.Get, read...)

	v1.POST("/events", h.Create, g.admin()...)
	v1.PUT("/events/:id", h.Replace, g.admin()...)
	v1.PATCH("/events/:id", h.Patch, g.admin()...)
	v1.DELETE("/events/:id", h.Delete, g.admin()...)
}

// RegisterBookings registers the caller-scoped booking endpoints.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, g Guards) {
	v1 := e.Group("/v1")
	v1.POST("/bookings", h.Create, g.authed()...)
	v1.GET("/bookings", h.List, g.authed()...)
	v1.GET("/bookings/:id", h.Get, g.authed()...)
	v1.DELETE("/bookings/:id", h.Cancel, g.authed()...)
}
