// Package app assembles the HTTP server from configuration and its
// backing stores.
package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/config"
	"github.com/iliyamo/booksphere/internal/handler"
	"github.com/iliyamo/booksphere/internal/middleware"
	"github.com/iliyamo/booksphere/internal/queue"
	"github.com/iliyamo/booksphere/internal/repository"
	"github.com/iliyamo/booksphere/internal/router"
	"github.com/iliyamo/booksphere/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App owns the Echo server and the background booking consumer.
type App struct {
	Echo *echo.Echo

	cfg config.Config
	log zerolog.Logger
}

// New wires repositories, services, handlers and routes.  rdb may be nil,
// which disables caching and rate limiting.  Booking events are published
// only when an AMQP URL is configured.
func New(cfg config.Config, log zerolog.Logger, db *sql.DB, rdb *redis.Client) *App {
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)

	var notifier service.BookingNotifier
	if cfg.AMQPURL != "" {
		notifier = queue.NewPublisher(cfg.AMQPURL, log)
	}
	cache := middleware.NewResponseCache(cfg.Cache, rdb, log)

	identity := service.NewIdentityService(log, users, cfg.BcryptCost, cfg.AdminSecret)
	auth := service.NewAuthService(log, users, tokens, cfg.JWTSecret, cfg.TokenTTL)
	catalog := service.NewCatalogService(log, events, bookings, cache)
	ledger := service.NewBookingService(log, events, bookings, notifier)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())
	e.Use(echomw.BodyLimit("1M"))

	guards := router.NewGuards(auth, middleware.NewTokenBucket(cfg.RateLimit, rdb, log), cache)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(identity, auth, log), guards)
	router.RegisterEvents(e, handler.NewEventHandler(catalog, log), guards)
	router.RegisterBookings(e, handler.NewBookingHandler(ledger, log), guards)

	return &App{Echo: e, cfg: cfg, log: log}
}

// errorHandler renders errors that escape handlers (unknown routes,
// wrong methods, panics) in the same {"error": ...} shape as the API.
func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		} else {
			log.Error().Err(err).Str("route", c.Path()).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, echo.Map{"error": msg})
	}
}

// Run serves HTTP and consumes booking events until ctx is cancelled,
// then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.AMQPURL != "" {
		bl := queue.NewBookingLog(a.cfg.BookingLogDir)
		go func() {
			if err := queue.StartBookingConsumer(ctx, a.cfg.AMQPURL, bl, a.log); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error().Err(err).Msg("booking consumer stopped")
			}
		}()
	}

	addr := ":" + a.cfg.Port
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Str("env", a.cfg.Env).Msg("listening")
		if err := a.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Echo.Shutdown(sctx)
}
