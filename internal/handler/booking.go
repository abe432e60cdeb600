package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/middleware"
	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/service"
)

// BookingHandler serves the caller's own bookings.  Every route requires
// TokenAuth.
type BookingHandler struct {
	Ledger *service.BookingService
	Log    zerolog.Logger
}

func NewBookingHandler(ledger *service.BookingService, log zerolog.Logger) *BookingHandler {
	return &BookingHandler{Ledger: ledger, Log: log}
}

// bookingReq has no user field: the owner is always the caller, so any
// "user" or "user_id" in the body is dropped by the decoder.
type bookingReq struct {
	EventID uint64 `json:"event_id"`
}

type bookingList struct {
	Items []model.BookingDetail `json:"items"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Ledger.CreateBooking(ctx, middleware.PrincipalFrom(c), req.EventID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /v1/bookings.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, err := h.Ledger.ListBookings(ctx, middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, bookingList{Items: items})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Ledger.GetBooking(ctx, middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Ledger.CancelBooking(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
