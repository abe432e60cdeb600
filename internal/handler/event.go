package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/middleware"
	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/service"
)

// EventHandler serves the event catalog.  Reads are public; writes are
// mounted behind TokenAuth and RequireRole(admin).
type EventHandler struct {
	Catalog *service.CatalogService
	Log     zerolog.Logger
}

func NewEventHandler(catalog *service.CatalogService, log zerolog.Logger) *EventHandler {
	return &EventHandler{Catalog: catalog, Log: log}
}

func (h *EventHandler) bindError(c echo.Context, err error) error {
	if errors.Is(err, model.ErrInvalidPrice) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "invalid input",
			"fields": map[string]string{"price": "a valid number with at most 2 decimal places is required"},
		})
	}
	return badRequest(c, "invalid body")
}

// List handles GET /v1/events?category=&search=&from=&to=&ordering=&limit=&offset=.
func (h *EventHandler) List(c echo.Context) error {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return badRequest(c, "invalid limit")
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return badRequest(c, "invalid offset")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	page, err := h.Catalog.ListEvents(ctx, service.EventFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
		From:     c.QueryParam("from"),
		To:       c.QueryParam("to"),
		Ordering: c.QueryParam("ordering"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Catalog.GetEvent(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c echo.Context) error {
	var in service.EventInput
	if err := c.Bind(&in); err != nil {
		return h.bindError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Catalog.CreateEvent(ctx, middleware.PrincipalFrom(c), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// Replace handles PUT /v1/events/:id; every field is required.
func (h *EventHandler) Replace(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var in service.EventInput
	if err := c.Bind(&in); err != nil {
		return h.bindError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Catalog.ReplaceEvent(ctx, middleware.PrincipalFrom(c), id, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Patch handles PATCH /v1/events/:id; absent fields are left unchanged.
func (h *EventHandler) Patch(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var in service.EventPatch
	if err := c.Bind(&in); err != nil {
		return h.bindError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Catalog.UpdateEvent(ctx, middleware.PrincipalFrom(c), id, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /v1/events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Catalog.DeleteEvent(ctx, middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
