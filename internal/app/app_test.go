package app_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booksphere/internal/app"
	"github.com/iliyamo/booksphere/internal/config"
	"github.com/iliyamo/booksphere/internal/database/dbtest"
)

const adminSecret = "e2e-admin-secret"

type client struct {
	t *testing.T
	h http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	cfg := config.Config{
		Env:         "test",
		JWTSecret:   "e2e-jwt-secret",
		TokenTTL:    time.Hour,
		AdminSecret: adminSecret,
		BcryptCost:  4,
	}
	a := app.New(cfg, zerolog.Nop(), dbtest.Open(t), nil)
	return &client{t: t, h: a.Echo}
}

func (c *client) do(method, path, token string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (c *client) login(email, password string) string {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/v1/login", "", map[string]string{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, code, body)
	token, _ := body["token"].(string)
	require.NotEmpty(c.t, token)
	return token
}

func (c *client) admin() string {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/v1/register/admin", "", map[string]string{
		"username": "root", "email": "root@x.com", "password": "rootpw", "secret_key": adminSecret,
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	return c.login("root@x.com", "rootpw")
}

func (c *client) createEvent(token string) uint64 {
	c.t.Helper()
	code, body := c.do(http.MethodPost, "/v1/events", token, map[string]any{
		"name": "Launch Party", "description": "drinks", "category": "social",
		"date": "2030-06-01T18:00", "venue": "Rooftop", "price": "15.00",
	})
	require.Equal(c.t, http.StatusCreated, code, body)
	return uint64(body["id"].(float64))
}

func TestBookingFlow(t *testing.T) {
	c := newClient(t)
	eventID := c.createEvent(c.admin())

	code, body := c.do(http.MethodPost, "/v1/register/user", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "user", body["role"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")

	token := c.login("a@x.com", "pw123")

	code, body = c.do(http.MethodPost, "/v1/bookings", token, map[string]any{"event_id": eventID})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Launch Party", body["event_name"])
	assert.Equal(t, "Rooftop", body["event_venue"])
	assert.Equal(t, "15.00", body["event_price"])

	code, body = c.do(http.MethodPost, "/v1/bookings", token, map[string]any{"event_id": eventID})
	assert.Equal(t, http.StatusConflict, code, body)
	assert.NotEmpty(t, body["error"])

	code, body = c.do(http.MethodGet, "/v1/bookings", token, nil)
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	assert.Len(t, items, 1)
}

func TestBookingOwnerComesFromToken(t *testing.T) {
	c := newClient(t)
	eventID := c.createEvent(c.admin())

	for _, u := range []string{"bob", "carol"} {
		code, body := c.do(http.MethodPost, "/v1/register/user", "", map[string]string{
			"username": u, "email": u + "@x.com", "password": "pw123",
		})
		require.Equal(t, http.StatusCreated, code, body)
	}
	bob := c.login("bob@x.com", "pw123")
	carol := c.login("carol@x.com", "pw123")

	code, me := c.do(http.MethodGet, "/v1/me", carol, nil)
	require.Equal(t, http.StatusOK, code)

	code, body := c.do(http.MethodPost, "/v1/bookings", bob, map[string]any{"event_id": eventID, "user_id": me["id"], "user": me["id"]})
	require.Equal(t, http.StatusCreated, code, body)
	_, bobMe := c.do(http.MethodGet, "/v1/me", bob, nil)
	assert.Equal(t, bobMe["id"], body["user_id"])

	code, body = c.do(http.MethodGet, "/v1/bookings", carol, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["items"])

	bookingID := c.firstBookingID(bob)
	code, _ = c.do(http.MethodGet, "/v1/bookings/"+bookingID, carol, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodDelete, "/v1/bookings/"+bookingID, carol, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodDelete, "/v1/bookings/"+bookingID, bob, nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func (c *client) firstBookingID(token string) string {
	c.t.Helper()
	code, body := c.do(http.MethodGet, "/v1/bookings", token, nil)
	require.Equal(c.t, http.StatusOK, code)
	items := body["items"].([]any)
	require.NotEmpty(c.t, items)
	id := items[0].(map[string]any)["id"].(float64)
	return jsonNumber(id)
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestAuthorizationFailures(t *testing.T) {
	c := newClient(t)
	adminToken := c.admin()
	eventID := c.createEvent(adminToken)

	code, _ := c.do(http.MethodPost, "/v1/register/user", "", map[string]string{
		"username": "dave", "email": "d@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusCreated, code)
	user := c.login("d@x.com", "pw123")

	code, _ = c.do(http.MethodGet, "/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodGet, "/v1/bookings", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodPost, "/v1/events", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodPost, "/v1/events", user, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = c.do(http.MethodDelete, "/v1/events/1", user, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := c.do(http.MethodPost, "/v1/login", "", map[string]string{"email": "d@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid credentials", body["error"])

	code, _ = c.do(http.MethodPost, "/v1/register/admin", "", map[string]string{
		"username": "mallory", "email": "m@x.com", "password": "pw123", "secret_key": "guess",
	})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = c.do(http.MethodPost, "/v1/login", "", map[string]string{"email": "m@x.com", "password": "pw123"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/v1/logout", user, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = c.do(http.MethodPost, "/v1/bookings", user, map[string]any{"event_id": eventID})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestEventEndpoints(t *testing.T) {
	c := newClient(t)
	token := c.admin()
	id := jsonNumber(float64(c.createEvent(token)))

	code, body := c.do(http.MethodGet, "/v1/events/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "15.00", body["price"])
	assert.Equal(t, "2030-06-01T18:00:00Z", body["date"])

	code, body = c.do(http.MethodPatch, "/v1/events/"+id, token, map[string]any{"price": 20.5})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "20.50", body["price"])
	assert.Equal(t, "Launch Party", body["name"])

	code, body = c.do(http.MethodPatch, "/v1/events/"+id, token, map[string]any{"price": "1.234"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = c.do(http.MethodPut, "/v1/events/"+id, token, map[string]any{"name": "only"})
	assert.Equal(t, http.StatusBadRequest, code, body)
	assert.Contains(t, body["fields"], "venue")

	code, body = c.do(http.MethodGet, "/v1/events?category=social&limit=10", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 10, body["limit"])

	code, _ = c.do(http.MethodGet, "/v1/events?ordering=venue", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodDelete, "/v1/events/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, body = c.do(http.MethodGet, "/v1/events/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "event not found", body["error"])

	code, _ = c.do(http.MethodGet, "/v1/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOperationalEndpoints(t *testing.T) {
	c := newClient(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booksphere_http_requests_total")

	code, body := c.do(http.MethodGet, "/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body["error"])
}
