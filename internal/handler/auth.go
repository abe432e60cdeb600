package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/middleware"
	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/service"
)

// AuthHandler serves registration, login, logout and /me.
type AuthHandler struct {
	Identity *service.IdentityService
	Auth     *service.AuthService
	Log      zerolog.Logger
}

func NewAuthHandler(identity *service.IdentityService, auth *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Identity: identity, Auth: auth, Log: log}
}

// ----- DTOs -----

type adminRegisterReq struct {
	service.NewUser
	SecretKey string `json:"secret_key"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResp struct {
	ID         uint64     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Role       model.Role `json:"role"`
	IsActive   bool       `json:"is_active"`
	DateJoined time.Time  `json:"date_joined"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		IsActive:   u.IsActive,
		DateJoined: u.CreatedAt,
	}
}

// RegisterUser handles POST /v1/register/user.
func (h *AuthHandler) RegisterUser(c echo.Context) error {
	var req service.NewUser
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Identity.CreateUser(ctx, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// RegisterAdmin handles POST /v1/register/admin.  The body carries the
// usual registration fields plus "secret_key".
func (h *AuthHandler) RegisterAdmin(c echo.Context) error {
	var req adminRegisterReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Identity.CreateAdmin(ctx, req.NewUser, req.SecretKey)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login handles POST /v1/login and returns the caller's token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Logout handles POST /v1/logout by revoking the caller's token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.PrincipalFrom(c)); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me handles GET /v1/me.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Identity.GetUser(ctx, middleware.PrincipalFrom(c).UserID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}
