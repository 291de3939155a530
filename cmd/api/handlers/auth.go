package handlers

import (
	"net/http"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler handles login and identity requests
type AuthHandler struct {
	auth  *service.AuthService
	audit *service.AuditService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, audit *service.AuditService) *AuthHandler {
	return &AuthHandler{auth: auth, audit: audit}
}

// Login exchanges credentials for a bearer token
// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	token, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, token)
}

// Logout is stateless; clients drop the token
// POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	if user := middleware.CurrentUser(c); user != nil {
		h.audit.LogEvent(c.Request().Context(), &user.ID, "logout", "user", &user.ID, nil)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the authenticated user
// GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}
