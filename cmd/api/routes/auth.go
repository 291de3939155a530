package routes

import (
	"github.com/genomeai/platform/cmd/api/container"
	"github.com/genomeai/platform/cmd/api/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterAuthRoutes registers login, logout and identity routes.
// Login is public; the rest go through the bearer middleware.
func RegisterAuthRoutes(e *echo.Echo, protected *echo.Group, c *container.Container) {
	h := handlers.NewAuthHandler(c.AuthService, c.AuditService)

	e.POST("/auth/login", h.Login) // POST /auth/login

	protected.POST("/auth/logout", h.Logout) // POST /auth/logout
	protected.GET("/auth/me", h.Me)          // GET /auth/me
}
