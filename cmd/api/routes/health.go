package routes

import (
	"github.com/genomeai/platform/cmd/api/container"
	"github.com/genomeai/platform/cmd/api/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterHealthRoutes registers liveness and readiness probes
func RegisterHealthRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewHealthHandler(c.Components)

	e.GET("/healthz", h.Healthz) // GET /healthz
	e.GET("/readyz", h.Readyz)   // GET /readyz
}
