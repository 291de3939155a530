package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports the failing component, if any
type HealthChecker interface {
	Health(ctx context.Context) (string, error)
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Healthz reports liveness
// GET /healthz
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz checks the database and, when enabled, Redis
// GET /readyz
func (h *HealthHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if component, err := h.checker.Health(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":    "unavailable",
			"component": component,
			"detail":    err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
