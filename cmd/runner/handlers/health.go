package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Healthz reports liveness
// GET /healthz
func Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
