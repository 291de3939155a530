package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

var kindStatus = []struct {
	kind   error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrUnprocessable, http.StatusUnprocessableEntity},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrConflict, http.StatusConflict},
}

// respondError maps a service error onto an HTTP error. Unknown errors
// are returned unchanged and rendered as 500 by the error handler.
func respondError(c echo.Context, err error) error {
	var rl *service.RateLimitError
	if errors.As(err, &rl) {
		c.Response().Header().Set("Retry-After", strconv.FormatInt(rl.RetryAfterSeconds, 10))
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"detail": "Rate limit exceeded",
			"details": map[string]interface{}{
				"tier":                rl.Tier.String(),
				"limit":               rl.Limit,
				"window":              "60 seconds",
				"current_count":       rl.CurrentCount,
				"retry_after_seconds": rl.RetryAfterSeconds,
			},
		})
	}

	var de *service.DispatchError
	if errors.As(err, &de) {
		return echo.NewHTTPError(http.StatusInternalServerError, de.Error()).SetInternal(de.Err)
	}

	var se *service.Error
	if errors.As(err, &se) {
		for _, ks := range kindStatus {
			if errors.Is(se.Kind, ks.kind) {
				return echo.NewHTTPError(ks.status, se.Detail)
			}
		}
	}

	return err
}
