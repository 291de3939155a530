package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/genomeai/platform/common/ratelimit"
	"github.com/labstack/echo/v4"
)

// UserLimiter is the subset of ratelimit.RateLimiter the middleware needs
type UserLimiter interface {
	CheckUserLimit(ctx context.Context, userID string, limit int64, windowSec int) (*ratelimit.RateLimitResult, error)
}

// UserRateLimitMiddleware applies a per-user request limit over a one-minute window.
// userID extracts the authenticated principal; requests without one pass through.
// Limiter errors fail open.
func UserRateLimitMiddleware(limiter UserLimiter, limit int64, userID func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := userID(c)
			if id == "" {
				return next(c)
			}

			result, err := limiter.CheckUserLimit(c.Request().Context(), id, limit, 60)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"detail": "Rate limit exceeded",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              "60 seconds",
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
