package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/genomeai/platform/common/clients"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserKey is the context key for storing the authenticated user
	UserKey ContextKey = "user"
)

// TokenVerifier resolves a bearer token to its user
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*models.User, error)
}

// BearerAuth requires an Authorization: Bearer header and stores the
// resolved user in the echo context. Every failure is a 401.
func BearerAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(raw) == "" {
				return unauthorized(c, "Missing bearer token")
			}

			user, err := verifier.Verify(c.Request().Context(), strings.TrimSpace(raw))
			if err != nil {
				var se *service.Error
				if errors.As(err, &se) && errors.Is(err, service.ErrUnauthorized) {
					return unauthorized(c, se.Detail)
				}
				return err
			}

			c.Set(string(UserKey), user)
			req := c.Request()
			c.SetRequest(req.WithContext(clients.WithUserID(req.Context(), user.ID)))
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, detail)
}

// CurrentUser returns the authenticated user, or nil outside BearerAuth
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(string(UserKey)).(*models.User)
	return user
}

// CurrentUserID returns the authenticated user's id, or ""
func CurrentUserID(c echo.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}
