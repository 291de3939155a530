package routes

import (
	"github.com/genomeai/platform/cmd/api/container"
	"github.com/genomeai/platform/cmd/api/handlers"
	"github.com/genomeai/platform/cmd/api/middleware"
	commonmw "github.com/genomeai/platform/common/middleware"
	"github.com/labstack/echo/v4"
)

// Register wires every api route onto e
func Register(e *echo.Echo, c *container.Container) {
	e.Validator = handlers.NewValidator()

	RegisterHealthRoutes(e, c)

	chain := []echo.MiddlewareFunc{middleware.BearerAuth(c.AuthService)}
	if limit := c.Components.Config.Auth.RequestsPerMin; c.RequestLimiter != nil && limit > 0 {
		chain = append(chain, commonmw.UserRateLimitMiddleware(c.RequestLimiter, limit, middleware.CurrentUserID))
	}

	protected := e.Group("", chain...)
	RegisterAuthRoutes(e, protected, c)
	RegisterProjectRoutes(protected, c)
	RegisterRegistryRoutes(protected, c)
	RegisterWorkflowRoutes(protected, c)
	RegisterRunRoutes(protected, c)
	RegisterAuditRoutes(protected, c)
}
