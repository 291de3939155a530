package routes

import (
	"github.com/genomeai/platform/cmd/api/container"
	"github.com/genomeai/platform/cmd/api/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterWorkflowRoutes registers workflow import and lookup routes
func RegisterWorkflowRoutes(g *echo.Group, c *container.Container) {
	h := handlers.NewWorkflowHandler(c.WorkflowService)

	workflows := g.Group("/workflows")
	{
		workflows.POST("/import", h.ImportWorkflow) // POST /workflows/import
		workflows.GET("", h.ListWorkflows)          // GET /workflows
		workflows.GET("/:id", h.GetWorkflow)        // GET /workflows/{id}
	}
}

// RegisterRunRoutes registers run submission and lookup routes
func RegisterRunRoutes(g *echo.Group, c *container.Container) {
	h := handlers.NewRunHandler(c.RunService)

	runs := g.Group("/runs")
	{
		runs.POST("", h.CreateRun) // POST /runs
		runs.GET("", h.ListRuns)   // GET /runs?project_id=
		runs.GET("/:id", h.GetRun) // GET /runs/{id}
	}
}

// RegisterAuditRoutes registers the admin audit log route
func RegisterAuditRoutes(g *echo.Group, c *container.Container) {
	h := handlers.NewAuditHandler(c.AuditService)

	g.GET("/audit", h.ListAudit) // GET /audit?limit=&offset=
}
