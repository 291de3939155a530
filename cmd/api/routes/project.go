package routes

import (
	"github.com/genomeai/platform/cmd/api/container"
	"github.com/genomeai/platform/cmd/api/handlers"
	"github.com/labstack/echo/v4"
)

// RegisterProjectRoutes registers project and membership routes
func RegisterProjectRoutes(g *echo.Group, c *container.Container) {
	h := handlers.NewProjectHandler(c.ProjectService)

	projects := g.Group("/projects")
	{
		projects.POST("", h.CreateProject)                       // POST /projects
		projects.GET("", h.ListProjects)                         // GET /projects
		projects.GET("/:id", h.GetProject)                       // GET /projects/{id}
		projects.PATCH("/:id", h.RenameProject)                  // PATCH /projects/{id}
		projects.DELETE("/:id", h.DeleteProject)                 // DELETE /projects/{id}
		projects.GET("/:id/members", h.ListMembers)              // GET /projects/{id}/members
		projects.POST("/:id/members", h.AddMember)               // POST /projects/{id}/members
		projects.DELETE("/:id/members/:user_id", h.RemoveMember) // DELETE /projects/{id}/members/{user_id}
	}
}
