package handlers

import (
	"net/http"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// ProjectRequest is the body of POST /projects and PATCH /projects/:id
type ProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

// ProjectHandler handles project and membership requests
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// CreateProject creates a project owned by the caller
// POST /projects
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	var req ProjectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	project, err := h.projects.Create(c.Request().Context(), middleware.CurrentUser(c), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, project)
}

// ListProjects lists the projects the caller can see
// GET /projects
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	projects, err := h.projects.List(c.Request().Context(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

// GetProject returns one project
// GET /projects/:id
func (h *ProjectHandler) GetProject(c echo.Context) error {
	project, err := h.projects.Get(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// RenameProject renames a project
// PATCH /projects/:id
func (h *ProjectHandler) RenameProject(c echo.Context) error {
	var req ProjectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	project, err := h.projects.Rename(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// DeleteProject deletes a project with its members
// DELETE /projects/:id
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	if err := h.projects.Delete(c.Request().Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListMembers lists a project's members
// GET /projects/:id/members
func (h *ProjectHandler) ListMembers(c echo.Context) error {
	members, err := h.projects.Members(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

// AddMember adds or updates a member
// POST /projects/:id/members
func (h *ProjectHandler) AddMember(c echo.Context) error {
	var req service.AddMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.projects.AddMember(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), &req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RemoveMember removes a member
// DELETE /projects/:id/members/:user_id
func (h *ProjectHandler) RemoveMember(c echo.Context) error {
	err := h.projects.RemoveMember(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("user_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
