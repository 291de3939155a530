package handlers

import (
	"net/http"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// RunHandler handles run submission and lookup
type RunHandler struct {
	runs *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(runs *service.RunService) *RunHandler {
	return &RunHandler{runs: runs}
}

// CreateRun validates, dispatches and reconciles a run. The request blocks
// until the runner answers.
// POST /runs
func (h *RunHandler) CreateRun(c echo.Context) error {
	var req service.CreateRunRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	run, err := h.runs.Create(c.Request().Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, run)
}

// GetRun returns one run
// GET /runs/:id
func (h *RunHandler) GetRun(c echo.Context) error {
	run, err := h.runs.Get(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// ListRuns lists a project's runs, newest first
// GET /runs?project_id=
func (h *RunHandler) ListRuns(c echo.Context) error {
	projectID, err := requireQuery(c, "project_id")
	if err != nil {
		return err
	}

	runs, err := h.runs.List(c.Request().Context(), middleware.CurrentUser(c), projectID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, runs)
}
