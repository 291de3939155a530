package handlers

import (
	"net/http"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// WorkflowHandler handles workflow import and lookup
type WorkflowHandler struct {
	workflows *service.WorkflowService
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(workflows *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// ImportWorkflow validates a lockfile and records a workflow with its dispatch target
// POST /workflows/import
func (h *WorkflowHandler) ImportWorkflow(c echo.Context) error {
	var req service.ImportWorkflowRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	wf, err := h.workflows.Import(c.Request().Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, wf)
}

// ListWorkflows lists workflow summaries
// GET /workflows
func (h *WorkflowHandler) ListWorkflows(c echo.Context) error {
	summaries, err := h.workflows.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

// GetWorkflow returns one workflow
// GET /workflows/:id
func (h *WorkflowHandler) GetWorkflow(c echo.Context) error {
	wf, err := h.workflows.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}
