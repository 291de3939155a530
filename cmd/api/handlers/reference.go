package handlers

import (
	"net/http"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// ReferenceHandler handles reference set requests
type ReferenceHandler struct {
	references *service.ReferenceService
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler(references *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{references: references}
}

// CreateReference creates a reference set and computes its completeness
// POST /references
func (h *ReferenceHandler) CreateReference(c echo.Context) error {
	var req service.CreateReferenceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ref, err := h.references.Create(c.Request().Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ref)
}

// ListReferences lists reference sets, newest first
// GET /references
func (h *ReferenceHandler) ListReferences(c echo.Context) error {
	refs, err := h.references.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, refs)
}

// GetReference returns one reference set
// GET /references/:id
func (h *ReferenceHandler) GetReference(c echo.Context) error {
	ref, err := h.references.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ref)
}

// UpdateReference updates name and/or components
// PATCH /references/:id
func (h *ReferenceHandler) UpdateReference(c echo.Context) error {
	var req service.UpdateReferenceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ref, err := h.references.Update(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ref)
}

// DeleteReference deletes a reference set no run uses
// DELETE /references/:id
func (h *ReferenceHandler) DeleteReference(c echo.Context) error {
	if err := h.references.Delete(c.Request().Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
