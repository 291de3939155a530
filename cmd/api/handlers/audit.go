package handlers

import (
	"net/http"
	"strconv"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// AuditHandler serves the audit log
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListAudit pages through audit entries, newest first
// GET /audit?limit=50&offset=0
func (h *AuditHandler) ListAudit(c echo.Context) error {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		return err
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return err
	}

	entries, err := h.audit.List(c.Request().Context(), middleware.CurrentUser(c), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, name+" must be an integer")
	}
	return v, nil
}
