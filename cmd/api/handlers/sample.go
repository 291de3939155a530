package handlers

import (
	"bytes"
	"net/http"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// SampleHandler handles read-pair samples
type SampleHandler struct {
	samples *service.SampleService
}

// NewSampleHandler creates a new sample handler
func NewSampleHandler(samples *service.SampleService) *SampleHandler {
	return &SampleHandler{samples: samples}
}

// CreateSample pairs two FASTQ datasets
// POST /samples
func (h *SampleHandler) CreateSample(c echo.Context) error {
	var req service.CreateSampleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sample, err := h.samples.Create(c.Request().Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, sample)
}

// ListSamples lists a project's samples with resolved read URIs
// GET /samples?project_id=
func (h *SampleHandler) ListSamples(c echo.Context) error {
	projectID, err := requireQuery(c, "project_id")
	if err != nil {
		return err
	}

	samples, err := h.samples.List(c.Request().Context(), middleware.CurrentUser(c), projectID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, samples)
}

// ExportSamples writes the project's samplesheet as CSV
// GET /samples/export.csv?project_id=
func (h *SampleHandler) ExportSamples(c echo.Context) error {
	projectID, err := requireQuery(c, "project_id")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.samples.ExportCSV(c.Request().Context(), middleware.CurrentUser(c), projectID, &buf); err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="samples.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
