package handlers

import (
	"net/http"

	"github.com/genomeai/platform/cmd/api/middleware"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/labstack/echo/v4"
)

// DatasetHandler handles dataset registration and upload
type DatasetHandler struct {
	datasets *service.DatasetService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(datasets *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{datasets: datasets}
}

// RegisterDataset records a dataset that already lives in object storage
// POST /datasets/register
func (h *DatasetHandler) RegisterDataset(c echo.Context) error {
	var req service.RegisterDatasetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	dataset, err := h.datasets.Register(c.Request().Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dataset)
}

// UploadDataset streams a multipart FASTQ file to object storage
// POST /datasets/upload
func (h *DatasetHandler) UploadDataset(c echo.Context) error {
	projectID := c.FormValue("project_id")
	if projectID == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "project_id is required")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "file is required").SetInternal(err)
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	dataset, err := h.datasets.Upload(c.Request().Context(), middleware.CurrentUser(c), &service.Upload{
		ProjectID: projectID,
		Filename:  header.Filename,
		Size:      header.Size,
		Body:      file,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dataset)
}

// ListDatasets lists a project's datasets
// GET /datasets?project_id=
func (h *DatasetHandler) ListDatasets(c echo.Context) error {
	projectID, err := requireQuery(c, "project_id")
	if err != nil {
		return err
	}

	datasets, err := h.datasets.List(c.Request().Context(), middleware.CurrentUser(c), projectID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, datasets)
}

func requireQuery(c echo.Context, name string) (string, error) {
	v := c.QueryParam(name)
	if v == "" {
		return "", echo.NewHTTPError(http.StatusUnprocessableEntity, name+" is required")
	}
	return v, nil
}
