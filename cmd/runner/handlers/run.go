package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/genomeai/platform/cmd/runner/engine"
	"github.com/genomeai/platform/common/logger"
	"github.com/genomeai/platform/common/models"
	"github.com/labstack/echo/v4"
)

// JobRunner executes the runner's pipeline modes
type JobRunner interface {
	RunHello(ctx context.Context) (*models.RunnerResponse, error)
	RunContainerSmoke(ctx context.Context) (*models.RunnerResponse, error)
	RunNFCore(ctx context.Context, req *models.NFCoreRequest) (*models.RunnerResponse, error)
}

// RunHandler serves the /run/* endpoints. Job-level failures are reported
// in a 200 body; only payload and workspace faults change the HTTP status.
type RunHandler struct {
	runner JobRunner
	log    *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(runner JobRunner, log *logger.Logger) *RunHandler {
	return &RunHandler{runner: runner, log: log}
}

// Hello runs the trivial bundled pipeline
// POST /run/hello
func (h *RunHandler) Hello(c echo.Context) error {
	resp, err := h.runner.RunHello(c.Request().Context())
	return h.respond(c, "hello", resp, err)
}

// ContainerSmoke runs the bundled containerized pipeline
// POST /run/container_smoke
func (h *RunHandler) ContainerSmoke(c echo.Context) error {
	resp, err := h.runner.RunContainerSmoke(c.Request().Context())
	return h.respond(c, "container_smoke", resp, err)
}

// NFCoreDNASeq runs a named pipeline resolved through the source cache
// POST /run/nfcore_dna_seq
func (h *RunHandler) NFCoreDNASeq(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	req, err := engine.DecodeNFCore(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	resp, err := h.runner.RunNFCore(c.Request().Context(), req)
	return h.respond(c, "nfcore_dna_seq", resp, err)
}

func (h *RunHandler) respond(c echo.Context, mode string, resp *models.RunnerResponse, err error) error {
	if err != nil {
		var perr *engine.PayloadError
		if errors.As(err, &perr) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, perr.Error())
		}
		h.log.Error("runner job errored", "mode", mode, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
