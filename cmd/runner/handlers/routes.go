package handlers

import (
	"github.com/labstack/echo/v4"
)

// Register mounts the runner routes
func Register(e *echo.Echo, h *RunHandler) {
	e.GET("/healthz", Healthz)

	run := e.Group("/run")
	{
		run.POST("/hello", h.Hello)                    // POST /run/hello
		run.POST("/container_smoke", h.ContainerSmoke) // POST /run/container_smoke
		run.POST("/nfcore_dna_seq", h.NFCoreDNASeq)    // POST /run/nfcore_dna_seq
	}
}
