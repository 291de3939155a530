package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/genomeai/platform/common/logger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry holds observability components
type Telemetry struct {
	log           *logger.Logger
	pprofAddr     string
	enablePprof   bool
	pprofServer   *http.Server
	enableMetrics bool
}

// New creates telemetry components
func New(enablePprof bool, pprofPort int, enableMetrics bool, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:           log,
		pprofAddr:     fmt.Sprintf("localhost:%d", pprofPort),
		enablePprof:   enablePprof,
		enableMetrics: enableMetrics,
	}
}

// Start starts the pprof listener when enabled
func (t *Telemetry) Start(ctx context.Context) error {
	if !t.enablePprof {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	t.pprofServer = &http.Server{
		Addr:              t.pprofAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		t.log.Info("pprof server starting", "addr", t.pprofAddr)
		if err := t.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error("pprof server error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the pprof listener down
func (t *Telemetry) Stop(ctx context.Context) error {
	if t.pprofServer == nil {
		return nil
	}
	return t.pprofServer.Shutdown(ctx)
}

// Register mounts GET /metrics on the service's echo instance
func (t *Telemetry) Register(e *echo.Echo) {
	if !t.enableMetrics {
		return
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RecordDuration records operation duration
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
