package server

import (
	"errors"
	"net/http"

	"github.com/genomeai/platform/common/clients"
	"github.com/genomeai/platform/common/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewEcho creates an echo instance with the shared middleware stack and
// an error handler that renders {"detail": "..."} bodies
func NewEcho(log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		// Outbound runner calls forward the id as X-Request-ID
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(clients.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				log.Warn("request failed", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			log.Debug("request", attrs...)
			return nil
		},
	}))

	return e
}

// ErrorHandler renders errors as {"detail": message}. Non-HTTP errors become 500.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		detail := interface{}(http.StatusText(status))

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			detail = he.Message
			if he.Internal != nil {
				log.Debug("http error", "status", status, "internal", he.Internal.Error())
			}
		} else {
			log.Error("unhandled handler error", "path", c.Path(), "error", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, map[string]interface{}{"detail": detail})
		}
		if werr != nil {
			log.Warn("failed to write error response", "error", werr)
		}
	}
}
