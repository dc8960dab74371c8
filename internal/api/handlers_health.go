// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	info    GraphInfo
}

// NewHealthHandler creates a new health handler. info may be nil.
func NewHealthHandler(version string, info GraphInfo) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		info:    info,
	}
}

// HandleHealth returns server health status and the loaded graph
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.info == nil {
		return c.JSON(http.StatusOK, body)
	}

	info, err := h.info.Info()
	if err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	body["graph"] = map[string]interface{}{
		"source":     info.Source,
		"statements": info.Statements,
		"loadedAt":   info.LoadedAt.Format(time.RFC3339),
	}
	return c.JSON(http.StatusOK, body)
}
