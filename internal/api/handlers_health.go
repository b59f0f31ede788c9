// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	name    string
	version string
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(name, version string) HealthHandler {
	return &HealthHandlerImpl{
		name:    name,
		version: version,
		now:     time.Now,
	}
}

// HandleRoot returns the service banner
func (h *HealthHandlerImpl) HandleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": h.name + " API",
		"version": h.version,
		"health":  APIPrefix + "/health",
	})
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": h.now().UTC(),
	})
}
