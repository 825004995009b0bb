package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler serves the unauthenticated liveness probe.
type HealthHandler struct{}

// NewHealthHandler creates the health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Register binds the health route.
func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// Health reports liveness.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
