package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/service"
)

// ContextHandler serves the aggregated client context.
type ContextHandler struct {
	contexts *service.ContextService
	logger   *zap.Logger
}

// NewContextHandler creates the context handler.
func NewContextHandler(contexts *service.ContextService, logger *zap.Logger) *ContextHandler {
	return &ContextHandler{contexts: contexts, logger: logger}
}

// Register binds the context route behind the bearer middleware.
func (h *ContextHandler) Register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	e.GET("/context", h.GetContext, authMW)
}

// GetContext returns the latest state estimate, pending interventions, and
// the saved set for the authenticated user.
func (h *ContextHandler) GetContext(c echo.Context) error {
	userID := authedUser(c)

	view, err := h.contexts.Get(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("context assembly failed", zap.String("user_id", userID), zap.Error(err))
		return errResp(c, err)
	}
	return c.JSON(http.StatusOK, view)
}
