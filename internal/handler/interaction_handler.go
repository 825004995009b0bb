package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/model"
	"github.com/meigsy/shift/internal/service"
)

// InteractionHandler serves the interaction append and reset endpoints.
type InteractionHandler struct {
	interactions *service.InteractionService
	logger       *zap.Logger
}

// NewInteractionHandler creates the interaction handler.
func NewInteractionHandler(interactions *service.InteractionService, logger *zap.Logger) *InteractionHandler {
	return &InteractionHandler{interactions: interactions, logger: logger}
}

// Register binds the interaction routes behind the bearer middleware.
func (h *InteractionHandler) Register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	e.POST("/app_interactions", h.RecordInteraction, authMW)
	e.POST("/user/reset", h.ResetUserState, authMW)
}

// RecordInteraction appends one interaction event for the authenticated user.
func (h *InteractionHandler) RecordInteraction(c echo.Context) error {
	userID := authedUser(c)

	var in model.AppInteraction
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	interactionID, err := h.interactions.Record(c.Request().Context(), userID, in)
	if err != nil {
		h.logger.Error("interaction record failed",
			zap.String("user_id", userID),
			zap.String("event_type", in.EventType),
			zap.Error(err))
		return errResp(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"status":         "recorded",
		"interaction_id": interactionID,
	})
}

type resetRequest struct {
	Scope string `json:"scope"`
}

// ResetUserState appends a reset barrier for the given scope.
func (h *InteractionHandler) ResetUserState(c echo.Context) error {
	userID := authedUser(c)

	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.Scope == "" {
		req.Scope = model.ResetScopeAll
	}

	interactionID, err := h.interactions.Reset(c.Request().Context(), userID, req.Scope)
	if err != nil {
		h.logger.Error("user reset failed",
			zap.String("user_id", userID),
			zap.String("scope", req.Scope),
			zap.Error(err))
		return errResp(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"scope":          req.Scope,
		"interaction_id": interactionID,
	})
}
