package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/service"
)

// AccountHandler serves the profile and device registration endpoints.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *zap.Logger
}

// NewAccountHandler creates the account handler.
func NewAccountHandler(accounts *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// Register binds the account routes behind the bearer middleware.
func (h *AccountHandler) Register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	e.GET("/me", h.GetMe, authMW)
	e.POST("/devices", h.RegisterDevice, authMW)
}

type meResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// GetMe returns the authenticated user's profile.
func (h *AccountHandler) GetMe(c echo.Context) error {
	userID := authedUser(c)

	user, err := h.accounts.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return errResp(c, err)
	}
	return c.JSON(http.StatusOK, meResponse{
		UserID:      user.UserID,
		Email:       user.Email.String,
		DisplayName: user.DisplayName.String,
	})
}

type registerDeviceRequest struct {
	DeviceToken string `json:"device_token"`
}

// RegisterDevice records the caller's current APNs device token.
func (h *AccountHandler) RegisterDevice(c echo.Context) error {
	userID := authedUser(c)

	var req registerDeviceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	if err := h.accounts.RegisterDevice(c.Request().Context(), userID, req.DeviceToken); err != nil {
		h.logger.Error("device registration failed", zap.String("user_id", userID), zap.Error(err))
		return errResp(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "registered"})
}
