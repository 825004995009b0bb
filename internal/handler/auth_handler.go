package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/auth"
	"github.com/meigsy/shift/internal/service"
)

// AuthHandler serves the Sign in with Apple exchange.
type AuthHandler struct {
	apple    *auth.AppleAuthenticator
	accounts *service.AccountService
	logger   *zap.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(apple *auth.AppleAuthenticator, accounts *service.AccountService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{apple: apple, accounts: accounts, logger: logger}
}

// Register binds the auth route. It sits outside the bearer middleware: this
// is how clients obtain their first token.
func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/auth/apple", h.SignInWithApple)
}

type appleSignInRequest struct {
	IdentityToken     string `json:"identity_token"`
	AuthorizationCode string `json:"authorization_code"`
	DisplayName       string `json:"display_name"`
}

type appleSignInResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// SignInWithApple verifies the Apple identity token, exchanges it for
// first-party tokens, and upserts the user's profile row.
func (h *AuthHandler) SignInWithApple(c echo.Context) error {
	var req appleSignInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if req.IdentityToken == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "identity_token is required"})
	}

	result, err := h.apple.Authenticate(c.Request().Context(), req.IdentityToken, req.AuthorizationCode)
	if err != nil {
		h.logger.Warn("apple sign-in failed", zap.Error(err))
		return errResp(c, err)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = result.DisplayName
	}
	if _, err := h.accounts.EnsureUser(c.Request().Context(), result.UserID, result.Email, displayName); err != nil {
		h.logger.Error("user upsert after sign-in failed",
			zap.String("user_id", result.UserID), zap.Error(err))
		return errResp(c, err)
	}

	h.logger.Info("apple sign-in succeeded", zap.String("user_id", result.UserID))
	return c.JSON(http.StatusOK, appleSignInResponse{
		IDToken:      result.IDToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		UserID:       result.UserID,
	})
}
