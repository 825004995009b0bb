package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/auth"
	"github.com/meigsy/shift/pkg/middleware"
)

// BearerAuth verifies the Authorization bearer token on every request and
// stores the resolved user ID in the request context.
func BearerAuth(verifier auth.Verifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			token := strings.TrimPrefix(header, "Bearer ")

			identity, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				logger.Warn("token verification failed", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
			}

			ctx := middleware.WithUserID(c.Request().Context(), identity.UserID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// authedUser reads the user ID stored by BearerAuth. An empty return means
// the route was registered without the middleware, which is a wiring bug.
func authedUser(c echo.Context) string {
	userID, _ := middleware.GetUserID(c.Request().Context())
	return userID
}
