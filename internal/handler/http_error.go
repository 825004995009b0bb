// Package handler serves the gateway's REST surface. Handlers decode,
// resolve the authenticated user, delegate to the services, and map sentinel
// errors to status codes.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meigsy/shift/internal/auth"
	"github.com/meigsy/shift/internal/service"
)

// errResp maps a service error to the HTTP response. Unrecognised errors are
// 500s with a generic body; the details stay in the logs.
func errResp(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidBatch), errors.Is(err, service.ErrInvalidScope):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, auth.ErrVerification):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "identity token verification failed"})
	case errors.Is(err, auth.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
	case errors.Is(err, service.ErrUserMismatch):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "user mismatch"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
