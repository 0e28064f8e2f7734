package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/service"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"go.uber.org/zap"
)

// ErrorHandler writes errors returned by handlers and middleware as {"error": "<message>"}
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c).Error("Request failed", zap.Error(err))
	}
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, echo.Map{"error": msg})
	}
	if writeErr != nil {
		logger.FromContext(c).Warn("Failed to write error response", zap.Error(writeErr))
	}
}

func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusBadRequest && he.Internal != nil {
			return he.Code, "Invalid request data"
		}
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, msg
	case errors.Is(err, service.ErrInactiveUser):
		return http.StatusBadRequest, msg
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, msg
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity, msg
	case errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest, msg
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, msg
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
