package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/middleware"
	"github.com/tony-42069/abare-v2/pkg/database"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"go.uber.org/zap"
)

// HealthCheck probes the users collection of the store serving this request
func (h *Handler) HealthCheck(c echo.Context) error {
	store := middleware.Store(c)

	var probe []map[string]any
	err := store.Collection("users").Find(c.Request().Context(), database.Filter{}, &probe, database.WithLimit(1))
	if err != nil {
		logger.FromContext(c).Error("Health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":   "unhealthy",
			"database": "disconnected",
			"backend":  store.Backend(),
			"error":    err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "healthy",
		"database": "connected",
		"backend":  store.Backend(),
	})
}

// Root returns the API banner
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"name":    h.cfg.App.Name,
		"version": h.cfg.App.Version,
		"message": "Welcome to ABARE Platform API",
		"docs":    h.cfg.App.APIPrefix + "/docs",
	})
}
