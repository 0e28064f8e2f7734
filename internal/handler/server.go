package handler

import (
	"slices"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/tony-42069/abare-v2/internal/middleware"
	"github.com/tony-42069/abare-v2/internal/service"
	"github.com/tony-42069/abare-v2/pkg/config"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/pkg/storage"
	"github.com/tony-42069/abare-v2/prometheus"
	"go.uber.org/zap"
)

// NewServer builds the Echo instance with the global middleware chain and every route
func NewServer(cfg *config.Config, log *zap.Logger, provider middleware.StoreProvider, tokens service.TokenIssuer, files storage.Storage) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.App.CORSOrigins,
		AllowCredentials: !slices.Contains(cfg.App.CORSOrigins, "*"),
	}))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(prometheus.MetricsMiddleware())
	e.Use(logger.Middleware(log))
	e.Use(middleware.StoreMiddleware(provider))

	New(cfg, tokens, files).RegisterRoutes(e)
	return e
}
