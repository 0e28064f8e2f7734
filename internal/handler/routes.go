package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/middleware"
	"github.com/tony-42069/abare-v2/prometheus"
)

// RegisterRoutes mounts every endpoint on e. StoreMiddleware must already be installed.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Public routes - no authentication required
	e.GET("/", h.Root)
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	api := e.Group(h.cfg.App.APIPrefix)
	bearer := middleware.Authenticated(h.tokens, h.cfg.JWT.BcryptCost)

	auth := api.Group("/auth")
	auth.POST("/token", h.Token)
	auth.POST("/login", h.Login)
	auth.POST("/register", h.Register)
	auth.GET("/me", h.Me, bearer)
	auth.PUT("/me", h.UpdateMe, bearer, middleware.RequireActive)

	users := api.Group("/users", bearer, middleware.RequireAdmin)
	users.GET("", h.ListUsers)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)

	properties := api.Group("/properties", bearer, middleware.RequireActive)
	properties.GET("", h.ListProperties)
	properties.POST("", h.CreateProperty)
	properties.GET("/:id", h.GetProperty)
	properties.PUT("/:id", h.UpdateProperty)
	properties.DELETE("/:id", h.DeleteProperty)

	documents := api.Group("/documents", bearer, middleware.RequireActive)
	documents.GET("", h.ListDocuments)
	documents.POST("/upload", h.UploadDocument)
	documents.GET("/:id", h.GetDocument)
	documents.GET("/:id/download", h.DownloadDocument)
	documents.PUT("/:id", h.UpdateDocument)
	documents.DELETE("/:id", h.DeleteDocument)
	documents.POST("/:id/process", h.ProcessDocument)

	analyses := api.Group("/analyses", bearer, middleware.RequireActive)
	analyses.GET("", h.ListAnalyses)
	analyses.POST("", h.CreateAnalysis)
	analyses.GET("/:id", h.GetAnalysis)
	analyses.PUT("/:id", h.UpdateAnalysis)
	analyses.DELETE("/:id", h.DeleteAnalysis)
	analyses.POST("/:id/process", h.ProcessAnalysis)
}
