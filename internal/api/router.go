package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/promptvault/internal/api/handler"
	"github.com/timmy/promptvault/internal/api/middleware"
	"github.com/timmy/promptvault/internal/logger"
	"github.com/timmy/promptvault/internal/service"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Mode    string
	CORS    middleware.CORSConfig
	Gallery *service.GalleryService
	// Admin enables the collect endpoints when non-nil.
	Admin  *handler.AdminHandler
	Logger *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(cfg.Gallery)
	promptHandler := handler.NewPromptHandler(cfg.Gallery)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/prompts", promptHandler.ListPrompts)
		v1.GET("/prompts/:id", promptHandler.GetPrompt)
		v1.GET("/tags", promptHandler.ListTags)
		v1.GET("/stats", promptHandler.GetStats)

		if cfg.Admin != nil {
			admin := v1.Group("/admin")
			admin.POST("/collect", cfg.Admin.TriggerCollect)
			admin.GET("/collect/status", cfg.Admin.GetCollectStatus)
			admin.GET("/runs", cfg.Admin.ListRuns)
			admin.GET("/runs/:id", cfg.Admin.GetRun)
		}
	}

	return r
}
