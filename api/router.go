package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/videold-go/api/handlers"
	"github.com/yourusername/videold-go/api/middleware"
	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/pkg/logger"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP router wires together
type RouterConfig struct {
	// BaseCtx bounds transfers started over HTTP; cancel it on shutdown
	BaseCtx        context.Context
	Orchestrator   *app.Orchestrator
	Channel        handlers.ConnectionStatus // nil when push progress is disabled
	AllowedOrigins []string
	Logger         *zap.Logger
	EventLogger    *logger.MultiLogger
}

// SetupRouter sets up the HTTP router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	baseCtx := cfg.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(cfg.Logger, cfg.EventLogger))
	router.Use(middleware.Recovery(cfg.Logger, cfg.EventLogger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Channel)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		resourceHandler := handlers.NewResourceHandler(cfg.Orchestrator, cfg.Logger)
		v1.POST("/resource", resourceHandler.Fetch)
		v1.GET("/resource", resourceHandler.Get)
		v1.GET("/resource/formats", resourceHandler.Formats)
		v1.PUT("/filter", resourceHandler.SetFilter)
		v1.PUT("/format", resourceHandler.SelectFormat)
		v1.GET("/state", resourceHandler.State)

		selection := v1.Group("/selection")
		{
			selection.POST("/:memberId/toggle", resourceHandler.ToggleMember)
			selection.PUT("/:memberId/format", resourceHandler.SetMemberFormat)
		}

		transferHandler := handlers.NewTransferHandler(baseCtx, cfg.Orchestrator, cfg.Logger)
		v1.POST("/transfers", transferHandler.Start)
		v1.POST("/batch", transferHandler.StartBatch)
		v1.GET("/thumbnail", transferHandler.Thumbnail)

		feed := handlers.NewProgressFeed(cfg.Orchestrator, cfg.Logger)
		v1.GET("/ws", feed.HandleWebSocket)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
