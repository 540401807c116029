package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/kaito/tubegrab/internal/api/handler"
	"github.com/kaito/tubegrab/internal/api/middleware"
	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/config"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/notify"
	"github.com/kaito/tubegrab/internal/service"
	"github.com/kaito/tubegrab/internal/storage"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *gorm.DB
	Cache   *cache.Cache
	Storage storage.ObjectStorage
	Hub     *notify.Hub

	Jobs    *service.JobService
	JobRepo service.JobStore
	Queue   *service.QueueService
	Orch    *service.Orchestrator
	Cleanup *service.CleanupService

	Platforms service.PlatformStore
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *Deps) *gin.Engine {
	// Set Gin mode
	switch deps.Config.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	rl := deps.Config.RateLimit
	globalLimiter := rate.NewLimiter(rate.Limit(rl.GlobalPerSecond), rl.GlobalBurst)

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  deps.Config.Server.CORS.AllowedOrigins,
		AllowAllOrigins: deps.Config.Server.CORS.AllowAllOrigins,
	}))
	r.Use(middleware.GlobalRateLimit(globalLimiter))

	// Create handlers
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Cache.Store(), deps.Storage, deps.Queue)
	validateHandler := handler.NewValidateHandler(deps.Platforms, deps.Cache, deps.Logger)
	convertHandler := handler.NewConvertHandler(deps.Jobs, deps.Orch, validateHandler, deps.Logger)
	statusHandler := handler.NewStatusHandler(deps.Jobs, deps.Queue, deps.Logger)
	fileHandler := handler.NewFileHandler(deps.Storage, deps.Logger)
	wsHandler := handler.NewWSHandler(deps.Jobs, deps.Hub, deps.Logger)
	adminHandler := handler.NewAdminHandler(deps.JobRepo, deps.Queue, deps.Cleanup, deps.Storage, deps.Logger)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		clientLimit := middleware.ClientRateLimit(deps.Cache, rl.Limit, rl.Window)

		// Conversion
		v1.POST("/convert", clientLimit, convertHandler.Convert)
		v1.POST("/validate", validateHandler.Validate)

		// Status (poll channel)
		v1.GET("/status/:jobId", statusHandler.Status)
		v1.GET("/status/:jobId/position", statusHandler.QueuePosition)

		// Push channel
		v1.GET("/ws", wsHandler.Serve)

		// Catalog
		v1.GET("/platforms", validateHandler.Platforms)

		// Artifacts
		v1.GET("/download/:fileName", fileHandler.Download)
		v1.GET("/stream/:fileName", fileHandler.Stream)

		// Admin
		admin := v1.Group("/admin", middleware.BearerAuth(deps.Config.Server.AdminToken))
		{
			admin.GET("/queue/stats", adminHandler.QueueStats)
			admin.GET("/jobs", adminHandler.ListJobs)
			admin.POST("/cleanup", adminHandler.TriggerCleanup)
			admin.GET("/cleanup/stats", adminHandler.CleanupStats)
			admin.GET("/storage/stats", adminHandler.StorageStats)
			admin.GET("/storage", adminHandler.ListStorage)
			admin.DELETE("/storage/:fileName", adminHandler.DeleteObject)
		}
	}

	return r
}
