package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaito/tubegrab/internal/api"
	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/config"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/notify"
	"github.com/kaito/tubegrab/internal/platform"
	"github.com/kaito/tubegrab/internal/repository"
	"github.com/kaito/tubegrab/internal/service"
	"github.com/kaito/tubegrab/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	platformRepo := repository.NewPlatformRepository(db)

	ctx := context.Background()

	// Seed the platform catalog; existing rows win
	if err := platformRepo.Seed(ctx, platform.DefaultCatalog()); err != nil {
		appLogger.WithError(err).Fatal("Failed to seed platform catalog")
	}

	// Initialize cache: redis when reachable, in-process fallback otherwise
	var cacheStore cache.Store
	redisStore, err := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, using in-process cache")
		cacheStore = cache.NewMemoryStore()
	} else {
		cacheStore = redisStore
	}
	appCache := cache.New(cacheStore)

	// Initialize storage (supports R2, S3 and S3-compatible services)
	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Ensure bucket exists
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	// Initialize services
	hub := notify.NewHub()

	jobService := service.NewJobService(jobRepo, appCache, hub, appLogger, &service.JobServiceConfig{
		JobTTL: cfg.Queue.JobTTL,
	})

	queueService := service.NewQueueService(jobRepo, jobService, appLogger, &service.QueueServiceConfig{
		JobTimeout: cfg.Queue.JobTimeout,
	})

	processorClient := service.NewProcessorClient(&service.ProcessorConfig{
		BaseURL: cfg.Processor.BaseURL,
		Timeout: cfg.Processor.Timeout,
	})

	orchestrator := service.NewOrchestrator(jobService, processorClient, objectStorage, appCache, appLogger)

	cleanupService := service.NewCleanupService(jobRepo, queueService, objectStorage, appCache, appLogger, &service.CleanupConfig{
		Interval:       cfg.Cleanup.Interval,
		MaxFileAge:     cfg.Cleanup.MaxFileAge,
		MaxStorageSize: cfg.Cleanup.MaxStorageSize,
		JobRetention:   time.Duration(cfg.Queue.RetentionHours) * time.Hour,
	})

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	go cleanupService.Run(workerCtx)
	go runTimeoutSweeper(workerCtx, queueService, cfg.Queue.SweepInterval, appLogger)

	// Setup router
	router := api.SetupRouter(&api.Deps{
		Config:    cfg,
		Logger:    appLogger,
		DB:        db,
		Cache:     appCache,
		Storage:   objectStorage,
		Hub:       hub,
		Jobs:      jobService,
		JobRepo:   jobRepo,
		Queue:     queueService,
		Orch:      orchestrator,
		Cleanup:   cleanupService,
		Platforms: platformRepo,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithField(logger.FieldComponent, "http").
			Infof("Starting API server on port %d (%s mode)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	stopWorkers()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

// runTimeoutSweeper periodically fails processing jobs that exceeded the
// job timeout, so a crashed pipeline does not strand its job forever.
func runTimeoutSweeper(ctx context.Context, queue *service.QueueService, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := queue.HandleTimeoutJobs(ctx); err != nil {
				log.WithError(err).Error("Timeout sweep failed")
			} else if n > 0 {
				log.WithField(logger.FieldCount, n).Warn("Timed out stale processing jobs")
			}
		}
	}
}
