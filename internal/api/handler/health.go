package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/service"
	"github.com/kaito/tubegrab/internal/storage"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db      *gorm.DB
	cache   cache.Store
	storage storage.ObjectStorage
	queue   *service.QueueService
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, store cache.Store, objStore storage.ObjectStorage, queue *service.QueueService) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   store,
		storage: objStore,
		queue:   queue,
		started: time.Now(),
	}
}

// Health returns the health status of the service and its dependencies.
// The endpoint stays 200 while any dependency check fails; status degrades
// to "degraded" so probes can distinguish partial outages.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{
		"database": h.checkDatabase(ctx),
		"cache":    h.checkCache(ctx),
		"storage":  h.checkStorage(ctx),
	}

	status := "ok"
	for _, v := range checks {
		if v != "ok" {
			status = "degraded"
		}
	}

	resp := gin.H{
		"status":  status,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"checks":  checks,
		"version": "1.0.0",
	}

	if stats, err := h.queue.GetQueueStats(ctx); err == nil {
		resp["queue"] = gin.H{
			"queued":     stats.Queued,
			"processing": stats.Processing,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err.Error()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

func (h *HealthHandler) checkCache(ctx context.Context) string {
	redisStore, ok := h.cache.(*cache.RedisStore)
	if !ok {
		// Memory fallback is always reachable
		return "ok"
	}
	if err := redisStore.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

func (h *HealthHandler) checkStorage(ctx context.Context) string {
	// Stat of an arbitrary key exercises auth and connectivity; absence
	// of the probe object is a healthy result.
	if _, err := h.storage.Stat(ctx, ".healthcheck"); err != nil {
		return err.Error()
	}
	return "ok"
}
