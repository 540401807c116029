package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/service"
	"github.com/kaito/tubegrab/internal/storage"
)

// AdminHandler serves the operator endpoints behind bearer auth.
type AdminHandler struct {
	jobs    service.JobStore
	queue   *service.QueueService
	cleanup *service.CleanupService
	storage storage.ObjectStorage
	logger  *logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(jobs service.JobStore, queue *service.QueueService, cleanup *service.CleanupService, store storage.ObjectStorage, log *logger.Logger) *AdminHandler {
	return &AdminHandler{jobs: jobs, queue: queue, cleanup: cleanup, storage: store, logger: log}
}

// QueueStats handles GET /admin/queue/stats.
func (h *AdminHandler) QueueStats(c *gin.Context) {
	stats, err := h.queue.GetQueueStats(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to load queue stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// ListJobs handles GET /admin/jobs?status=queued&limit=50.
func (h *AdminHandler) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()

	status := domain.JobStatus(c.DefaultQuery("status", string(domain.JobStatusQueued)))
	switch status {
	case domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		respondError(c, http.StatusBadRequest, CodeInvalidURL, "unknown status")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.jobs.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		logger.CtxError(ctx, "Failed to list jobs: %v", err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to list jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": jobs, "count": len(jobs)})
}

// TriggerCleanup handles POST /admin/cleanup: runs a full cleanup pass
// synchronously and returns the cumulative stats.
func (h *AdminHandler) TriggerCleanup(c *gin.Context) {
	ctx := c.Request.Context()
	logger.CtxInfo(ctx, "Manual cleanup triggered")
	h.cleanup.PerformCleanup(ctx)
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.cleanup.Stats()})
}

// CleanupStats handles GET /admin/cleanup/stats.
func (h *AdminHandler) CleanupStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.cleanup.Stats()})
}

// StorageStats handles GET /admin/storage/stats.
func (h *AdminHandler) StorageStats(c *gin.Context) {
	ctx := c.Request.Context()

	objects, err := h.storage.List(ctx, "")
	if err != nil {
		logger.CtxError(ctx, "Failed to list storage: %v", err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to list storage")
		return
	}

	var totalBytes int64
	for _, obj := range objects {
		totalBytes += obj.Size
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"objects":    len(objects),
		"totalBytes": totalBytes,
	})
}

// ListStorage handles GET /admin/storage?prefix=.
func (h *AdminHandler) ListStorage(c *gin.Context) {
	ctx := c.Request.Context()

	objects, err := h.storage.List(ctx, c.Query("prefix"))
	if err != nil {
		logger.CtxError(ctx, "Failed to list storage: %v", err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to list storage")
		return
	}

	type objectView struct {
		Key          string `json:"key"`
		Size         int64  `json:"size"`
		LastModified string `json:"lastModified"`
	}
	views := make([]objectView, 0, len(objects))
	for _, obj := range objects {
		views = append(views, objectView{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "objects": views})
}

// DeleteObject handles DELETE /admin/storage/:fileName.
func (h *AdminHandler) DeleteObject(c *gin.Context) {
	ctx := c.Request.Context()

	key := sanitizeKey(c.Param("fileName"))
	if key == "" {
		respondError(c, http.StatusBadRequest, CodeInvalidURL, "invalid file name")
		return
	}

	if err := h.storage.Delete(ctx, key); err != nil {
		logger.CtxError(ctx, "Failed to delete object %s: %v", key, err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to delete object")
		return
	}
	logger.CtxInfo(ctx, "Deleted storage object %s", key)
	c.JSON(http.StatusOK, gin.H{"success": true, "key": key})
}
