package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/service"
)

// StatusHandler serves job status snapshots for the poll channel.
type StatusHandler struct {
	jobs   *service.JobService
	queue  *service.QueueService
	logger *logger.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(jobs *service.JobService, queue *service.QueueService, log *logger.Logger) *StatusHandler {
	return &StatusHandler{jobs: jobs, queue: queue, logger: log}
}

type statusResponse struct {
	Success bool `json:"success"`
	domain.StatusSnapshot
}

// Status handles GET /status/:jobId. The snapshot is served cache-through
// so polling clients rarely touch the database.
func (h *StatusHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("jobId")

	snap, err := h.jobs.GetStatus(ctx, jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			respondError(c, http.StatusNotFound, CodeVideoNotFound, "job not found")
			return
		}
		logger.CtxError(ctx, "Failed to load job status: %v", err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to load status")
		return
	}

	c.JSON(http.StatusOK, statusResponse{Success: true, StatusSnapshot: *snap})
}

// QueuePosition handles GET /status/:jobId/position for queued jobs.
func (h *StatusHandler) QueuePosition(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("jobId")

	pos, err := h.queue.GetJobQueuePosition(ctx, jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			respondError(c, http.StatusNotFound, CodeVideoNotFound, "job not found")
			return
		}
		logger.CtxError(ctx, "Failed to compute queue position: %v", err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to compute position")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"jobId":    jobID,
		"position": pos,
	})
}
