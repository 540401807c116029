package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/service"
)

// ConvertHandler accepts conversion requests and starts the pipeline.
type ConvertHandler struct {
	jobs      *service.JobService
	orch      *service.Orchestrator
	validator *ValidateHandler
	logger    *logger.Logger
}

// NewConvertHandler creates a new convert handler.
func NewConvertHandler(jobs *service.JobService, orch *service.Orchestrator, validator *ValidateHandler, log *logger.Logger) *ConvertHandler {
	return &ConvertHandler{jobs: jobs, orch: orch, validator: validator, logger: log}
}

// ConvertRequest is the conversion API request.
type ConvertRequest struct {
	URL     string `json:"url" binding:"required"`
	Format  string `json:"format" binding:"required"`
	Quality string `json:"quality"`
}

// Convert handles POST /convert: validate the URL, enqueue a job and kick
// off the pipeline, then return the job ID with a rough ETA.
func (h *ConvertHandler) Convert(c *gin.Context) {
	ctx := c.Request.Context()

	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidURL, "url and format are required")
		return
	}

	format := domain.ConversionFormat(req.Format)
	if format != domain.FormatMP3 && format != domain.FormatMP4 {
		respondError(c, http.StatusBadRequest, CodeInvalidURL, "format must be mp3 or mp4")
		return
	}

	result := h.validator.validateURL(ctx, req.URL)
	if !result.IsValid {
		code := result.ErrorCode
		if code == "" {
			code = CodeInvalidURL
		}
		respondError(c, http.StatusBadRequest, code, result.Error)
		return
	}

	quality := req.Quality
	if quality == "" {
		quality = defaultQuality(format)
	}

	job, err := h.jobs.CreateJob(ctx, result.NormalizedURL, result.VideoID, result.Platform, format, quality)
	if err != nil {
		logger.CtxError(ctx, "Failed to create conversion job: %v", err)
		respondError(c, http.StatusInternalServerError, CodeServerError, "failed to create job")
		return
	}

	h.orch.Start(job.ID)

	eta := service.EstimateProcessingTime(job.Platform, job.Format, 0)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"jobId":         job.ID,
		"status":        job.Status,
		"estimatedTime": int(eta.Seconds()),
	})
}

func defaultQuality(format domain.ConversionFormat) string {
	if format == domain.FormatMP3 {
		return "192"
	}
	return "720p"
}
