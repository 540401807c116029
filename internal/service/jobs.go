package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/notify"
	"github.com/kaito/tubegrab/internal/repository"
)

// ErrJobNotFound mirrors the repository sentinel for callers that only
// import the service layer.
var ErrJobNotFound = repository.ErrJobNotFound

// ErrJobTerminal mirrors the repository sentinel: the store rejects any
// mutation of a completed or failed job.
var ErrJobTerminal = repository.ErrJobTerminal

// JobService creates jobs and mutates their lifecycle fields. Every
// mutation refreshes the status cache and publishes to the event hub so
// both sync channels observe the change.
type JobService struct {
	jobs   JobStore
	cache  *cache.Cache
	hub    *notify.Hub
	logger *logger.Logger
	jobTTL time.Duration
}

// JobServiceConfig holds configuration for the job service.
type JobServiceConfig struct {
	JobTTL time.Duration
}

// NewJobService creates a new job service.
func NewJobService(jobs JobStore, c *cache.Cache, hub *notify.Hub, log *logger.Logger, cfg *JobServiceConfig) *JobService {
	ttl := cfg.JobTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobService{
		jobs:   jobs,
		cache:  c,
		hub:    hub,
		logger: log,
		jobTTL: ttl,
	}
}

func (s *JobService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// generateJobID produces a collision-resistant id: time-based prefix for
// rough ordering plus a random suffix.
func generateJobID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("job_%d_%s", now.UnixMilli(), suffix)
}

// CreateJob persists a queued job with progress 0 and expiry fixed at
// creation time. It never blocks on the conversion pipeline.
func (s *JobService) CreateJob(ctx context.Context, url, videoID, platformName string, format domain.ConversionFormat, quality string) (*domain.ConversionJob, error) {
	now := time.Now()
	job := &domain.ConversionJob{
		ID:        generateJobID(now),
		URL:       url,
		VideoID:   videoID,
		Platform:  platformName,
		Format:    format,
		Quality:   quality,
		Status:    domain.JobStatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.jobTTL),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.cache.SetStatus(ctx, job.Snapshot())
	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID:    job.ID,
		logger.FieldPlatform: platformName,
		"format":             format,
	}).Info("Job created")

	return job, nil
}

// GetJob retrieves a job from the durable store.
func (s *JobService) GetJob(ctx context.Context, id string) (*domain.ConversionJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// GetStatus returns the client-facing snapshot, read through the cache.
// The durable store always wins: a miss or decode failure falls back to a
// fresh read and repopulates the cache.
func (s *JobService) GetStatus(ctx context.Context, id string) (*domain.StatusSnapshot, error) {
	if snap, ok := s.cache.GetStatus(ctx, id); ok {
		return snap, nil
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := job.Snapshot()
	s.cache.SetStatus(ctx, snap)
	return snap, nil
}

// UpdateJob merges partial fields into a job and bumps updated_at.
// Mutating a terminal job returns ErrJobTerminal; the store enforces the
// guard conditionally, so a concurrent writer that reaches a terminal
// state first always wins. Progress can never decrease while processing.
func (s *JobService) UpdateJob(ctx context.Context, id string, fields map[string]interface{}) error {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	if p, ok := fields["progress"].(int); ok && p < job.Progress {
		fields["progress"] = job.Progress
	}

	if err := s.jobs.Updates(ctx, id, fields); err != nil {
		return err
	}
	return s.publish(ctx, id)
}

// CompleteJob transitions a job to its completed terminal state.
func (s *JobService) CompleteJob(ctx context.Context, id, downloadURL, filePath string, meta *domain.VideoMetadata) error {
	fields := map[string]interface{}{
		"status":       domain.JobStatusCompleted,
		"progress":     100,
		"download_url": downloadURL,
		"file_path":    filePath,
	}
	if meta != nil {
		fields["metadata"] = meta
	}
	return s.UpdateJob(ctx, id, fields)
}

// FailJob transitions a job to its failed terminal state with an error
// message. Failing an already-terminal job is a no-op so that late
// pipeline errors cannot clobber a recorded outcome.
func (s *JobService) FailJob(ctx context.Context, id, message string) error {
	err := s.UpdateJob(ctx, id, map[string]interface{}{
		"status":        domain.JobStatusFailed,
		"error_message": message,
	})
	if errors.Is(err, ErrJobTerminal) {
		return nil
	}
	return err
}

// publish refreshes the cached snapshot and emits the matching event.
func (s *JobService) publish(ctx context.Context, id string) error {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	snap := job.Snapshot()
	s.cache.SetStatus(ctx, snap)
	s.hub.Publish(notify.JobEvent{
		Type:     notify.EventForStatus(job.Status),
		JobID:    id,
		Snapshot: snap,
	})
	return nil
}

// Format base processing times for the ETA heuristic.
var formatBaseTime = map[domain.ConversionFormat]time.Duration{
	domain.FormatMP3: 30 * time.Second,
	domain.FormatMP4: 60 * time.Second,
}

// Platform multipliers for the ETA heuristic.
var platformMultiplier = map[string]float64{
	"youtube":   1.0,
	"tiktok":    0.6,
	"instagram": 0.8,
	"twitter":   0.7,
	"vimeo":     1.2,
}

// EstimateProcessingTime returns a user-facing ETA: base time per format
// scaled by a platform multiplier, plus a tenth of the video duration.
// It is a display heuristic only and never feeds scheduling decisions.
func EstimateProcessingTime(platformName string, format domain.ConversionFormat, videoDuration time.Duration) time.Duration {
	base, ok := formatBaseTime[format]
	if !ok {
		base = 45 * time.Second
	}
	mult, ok := platformMultiplier[platformName]
	if !ok {
		mult = 1.0
	}
	return time.Duration(float64(base)*mult) + videoDuration/10
}
