package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/logger"
)

// QueueService computes queue ordering, detects stuck jobs, and reports
// capacity stats. Ordering is advisory: jobs are claimed atomically by the
// orchestrator, not reserved by these reads.
type QueueService struct {
	jobs       JobStore
	jobSvc     *JobService
	logger     *logger.Logger
	jobTimeout time.Duration
	statsSince time.Duration
}

// QueueServiceConfig holds configuration for the queue service.
type QueueServiceConfig struct {
	JobTimeout time.Duration
	// StatsWindow bounds the trailing window for queue stats.
	StatsWindow time.Duration
}

// NewQueueService creates a new queue service.
func NewQueueService(jobs JobStore, jobSvc *JobService, log *logger.Logger, cfg *QueueServiceConfig) *QueueService {
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	window := cfg.StatsWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &QueueService{
		jobs:       jobs,
		jobSvc:     jobSvc,
		logger:     log,
		jobTimeout: timeout,
		statsSince: window,
	}
}

func (s *QueueService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CalculateJobPriority scores a queued job snapshot: base 100, +20 for
// audio output, up to +50 scaled by age (5 points per hour), plus a small
// per-platform constant. Pure function over the snapshot; a scoring
// heuristic, not a scheduling guarantee.
func CalculateJobPriority(job *domain.ConversionJob, now time.Time) int {
	priority := 100

	if job.Format == domain.FormatMP3 {
		priority += 20
	}

	ageHours := now.Sub(job.CreatedAt).Hours()
	ageBoost := int(ageHours * 5)
	if ageBoost > 50 {
		ageBoost = 50
	}
	if ageBoost > 0 {
		priority += ageBoost
	}

	priority += platformPriorityBoost[job.Platform]

	return priority
}

var platformPriorityBoost = map[string]int{
	"tiktok":  5,
	"twitter": 5,
	"youtube": 3,
}

// orderQueued sorts queued jobs by priority, oldest first within a tier.
func orderQueued(jobs []domain.ConversionJob, now time.Time) {
	sort.SliceStable(jobs, func(i, j int) bool {
		pi, pj := CalculateJobPriority(&jobs[i], now), CalculateJobPriority(&jobs[j], now)
		if pi != pj {
			return pi > pj
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

// GetNextJobs returns up to limit queued jobs in priority order. This is
// advisory ordering for a consumer loop; nothing is claimed here.
func (s *QueueService) GetNextJobs(ctx context.Context, limit int) ([]domain.ConversionJob, error) {
	jobs, err := s.jobs.ListQueued(ctx, 0)
	if err != nil {
		return nil, err
	}
	orderQueued(jobs, time.Now())
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// GetJobQueuePosition counts queued jobs serviced before this one under
// the same ordering rule. For user display only; 0 means next in line.
func (s *QueueService) GetJobQueuePosition(ctx context.Context, jobID string) (int, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status != domain.JobStatusQueued {
		return 0, nil
	}

	queued, err := s.jobs.ListQueued(ctx, 0)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	orderQueued(queued, now)
	for i := range queued {
		if queued[i].ID == jobID {
			return i, nil
		}
	}
	return 0, nil
}

// QueueStats aggregates queue observability counters over a trailing window.
type QueueStats struct {
	Queued               int64   `json:"queued"`
	Processing           int64   `json:"processing"`
	Completed            int64   `json:"completed"`
	Failed               int64   `json:"failed"`
	AvgCompletionSeconds float64 `json:"avg_completion_seconds"`
	WindowHours          float64 `json:"window_hours"`
}

// GetQueueStats returns per-status counts and the average completion
// latency over the trailing stats window.
func (s *QueueService) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	since := time.Now().Add(-s.statsSince)
	stats := &QueueStats{WindowHours: s.statsSince.Hours()}

	counts := []struct {
		status domain.JobStatus
		dest   *int64
	}{
		{domain.JobStatusQueued, &stats.Queued},
		{domain.JobStatusProcessing, &stats.Processing},
		{domain.JobStatusCompleted, &stats.Completed},
		{domain.JobStatusFailed, &stats.Failed},
	}
	for _, c := range counts {
		n, err := s.jobs.CountByStatus(ctx, c.status, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s jobs: %w", c.status, err)
		}
		*c.dest = n
	}

	avg, err := s.jobs.AverageCompletionSeconds(ctx, since)
	if err != nil {
		return nil, err
	}
	stats.AvgCompletionSeconds = avg

	return stats, nil
}

// HandleTimeoutJobs transitions processing jobs whose updated_at is older
// than the job timeout to failed. This is the only automatic recovery for
// stuck jobs; there is no retry. Jobs in other states are never touched.
func (s *QueueService) HandleTimeoutJobs(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.jobTimeout)
	stale, err := s.jobs.ListProcessingStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	failed := 0
	for i := range stale {
		msg := fmt.Sprintf("processing timed out after %s", s.jobTimeout)
		if err := s.jobSvc.FailJob(ctx, stale[i].ID, msg); err != nil {
			s.log(ctx).WithField(logger.FieldJobID, stale[i].ID).WithError(err).Error("Failed to time out job")
			continue
		}
		failed++
	}

	if failed > 0 {
		s.log(ctx).WithField(logger.FieldCount, failed).Warn("Timed out stuck jobs")
	}
	return failed, nil
}

// CleanupOldJobs deletes terminal jobs last updated before the retention
// threshold and returns the count deleted.
func (s *QueueService) CleanupOldJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	old, err := s.jobs.ListTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range old {
		if err := s.jobs.Delete(ctx, old[i].ID); err != nil {
			s.log(ctx).WithField(logger.FieldJobID, old[i].ID).WithError(err).Error("Failed to delete old job")
			continue
		}
		deleted++
	}
	return deleted, nil
}
