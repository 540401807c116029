package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/storage"
)

// CleanupService sweeps expired jobs and stored files on a fixed interval.
// Each sweep is idempotent and isolated: a failure in one never aborts the
// others.
type CleanupService struct {
	jobs    JobStore
	queue   *QueueService
	storage storage.ObjectStorage
	cache   *cache.Cache
	logger  *logger.Logger

	interval       time.Duration
	maxFileAge     time.Duration
	maxStorageSize int64
	retention      time.Duration

	mu    sync.Mutex
	stats CleanupStats
}

// CleanupStats tracks cumulative sweep results for observability.
type CleanupStats struct {
	FilesDeleted int64     `json:"files_deleted"`
	BytesFreed   int64     `json:"bytes_freed"`
	JobsExpired  int64     `json:"jobs_expired"`
	JobsDeleted  int64     `json:"jobs_deleted"`
	LastRun      time.Time `json:"last_run"`
	NextRun      time.Time `json:"next_run"`
}

// CleanupConfig holds configuration for the cleanup service.
type CleanupConfig struct {
	Interval       time.Duration
	MaxFileAge     time.Duration
	MaxStorageSize int64
	JobRetention   time.Duration
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(jobs JobStore, queue *QueueService, store storage.ObjectStorage, c *cache.Cache, log *logger.Logger, cfg *CleanupConfig) *CleanupService {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	maxAge := cfg.MaxFileAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	retention := cfg.JobRetention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &CleanupService{
		jobs:           jobs,
		queue:          queue,
		storage:        store,
		cache:          c,
		logger:         log,
		interval:       interval,
		maxFileAge:     maxAge,
		maxStorageSize: cfg.MaxStorageSize,
		retention:      retention,
	}
}

func (s *CleanupService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Stats returns a copy of the cumulative cleanup counters.
func (s *CleanupService) Stats() CleanupStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run executes PerformCleanup on the configured interval until the context
// is cancelled.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PerformCleanup(ctx)
		}
	}
}

// PerformCleanup runs all sweeps once: expired jobs, age-based files,
// storage size budget, orphaned files, and old terminal job rows.
func (s *CleanupService) PerformCleanup(ctx context.Context) {
	start := time.Now()

	s.sweepExpiredJobs(ctx)
	s.sweepAgedFiles(ctx)
	s.sweepStorageBudget(ctx)
	s.sweepOrphans(ctx)

	if deleted, err := s.queue.CleanupOldJobs(ctx, s.retention); err != nil {
		s.log(ctx).WithError(err).Error("Old-job sweep failed")
	} else {
		s.addStats(func(st *CleanupStats) { st.JobsDeleted += int64(deleted) })
	}

	s.mu.Lock()
	s.stats.LastRun = start
	s.stats.NextRun = start.Add(s.interval)
	s.mu.Unlock()

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Cleanup pass finished")
}

func (s *CleanupService) addStats(apply func(*CleanupStats)) {
	s.mu.Lock()
	apply(&s.stats)
	s.mu.Unlock()
}

// sweepExpiredJobs deletes jobs whose expires_at has passed, along with
// their stored files.
func (s *CleanupService) sweepExpiredJobs(ctx context.Context) {
	expired, err := s.jobs.ListExpired(ctx, time.Now())
	if err != nil {
		s.log(ctx).WithError(err).Error("Expired-job sweep failed")
		return
	}

	for i := range expired {
		job := &expired[i]
		if job.FilePath != "" {
			if err := s.deleteObject(ctx, job.FilePath); err != nil {
				s.log(ctx).WithField(logger.FieldJobID, job.ID).WithError(err).Error("Failed to delete expired file")
			}
		}
		if err := s.jobs.Delete(ctx, job.ID); err != nil {
			s.log(ctx).WithField(logger.FieldJobID, job.ID).WithError(err).Error("Failed to delete expired job")
			continue
		}
		s.cache.InvalidateStatus(ctx, job.ID)
		s.addStats(func(st *CleanupStats) { st.JobsExpired++ })
	}
}

// sweepAgedFiles deletes stored files older than the max file age.
func (s *CleanupService) sweepAgedFiles(ctx context.Context) {
	objects, err := s.storage.List(ctx, "")
	if err != nil {
		s.log(ctx).WithError(err).Error("Age sweep listing failed")
		return
	}

	cutoff := time.Now().Add(-s.maxFileAge)
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := s.deleteObjectInfo(ctx, obj); err != nil {
			s.log(ctx).WithError(err).Error("Failed to delete aged file")
		}
	}
}

// sweepStorageBudget deletes oldest files first until total size is under
// the configured budget.
func (s *CleanupService) sweepStorageBudget(ctx context.Context) {
	if s.maxStorageSize <= 0 {
		return
	}

	objects, err := s.storage.List(ctx, "")
	if err != nil {
		s.log(ctx).WithError(err).Error("Size sweep listing failed")
		return
	}

	var total int64
	for _, obj := range objects {
		total += obj.Size
	}
	if total <= s.maxStorageSize {
		return
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.Before(objects[j].LastModified)
	})

	for _, obj := range objects {
		if total <= s.maxStorageSize {
			break
		}
		if err := s.deleteObjectInfo(ctx, obj); err != nil {
			s.log(ctx).WithError(err).Error("Failed to delete file over budget")
			continue
		}
		total -= obj.Size
	}
}

// orphanGracePeriod protects freshly uploaded files: the pipeline uploads
// before it persists file_path, so a young unreferenced object may simply
// be a completion in flight.
const orphanGracePeriod = time.Hour

// sweepOrphans deletes stored files no job record references, protecting
// against leaks from failed uploads or deleted job rows. Objects younger
// than the grace period are left alone.
func (s *CleanupService) sweepOrphans(ctx context.Context) {
	objects, err := s.storage.List(ctx, "")
	if err != nil {
		s.log(ctx).WithError(err).Error("Orphan sweep listing failed")
		return
	}
	graceCutoff := time.Now().Add(-orphanGracePeriod)
	eligible := objects[:0]
	for _, obj := range objects {
		if obj.LastModified.Before(graceCutoff) {
			eligible = append(eligible, obj)
		}
	}
	objects = eligible
	if len(objects) == 0 {
		return
	}

	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}
	referencing, err := s.jobs.ListByFilePaths(ctx, keys)
	if err != nil {
		s.log(ctx).WithError(err).Error("Orphan sweep job lookup failed")
		return
	}

	referenced := make(map[string]bool, len(referencing))
	for i := range referencing {
		referenced[referencing[i].FilePath] = true
	}

	for _, obj := range objects {
		if referenced[obj.Key] {
			continue
		}
		if err := s.deleteObjectInfo(ctx, obj); err != nil {
			s.log(ctx).WithError(err).Error("Failed to delete orphaned file")
		}
	}
}

func (s *CleanupService) deleteObject(ctx context.Context, key string) error {
	info, err := s.storage.Stat(ctx, key)
	if err != nil {
		return err
	}
	if info == nil {
		// Already gone; sweeps are idempotent
		return nil
	}
	return s.deleteObjectInfo(ctx, *info)
}

func (s *CleanupService) deleteObjectInfo(ctx context.Context, obj storage.ObjectInfo) error {
	if err := s.storage.Delete(ctx, obj.Key); err != nil {
		return err
	}
	s.addStats(func(st *CleanupStats) {
		st.FilesDeleted++
		st.BytesFreed += obj.Size
	})
	return nil
}
