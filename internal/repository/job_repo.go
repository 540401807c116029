package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kaito/tubegrab/internal/domain"
	"gorm.io/gorm"
)

// ErrJobNotFound is returned when a job lookup or update matches no row.
var ErrJobNotFound = errors.New("job not found")

// ErrJobTerminal is returned when an update targets a completed or failed
// job. Terminal jobs are immutable until cleanup deletes them.
var ErrJobTerminal = errors.New("job is in a terminal state")

// JobRepository is the durable store for conversion jobs.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobRepository: repository instance bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record.
func (r *JobRepository) Create(ctx context.Context, job *domain.ConversionJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by its ID.
// Returns ErrJobNotFound when the job does not exist.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ConversionJob, error) {
	var job domain.ConversionJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Updates applies a partial field update to a job and bumps updated_at.
// The update is conditional on the job not being terminal, so the guard
// holds under concurrent writers the same way Claim does. Returns
// ErrJobNotFound when no row exists, ErrJobTerminal when the row is
// completed or failed.
func (r *JobRepository) Updates(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.ConversionJob{}).
		Where("id = ? AND status NOT IN ?", id, []domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusFailed}).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.ConversionJob{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrJobNotFound
		}
		return ErrJobTerminal
	}
	return nil
}

// Claim atomically transitions a job from queued to processing. It is the
// mutual-exclusion point for job pickup: a second claimant loses the
// conditional update and gets ErrJobNotFound.
func (r *JobRepository) Claim(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.ConversionJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":     domain.JobStatusProcessing,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ListQueued retrieves queued jobs ordered by creation time.
func (r *JobRepository) ListQueued(ctx context.Context, limit int) ([]domain.ConversionJob, error) {
	var jobs []domain.ConversionJob
	q := r.db.WithContext(ctx).
		Where("status = ?", domain.JobStatusQueued).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListProcessingStale retrieves processing jobs whose updated_at is older
// than the cutoff, for the timeout sweep.
func (r *JobRepository) ListProcessingStale(ctx context.Context, cutoff time.Time) ([]domain.ConversionJob, error) {
	var jobs []domain.ConversionJob
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.JobStatusProcessing, cutoff).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListExpired retrieves jobs whose expires_at has passed.
func (r *JobRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.ConversionJob, error) {
	var jobs []domain.ConversionJob
	if err := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListTerminalOlderThan retrieves completed/failed jobs last updated before the cutoff.
func (r *JobRepository) ListTerminalOlderThan(ctx context.Context, cutoff time.Time) ([]domain.ConversionJob, error) {
	var jobs []domain.ConversionJob
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]domain.JobStatus{domain.JobStatusCompleted, domain.JobStatusFailed}, cutoff).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListByStatus retrieves jobs by status with pagination, newest first.
func (r *JobRepository) ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.ConversionJob, error) {
	var jobs []domain.ConversionJob
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListByFilePaths retrieves jobs referencing any of the given storage paths.
func (r *JobRepository) ListByFilePaths(ctx context.Context, paths []string) ([]domain.ConversionJob, error) {
	if len(paths) == 0 {
		return []domain.ConversionJob{}, nil
	}
	var jobs []domain.ConversionJob
	if err := r.db.WithContext(ctx).Where("file_path IN ?", paths).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs by file paths: %w", err)
	}
	return jobs, nil
}

// CountByStatus counts jobs by status, optionally restricted to a trailing window.
func (r *JobRepository) CountByStatus(ctx context.Context, status domain.JobStatus, since time.Time) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.ConversionJob{}).Where("status = ?", status)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AverageCompletionSeconds computes the mean created→updated latency of
// completed jobs inside the trailing window.
func (r *JobRepository) AverageCompletionSeconds(ctx context.Context, since time.Time) (float64, error) {
	var jobs []domain.ConversionJob
	if err := r.db.WithContext(ctx).
		Select("created_at", "updated_at").
		Where("status = ? AND created_at >= ?", domain.JobStatusCompleted, since).
		Find(&jobs).Error; err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	var total float64
	for _, j := range jobs {
		total += j.UpdatedAt.Sub(j.CreatedAt).Seconds()
	}
	return total / float64(len(jobs)), nil
}

// Delete removes a job by ID.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.ConversionJob{}, "id = ?", id).Error
}
