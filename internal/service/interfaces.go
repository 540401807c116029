package service

import (
	"context"
	"time"

	"github.com/kaito/tubegrab/internal/domain"
)

// JobStore is the durable job store contract the services depend on.
// Implemented by repository.JobRepository; tests supply in-memory fakes.
type JobStore interface {
	Create(ctx context.Context, job *domain.ConversionJob) error
	GetByID(ctx context.Context, id string) (*domain.ConversionJob, error)
	Updates(ctx context.Context, id string, fields map[string]interface{}) error
	Claim(ctx context.Context, id string) error
	ListQueued(ctx context.Context, limit int) ([]domain.ConversionJob, error)
	ListProcessingStale(ctx context.Context, cutoff time.Time) ([]domain.ConversionJob, error)
	ListExpired(ctx context.Context, now time.Time) ([]domain.ConversionJob, error)
	ListTerminalOlderThan(ctx context.Context, cutoff time.Time) ([]domain.ConversionJob, error)
	ListByStatus(ctx context.Context, status domain.JobStatus, limit, offset int) ([]domain.ConversionJob, error)
	ListByFilePaths(ctx context.Context, paths []string) ([]domain.ConversionJob, error)
	CountByStatus(ctx context.Context, status domain.JobStatus, since time.Time) (int64, error)
	AverageCompletionSeconds(ctx context.Context, since time.Time) (float64, error)
	Delete(ctx context.Context, id string) error
}

// PlatformStore is the catalog contract.
// Implemented by repository.PlatformRepository.
type PlatformStore interface {
	List(ctx context.Context) ([]domain.Platform, error)
	GetByName(ctx context.Context, name string) (*domain.Platform, error)
}
