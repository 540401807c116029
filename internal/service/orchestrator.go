package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/storage"
)

// Orchestrator drives exactly one job through the remote pipeline as a
// detached task: metadata extraction, conversion, upload, completion.
// Every exit path leaves the job in a terminal state or legitimately
// processing for the timeout sweep to catch; a job is never silently
// abandoned.
type Orchestrator struct {
	jobs      *JobService
	processor ProcessorAPI
	storage   storage.ObjectStorage
	cache     *cache.Cache
	logger    *logger.Logger
}

// NewOrchestrator creates a new conversion orchestrator.
func NewOrchestrator(jobs *JobService, processor ProcessorAPI, store storage.ObjectStorage, c *cache.Cache, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      jobs,
		processor: processor,
		storage:   store,
		cache:     c,
		logger:    log,
	}
}

func (o *Orchestrator) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return o.logger
}

// Start launches the pipeline for a job as a supervised goroutine. The
// goroutine owns its own context: the HTTP request that created the job
// has already returned.
func (o *Orchestrator) Start(jobID string) {
	ctx := logger.SetJobID(context.Background(), jobID)
	go o.Run(ctx, jobID)
}

// Run executes the pipeline for one job. A panic anywhere in the pipeline
// fails the job rather than killing the process.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			o.log(ctx).WithField(logger.FieldJobID, jobID).Errorf("Pipeline panic: %v", r)
			_ = o.jobs.FailJob(ctx, jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := o.run(ctx, jobID); err != nil {
		_ = o.jobs.FailJob(ctx, jobID, err.Error())
	}
}

func (o *Orchestrator) run(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	// Atomic queued→processing claim; losing the race means another
	// orchestrator owns this job
	if err := o.jobs.jobs.Claim(ctx, jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			o.log(ctx).WithField(logger.FieldJobID, jobID).Warn("Job already claimed, skipping")
			return nil
		}
		return err
	}

	if err := o.jobs.UpdateJob(ctx, jobID, map[string]interface{}{"progress": 10}); err != nil {
		return err
	}

	meta, err := o.fetchMetadata(ctx, job)
	if err != nil {
		return err
	}

	if err := o.jobs.UpdateJob(ctx, jobID, map[string]interface{}{
		"progress": 40,
		"metadata": meta,
	}); err != nil {
		return err
	}

	result, err := o.processor.Convert(ctx, job.URL, job.Format, job.Quality)
	if err != nil {
		return err
	}

	if err := o.jobs.UpdateJob(ctx, jobID, map[string]interface{}{"progress": 80}); err != nil {
		return err
	}

	key, downloadURL, err := o.upload(ctx, job, meta, result)
	if err != nil {
		return err
	}

	return o.jobs.CompleteJob(ctx, jobID, downloadURL, key, meta)
}

// fetchMetadata reads through the metadata cache keyed by video id before
// calling the remote extractor.
func (o *Orchestrator) fetchMetadata(ctx context.Context, job *domain.ConversionJob) (*domain.VideoMetadata, error) {
	if job.VideoID != "" {
		if meta, ok := o.cache.GetMetadata(ctx, job.VideoID); ok {
			return meta, nil
		}
	}

	meta, err := o.processor.ExtractMetadata(ctx, job.URL)
	if err != nil {
		return nil, err
	}

	if job.VideoID != "" {
		o.cache.SetMetadata(ctx, job.VideoID, meta)
	}
	return meta, nil
}

// upload moves the produced file into object storage under a safe name and
// returns the storage key plus a signed download URL aligned with the
// job's 24h expiry.
func (o *Orchestrator) upload(ctx context.Context, job *domain.ConversionJob, meta *domain.VideoMetadata, result *ConvertResult) (string, string, error) {
	f, err := os.Open(result.FilePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to open converted file: %w", err)
	}
	defer f.Close()
	defer os.Remove(result.FilePath)

	stat, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("failed to stat converted file: %w", err)
	}

	key := SafeFileName(meta.Title, job.Format)
	if err := o.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		Reader:      f,
		Size:        stat.Size(),
		ContentType: contentTypeFor(job.Format),
		// Converted artifacts never change once written
		CacheControl: "public, max-age=86400, immutable",
		Metadata: map[string]string{
			"job-id":   job.ID,
			"platform": job.Platform,
		},
	}); err != nil {
		return "", "", err
	}

	// Keep the signed URL's validity aligned with the job's advertised
	// 24h download window
	expiresIn := time.Until(job.ExpiresAt)
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	downloadURL, err := o.storage.PresignDownload(ctx, key, expiresIn)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate download url: %w", err)
	}

	return key, downloadURL, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// SafeFileName sanitizes a video title into a filesystem-safe storage key:
// unsafe characters stripped, truncated, suffixed with a timestamp for
// uniqueness and the format extension.
func SafeFileName(title string, format domain.ConversionFormat) string {
	name := unsafeFileChars.ReplaceAllString(title, "")
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	if len(name) > 80 {
		name = name[:80]
	}
	if name == "" {
		name = "conversion"
	}
	return fmt.Sprintf("%s_%d.%s", name, time.Now().UnixMilli(), format)
}

func contentTypeFor(format domain.ConversionFormat) string {
	if format == domain.FormatMP3 {
		return "audio/mpeg"
	}
	return "video/mp4"
}
