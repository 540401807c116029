package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/notify"
	"github.com/kaito/tubegrab/internal/repository"
	"github.com/kaito/tubegrab/internal/storage"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard})
}

// fakeJobStore is an in-memory JobStore for service tests.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.ConversionJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.ConversionJob)}
}

func (f *fakeJobStore) put(job *domain.ConversionJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
}

func (f *fakeJobStore) Create(_ context.Context, job *domain.ConversionJob) error {
	f.put(job)
	return nil
}

func (f *fakeJobStore) GetByID(_ context.Context, id string) (*domain.ConversionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) Updates(_ context.Context, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return repository.ErrJobTerminal
	}
	for k, v := range fields {
		switch k {
		case "status":
			job.Status = v.(domain.JobStatus)
		case "progress":
			job.Progress = v.(int)
		case "download_url":
			job.DownloadURL = v.(string)
		case "file_path":
			job.FilePath = v.(string)
		case "error_message":
			job.ErrorMessage = v.(string)
		case "metadata":
			job.Metadata = v.(*domain.VideoMetadata)
		}
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (f *fakeJobStore) Claim(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != domain.JobStatusQueued {
		return repository.ErrJobNotFound
	}
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = time.Now()
	return nil
}

func (f *fakeJobStore) list(filter func(*domain.ConversionJob) bool) []domain.ConversionJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ConversionJob
	for _, job := range f.jobs {
		if filter(job) {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeJobStore) ListQueued(_ context.Context, limit int) ([]domain.ConversionJob, error) {
	out := f.list(func(j *domain.ConversionJob) bool { return j.Status == domain.JobStatusQueued })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeJobStore) ListProcessingStale(_ context.Context, cutoff time.Time) ([]domain.ConversionJob, error) {
	return f.list(func(j *domain.ConversionJob) bool {
		return j.Status == domain.JobStatusProcessing && j.UpdatedAt.Before(cutoff)
	}), nil
}

func (f *fakeJobStore) ListExpired(_ context.Context, now time.Time) ([]domain.ConversionJob, error) {
	return f.list(func(j *domain.ConversionJob) bool { return j.ExpiresAt.Before(now) }), nil
}

func (f *fakeJobStore) ListTerminalOlderThan(_ context.Context, cutoff time.Time) ([]domain.ConversionJob, error) {
	return f.list(func(j *domain.ConversionJob) bool {
		return j.Status.IsTerminal() && j.UpdatedAt.Before(cutoff)
	}), nil
}

func (f *fakeJobStore) ListByStatus(_ context.Context, status domain.JobStatus, limit, offset int) ([]domain.ConversionJob, error) {
	out := f.list(func(j *domain.ConversionJob) bool { return j.Status == status })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeJobStore) ListByFilePaths(_ context.Context, paths []string) ([]domain.ConversionJob, error) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	return f.list(func(j *domain.ConversionJob) bool { return j.FilePath != "" && want[j.FilePath] }), nil
}

func (f *fakeJobStore) CountByStatus(_ context.Context, status domain.JobStatus, since time.Time) (int64, error) {
	out := f.list(func(j *domain.ConversionJob) bool {
		return j.Status == status && !j.UpdatedAt.Before(since)
	})
	return int64(len(out)), nil
}

func (f *fakeJobStore) AverageCompletionSeconds(_ context.Context, since time.Time) (float64, error) {
	var total float64
	var n int
	for _, job := range f.list(func(j *domain.ConversionJob) bool {
		return j.Status == domain.JobStatusCompleted && !j.UpdatedAt.Before(since)
	}) {
		total += job.UpdatedAt.Sub(job.CreatedAt).Seconds()
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}

func (f *fakeJobStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return repository.ErrJobNotFound
	}
	delete(f.jobs, id)
	return nil
}

// fakeStorage is an in-memory ObjectStorage for cleanup and pipeline tests.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]fakeObject)}
}

func (f *fakeStorage) putObject(key string, size int, lastModified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: make([]byte, size), lastModified: lastModified}
}

func (f *fakeStorage) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeStorage) EnsureBucket(context.Context) error { return nil }

func (f *fakeStorage) Upload(_ context.Context, in *storage.UploadInput) error {
	data, err := io.ReadAll(in.Reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[in.Key] = fakeObject{data: data, contentType: in.ContentType, lastModified: time.Now()}
	return nil
}

func (f *fakeStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, nil
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (f *fakeStorage) DownloadRange(_ context.Context, key string, start, end int64) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, nil
	}
	if end < 0 || end >= int64(len(obj.data)) {
		end = int64(len(obj.data)) - 1
	}
	return io.NopCloser(bytes.NewReader(obj.data[start : end+1])), nil
}

func (f *fakeStorage) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, nil
	}
	return &storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.lastModified,
	}, nil
}

func (f *fakeStorage) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ObjectInfo
	for key, obj := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, storage.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) GetURL(key string) string {
	return "https://files.example.com/" + key
}

func (f *fakeStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + key + "?signed=1", nil
}

// newTestJobService wires a JobService over the fakes with an in-process
// cache and a live hub.
func newTestJobService(store *fakeJobStore) (*JobService, *cache.Cache, *notify.Hub) {
	c := cache.New(cache.NewMemoryStore())
	hub := notify.NewHub()
	svc := NewJobService(store, c, hub, testLogger(), &JobServiceConfig{JobTTL: 24 * time.Hour})
	return svc, c, hub
}
