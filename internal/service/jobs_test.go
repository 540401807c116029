package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kaito/tubegrab/internal/cache"
	"github.com/kaito/tubegrab/internal/domain"
	"github.com/kaito/tubegrab/internal/notify"
)

func TestCreateJobDefaults(t *testing.T) {
	store := newFakeJobStore()
	svc, c, _ := newTestJobService(store)
	ctx := context.Background()

	before := time.Now()
	job, err := svc.CreateJob(ctx, "https://youtube.com/watch?v=abc", "abc", "youtube", domain.FormatMP3, "192")
	if err != nil {
		t.Fatalf("CreateJob returned error: %v", err)
	}

	if !strings.HasPrefix(job.ID, "job_") {
		t.Errorf("job id %q missing job_ prefix", job.ID)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("status: got %s, want queued", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("progress: got %d, want 0", job.Progress)
	}
	wantExpiry := before.Add(24 * time.Hour)
	if job.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || job.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expires_at %v not ~24h after creation", job.ExpiresAt)
	}

	// Snapshot should be cached at creation
	if snap, ok := c.GetStatus(ctx, job.ID); !ok {
		t.Error("status snapshot not cached after create")
	} else if snap.Status != domain.JobStatusQueued {
		t.Errorf("cached status: got %s, want queued", snap.Status)
	}
}

func TestJobIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateJobID(now)
		if seen[id] {
			t.Fatalf("duplicate job id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestUpdateJobTerminalIsImmutable(t *testing.T) {
	store := newFakeJobStore()
	svc, _, _ := newTestJobService(store)
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "https://youtube.com/watch?v=abc", "abc", "youtube", domain.FormatMP3, "192")
	if err := svc.CompleteJob(ctx, job.ID, "https://d/url", "file.mp3", nil); err != nil {
		t.Fatalf("CompleteJob returned error: %v", err)
	}

	err := svc.UpdateJob(ctx, job.ID, map[string]interface{}{"progress": 50})
	if !errors.Is(err, ErrJobTerminal) {
		t.Errorf("update after complete: got %v, want ErrJobTerminal", err)
	}

	// FailJob after completion is a silent no-op
	if err := svc.FailJob(ctx, job.ID, "late failure"); err != nil {
		t.Errorf("FailJob on terminal job: got %v, want nil", err)
	}
	got, _ := store.GetByID(ctx, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("status after late fail: got %s, want completed", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message set on completed job: %q", got.ErrorMessage)
	}
}

// hookedJobStore runs a one-shot callback after a GetByID returns, letting
// tests interleave a competing write between a guard read and its update.
type hookedJobStore struct {
	*fakeJobStore
	mu       sync.Mutex
	afterGet func()
}

func (h *hookedJobStore) GetByID(ctx context.Context, id string) (*domain.ConversionJob, error) {
	job, err := h.fakeJobStore.GetByID(ctx, id)
	h.mu.Lock()
	hook := h.afterGet
	h.afterGet = nil
	h.mu.Unlock()
	if hook != nil {
		hook()
	}
	return job, err
}

func TestFailJobLosesRaceAgainstCompletion(t *testing.T) {
	store := &hookedJobStore{fakeJobStore: newFakeJobStore()}
	c := cache.New(cache.NewMemoryStore())
	svc := NewJobService(store, c, notify.NewHub(), testLogger(), &JobServiceConfig{JobTTL: 24 * time.Hour})
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "https://youtube.com/watch?v=abc", "abc", "youtube", domain.FormatMP3, "192")
	if err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	// The sweeper's guard read sees a processing job; the pipeline then
	// completes it before the failure update lands. The conditional store
	// update must reject the stale write.
	store.afterGet = func() {
		if err := svc.CompleteJob(ctx, job.ID, "https://d/url", "file.mp3", nil); err != nil {
			t.Errorf("CompleteJob returned error: %v", err)
		}
	}
	if err := svc.FailJob(ctx, job.ID, "processing timed out"); err != nil {
		t.Fatalf("FailJob on lost race: got %v, want nil", err)
	}

	got, _ := store.fakeJobStore.GetByID(ctx, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("status after lost race: got %s, want completed", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message set on completed job: %q", got.ErrorMessage)
	}
}

func TestUpdateJobProgressNeverDecreases(t *testing.T) {
	store := newFakeJobStore()
	svc, _, _ := newTestJobService(store)
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "https://youtube.com/watch?v=abc", "abc", "youtube", domain.FormatMP4, "720p")
	if err := svc.UpdateJob(ctx, job.ID, map[string]interface{}{"progress": 60}); err != nil {
		t.Fatalf("update to 60 failed: %v", err)
	}
	if err := svc.UpdateJob(ctx, job.ID, map[string]interface{}{"progress": 40}); err != nil {
		t.Fatalf("update to 40 failed: %v", err)
	}

	got, _ := store.GetByID(ctx, job.ID)
	if got.Progress != 60 {
		t.Errorf("progress after regression attempt: got %d, want 60", got.Progress)
	}
}

func TestUpdateJobPublishesToHub(t *testing.T) {
	store := newFakeJobStore()
	svc, _, hub := newTestJobService(store)
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "https://youtube.com/watch?v=abc", "abc", "youtube", domain.FormatMP3, "192")
	ch := hub.Subscribe(job.ID)
	defer hub.Unsubscribe(job.ID, ch)

	if err := svc.UpdateJob(ctx, job.ID, map[string]interface{}{"progress": 10}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.JobID != job.ID {
			t.Errorf("event job id: got %s, want %s", ev.JobID, job.ID)
		}
		if ev.Snapshot == nil || ev.Snapshot.Progress != 10 {
			t.Errorf("event snapshot progress: got %+v, want 10", ev.Snapshot)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published for progress update")
	}
}

func TestGetStatusFallsBackToStore(t *testing.T) {
	store := newFakeJobStore()
	svc, c, _ := newTestJobService(store)
	ctx := context.Background()

	job, _ := svc.CreateJob(ctx, "https://youtube.com/watch?v=abc", "abc", "youtube", domain.FormatMP3, "192")
	c.InvalidateStatus(ctx, job.ID)

	snap, err := svc.GetStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetStatus after cache invalidation: %v", err)
	}
	if snap.JobID != job.ID {
		t.Errorf("snapshot job id: got %s, want %s", snap.JobID, job.ID)
	}

	// Fallback read repopulates the cache
	if _, ok := c.GetStatus(ctx, job.ID); !ok {
		t.Error("cache not repopulated after store fallback")
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	store := newFakeJobStore()
	svc, _, _ := newTestJobService(store)

	_, err := svc.GetStatus(context.Background(), "job_missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("got %v, want ErrJobNotFound", err)
	}
}

func TestEstimateProcessingTime(t *testing.T) {
	testCases := []struct {
		name     string
		platform string
		format   domain.ConversionFormat
		duration time.Duration
		want     time.Duration
	}{
		{name: "youtube mp3", platform: "youtube", format: domain.FormatMP3, want: 30 * time.Second},
		{name: "youtube mp4", platform: "youtube", format: domain.FormatMP4, want: 60 * time.Second},
		{name: "tiktok mp3 is faster", platform: "tiktok", format: domain.FormatMP3, want: 18 * time.Second},
		{name: "vimeo mp4 is slower", platform: "vimeo", format: domain.FormatMP4, want: 72 * time.Second},
		{name: "duration adds a tenth", platform: "youtube", format: domain.FormatMP3, duration: 10 * time.Minute, want: 30*time.Second + time.Minute},
		{name: "unknown platform uses 1.0", platform: "dailymotion", format: domain.FormatMP4, want: 60 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateProcessingTime(tc.platform, tc.format, tc.duration)
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
