package service

import (
	"context"
	"testing"
	"time"

	"github.com/kaito/tubegrab/internal/domain"
)

func TestCalculateJobPriority(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name string
		job  domain.ConversionJob
		want int
	}{
		{
			name: "fresh mp4 no platform boost",
			job:  domain.ConversionJob{Format: domain.FormatMP4, Platform: "vimeo", CreatedAt: now},
			want: 100,
		},
		{
			name: "mp3 gets audio boost",
			job:  domain.ConversionJob{Format: domain.FormatMP3, Platform: "vimeo", CreatedAt: now},
			want: 120,
		},
		{
			name: "two hours of age",
			job:  domain.ConversionJob{Format: domain.FormatMP4, Platform: "vimeo", CreatedAt: now.Add(-2 * time.Hour)},
			want: 110,
		},
		{
			name: "age boost caps at 50",
			job:  domain.ConversionJob{Format: domain.FormatMP4, Platform: "vimeo", CreatedAt: now.Add(-48 * time.Hour)},
			want: 150,
		},
		{
			name: "tiktok platform boost",
			job:  domain.ConversionJob{Format: domain.FormatMP4, Platform: "tiktok", CreatedAt: now},
			want: 105,
		},
		{
			name: "everything stacks",
			job:  domain.ConversionJob{Format: domain.FormatMP3, Platform: "youtube", CreatedAt: now.Add(-48 * time.Hour)},
			want: 173,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateJobPriority(&tc.job, now)
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestGetNextJobsOrdering(t *testing.T) {
	store := newFakeJobStore()
	jobSvc, _, _ := newTestJobService(store)
	queue := NewQueueService(store, jobSvc, testLogger(), &QueueServiceConfig{})
	ctx := context.Background()
	now := time.Now()

	// Same priority tier: oldest first
	store.put(&domain.ConversionJob{ID: "old_mp4", Status: domain.JobStatusQueued, Format: domain.FormatMP4, Platform: "vimeo", CreatedAt: now.Add(-10 * time.Minute)})
	store.put(&domain.ConversionJob{ID: "new_mp4", Status: domain.JobStatusQueued, Format: domain.FormatMP4, Platform: "vimeo", CreatedAt: now})
	// Higher tier beats age
	store.put(&domain.ConversionJob{ID: "new_mp3", Status: domain.JobStatusQueued, Format: domain.FormatMP3, Platform: "vimeo", CreatedAt: now})
	// Non-queued jobs never appear
	store.put(&domain.ConversionJob{ID: "busy", Status: domain.JobStatusProcessing, Format: domain.FormatMP3, Platform: "vimeo", CreatedAt: now.Add(-time.Hour)})

	jobs, err := queue.GetNextJobs(ctx, 0)
	if err != nil {
		t.Fatalf("GetNextJobs returned error: %v", err)
	}

	want := []string{"new_mp3", "old_mp4", "new_mp4"}
	if len(jobs) != len(want) {
		t.Fatalf("got %d jobs, want %d", len(jobs), len(want))
	}
	for i, id := range want {
		if jobs[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, jobs[i].ID, id)
		}
	}
}

func TestGetJobQueuePosition(t *testing.T) {
	store := newFakeJobStore()
	jobSvc, _, _ := newTestJobService(store)
	queue := NewQueueService(store, jobSvc, testLogger(), &QueueServiceConfig{})
	ctx := context.Background()
	now := time.Now()

	store.put(&domain.ConversionJob{ID: "first", Status: domain.JobStatusQueued, Format: domain.FormatMP3, Platform: "vimeo", CreatedAt: now.Add(-time.Minute)})
	store.put(&domain.ConversionJob{ID: "second", Status: domain.JobStatusQueued, Format: domain.FormatMP4, Platform: "vimeo", CreatedAt: now})

	pos, err := queue.GetJobQueuePosition(ctx, "second")
	if err != nil {
		t.Fatalf("GetJobQueuePosition returned error: %v", err)
	}
	if pos != 1 {
		t.Errorf("position: got %d, want 1", pos)
	}

	// Processing jobs report position 0
	store.put(&domain.ConversionJob{ID: "busy", Status: domain.JobStatusProcessing, CreatedAt: now})
	pos, err = queue.GetJobQueuePosition(ctx, "busy")
	if err != nil || pos != 0 {
		t.Errorf("processing job: got (%d, %v), want (0, nil)", pos, err)
	}
}

func TestHandleTimeoutJobs(t *testing.T) {
	store := newFakeJobStore()
	jobSvc, _, _ := newTestJobService(store)
	queue := NewQueueService(store, jobSvc, testLogger(), &QueueServiceConfig{JobTimeout: 10 * time.Minute})
	ctx := context.Background()
	now := time.Now()

	store.put(&domain.ConversionJob{ID: "stale", Status: domain.JobStatusProcessing, UpdatedAt: now.Add(-20 * time.Minute)})
	store.put(&domain.ConversionJob{ID: "active", Status: domain.JobStatusProcessing, UpdatedAt: now.Add(-time.Minute)})
	store.put(&domain.ConversionJob{ID: "waiting", Status: domain.JobStatusQueued, UpdatedAt: now.Add(-20 * time.Minute)})

	n, err := queue.HandleTimeoutJobs(ctx)
	if err != nil {
		t.Fatalf("HandleTimeoutJobs returned error: %v", err)
	}
	if n != 1 {
		t.Errorf("timed out count: got %d, want 1", n)
	}

	stale, _ := store.GetByID(ctx, "stale")
	if stale.Status != domain.JobStatusFailed {
		t.Errorf("stale job status: got %s, want failed", stale.Status)
	}
	if stale.ErrorMessage == "" {
		t.Error("stale job has no error message")
	}

	active, _ := store.GetByID(ctx, "active")
	if active.Status != domain.JobStatusProcessing {
		t.Errorf("active job status: got %s, want processing", active.Status)
	}
	waiting, _ := store.GetByID(ctx, "waiting")
	if waiting.Status != domain.JobStatusQueued {
		t.Errorf("queued job status: got %s, want queued", waiting.Status)
	}
}

func TestCleanupOldJobs(t *testing.T) {
	store := newFakeJobStore()
	jobSvc, _, _ := newTestJobService(store)
	queue := NewQueueService(store, jobSvc, testLogger(), &QueueServiceConfig{})
	ctx := context.Background()
	now := time.Now()

	store.put(&domain.ConversionJob{ID: "old_done", Status: domain.JobStatusCompleted, UpdatedAt: now.Add(-48 * time.Hour)})
	store.put(&domain.ConversionJob{ID: "old_failed", Status: domain.JobStatusFailed, UpdatedAt: now.Add(-48 * time.Hour)})
	store.put(&domain.ConversionJob{ID: "recent_done", Status: domain.JobStatusCompleted, UpdatedAt: now.Add(-time.Hour)})
	store.put(&domain.ConversionJob{ID: "old_queued", Status: domain.JobStatusQueued, UpdatedAt: now.Add(-48 * time.Hour)})

	deleted, err := queue.CleanupOldJobs(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupOldJobs returned error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted count: got %d, want 2", deleted)
	}

	for _, id := range []string{"recent_done", "old_queued"} {
		if _, err := store.GetByID(ctx, id); err != nil {
			t.Errorf("job %s should have survived: %v", id, err)
		}
	}
	for _, id := range []string{"old_done", "old_failed"} {
		if _, err := store.GetByID(ctx, id); err == nil {
			t.Errorf("job %s should have been deleted", id)
		}
	}
}

func TestGetQueueStats(t *testing.T) {
	store := newFakeJobStore()
	jobSvc, _, _ := newTestJobService(store)
	queue := NewQueueService(store, jobSvc, testLogger(), &QueueServiceConfig{StatsWindow: 24 * time.Hour})
	ctx := context.Background()
	now := time.Now()

	store.put(&domain.ConversionJob{ID: "q1", Status: domain.JobStatusQueued, UpdatedAt: now})
	store.put(&domain.ConversionJob{ID: "q2", Status: domain.JobStatusQueued, UpdatedAt: now})
	store.put(&domain.ConversionJob{ID: "p1", Status: domain.JobStatusProcessing, UpdatedAt: now})
	store.put(&domain.ConversionJob{ID: "c1", Status: domain.JobStatusCompleted, CreatedAt: now.Add(-90 * time.Second), UpdatedAt: now})
	store.put(&domain.ConversionJob{ID: "ancient", Status: domain.JobStatusCompleted, UpdatedAt: now.Add(-48 * time.Hour)})

	stats, err := queue.GetQueueStats(ctx)
	if err != nil {
		t.Fatalf("GetQueueStats returned error: %v", err)
	}

	if stats.Queued != 2 || stats.Processing != 1 || stats.Completed != 1 || stats.Failed != 0 {
		t.Errorf("counts: got %+v", stats)
	}
	if stats.AvgCompletionSeconds < 89 || stats.AvgCompletionSeconds > 91 {
		t.Errorf("avg completion: got %.1f, want ~90", stats.AvgCompletionSeconds)
	}
}
