package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/kaito/tubegrab/internal/domain"
)

func event(jobID string, progress int) JobEvent {
	return JobEvent{
		Type:  EventProgress,
		JobID: jobID,
		Snapshot: &domain.StatusSnapshot{
			JobID:    jobID,
			Status:   domain.JobStatusProcessing,
			Progress: progress,
		},
	}
}

func TestHubDeliversToJobSubscribers(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Subscribe("job_a")
	ch2 := hub.Subscribe("job_a")
	other := hub.Subscribe("job_b")
	defer hub.Unsubscribe("job_a", ch1)
	defer hub.Unsubscribe("job_a", ch2)
	defer hub.Unsubscribe("job_b", other)

	hub.Publish(event("job_a", 40))

	for i, ch := range []chan JobEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.JobID != "job_a" || ev.Snapshot.Progress != 40 {
				t.Errorf("subscriber %d: got %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}

	select {
	case ev := <-other:
		t.Errorf("job_b subscriber received job_a event: %+v", ev)
	default:
	}
}

func TestHubDropsEventsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("job_a")
	defer hub.Unsubscribe("job_a", ch)

	// Fill the buffer and keep publishing; Publish must never block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(event("job_a", i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("job_a")
	hub.Unsubscribe("job_a", ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// Publishing to a job with no subscribers is a no-op
	hub.Publish(event("job_a", 10))

	// Double unsubscribe must not panic
	hub.Unsubscribe("job_a", ch)
}

func TestHubPublishDuringChurn(t *testing.T) {
	hub := NewHub()

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// Publisher loop racing against subscriber churn; a send on a channel
	// closed by Unsubscribe would panic here.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				hub.Publish(event("job_a", i%100))
			}
		}
	}()

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					ch := hub.Subscribe("job_a")
					select {
					case <-ch:
					default:
					}
					hub.Unsubscribe("job_a", ch)
				}
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestEventForStatus(t *testing.T) {
	testCases := []struct {
		status domain.JobStatus
		want   EventType
	}{
		{domain.JobStatusQueued, EventProgress},
		{domain.JobStatusProcessing, EventProgress},
		{domain.JobStatusCompleted, EventCompleted},
		{domain.JobStatusFailed, EventFailed},
	}
	for _, tc := range testCases {
		if got := EventForStatus(tc.status); got != tc.want {
			t.Errorf("EventForStatus(%s): got %s, want %s", tc.status, got, tc.want)
		}
	}
}
