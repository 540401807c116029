// Package notify is the in-process event hub connecting the conversion
// pipeline to push-channel subscribers. Delivery is best-effort and
// at-least-once from the client's perspective: a slow subscriber drops
// events rather than blocking the pipeline, and clients reconcile against
// the status endpoint.
package notify

import (
	"sync"

	"github.com/kaito/tubegrab/internal/domain"
)

// EventType identifies a push-channel frame.
type EventType string

const (
	EventProgress  EventType = "progress_update"
	EventCompleted EventType = "conversion_completed"
	EventFailed    EventType = "conversion_failed"
)

// JobEvent is one status change for one job.
type JobEvent struct {
	Type     EventType              `json:"type"`
	JobID    string                 `json:"jobId"`
	Snapshot *domain.StatusSnapshot `json:"snapshot"`
}

// EventForStatus maps a job status to its event type.
func EventForStatus(status domain.JobStatus) EventType {
	switch status {
	case domain.JobStatusCompleted:
		return EventCompleted
	case domain.JobStatusFailed:
		return EventFailed
	default:
		return EventProgress
	}
}

// Hub fans job events out to per-job subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan JobEvent
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan JobEvent)}
}

// Subscribe registers interest in one job's events. The returned channel is
// buffered; the caller must Unsubscribe when done.
func (h *Hub) Subscribe(jobID string) chan JobEvent {
	ch := make(chan JobEvent, 16)
	h.mu.Lock()
	h.subs[jobID] = append(h.subs[jobID], ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (h *Hub) Unsubscribe(jobID string, ch chan JobEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subs[jobID]
	for i, c := range subs {
		if c == ch {
			h.subs[jobID] = append(subs[:i], subs[i+1:]...)
			close(c)
			break
		}
	}
	if len(h.subs[jobID]) == 0 {
		delete(h.subs, jobID)
	}
}

// Publish delivers an event to every subscriber of the job. Full channels
// are skipped; polling covers the gap. The lock is held across the sends
// so Unsubscribe cannot close a channel mid-fanout; the sends never block.
func (h *Hub) Publish(ev JobEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
