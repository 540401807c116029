// Package syncclient implements the client half of the status sync
// protocol: a websocket push channel with a polling fallback, an explicit
// reconnection state machine, and a reconciliation rule that treats the
// polled snapshot as ground truth on conflict.
package syncclient

import (
	"sync"
	"time"
)

// ConnectionStatus is the client-side view of the push channel.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusFailed       ConnectionStatus = "failed"
)

// ConnectionState is client-side bookkeeping over the push channel. It is
// never persisted server-side.
type ConnectionState struct {
	Status            ConnectionStatus `json:"status"`
	Latency           time.Duration    `json:"latency"`
	ReconnectAttempts int              `json:"reconnectAttempts"`
	LastError         string           `json:"lastError,omitempty"`
	LastConnected     time.Time        `json:"lastConnected,omitempty"`
}

// stateTracker guards ConnectionState for concurrent readers.
type stateTracker struct {
	mu    sync.RWMutex
	state ConnectionState
}

func newStateTracker() *stateTracker {
	return &stateTracker{state: ConnectionState{Status: StatusDisconnected}}
}

func (t *stateTracker) get() ConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *stateTracker) connecting() {
	t.mu.Lock()
	t.state.Status = StatusConnecting
	t.mu.Unlock()
}

func (t *stateTracker) connected(latency time.Duration) {
	t.mu.Lock()
	t.state.Status = StatusConnected
	t.state.Latency = latency
	t.state.ReconnectAttempts = 0
	t.state.LastError = ""
	t.state.LastConnected = time.Now()
	t.mu.Unlock()
}

func (t *stateTracker) reconnecting(err error) int {
	t.mu.Lock()
	t.state.Status = StatusReconnecting
	t.state.ReconnectAttempts++
	if err != nil {
		t.state.LastError = err.Error()
	}
	attempts := t.state.ReconnectAttempts
	t.mu.Unlock()
	return attempts
}

func (t *stateTracker) failed(err error) {
	t.mu.Lock()
	t.state.Status = StatusFailed
	if err != nil {
		t.state.LastError = err.Error()
	}
	t.mu.Unlock()
}

func (t *stateTracker) disconnected() {
	t.mu.Lock()
	t.state.Status = StatusDisconnected
	t.mu.Unlock()
}

// Backoff returns the reconnection delay before the given attempt:
// capped exponential starting at half a second.
func Backoff(attempt int) time.Duration {
	const (
		base     = 500 * time.Millisecond
		maxDelay = 30 * time.Second
	)
	if attempt < 1 {
		return base
	}
	d := base << uint(attempt-1)
	if d <= 0 || d > maxDelay {
		return maxDelay
	}
	return d
}
