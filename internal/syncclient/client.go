package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/kaito/tubegrab/internal/domain"
)

// Client follows jobs over the status sync protocol. It prefers the push
// channel and falls back to fixed-interval polling whenever the channel is
// unavailable; every poll result is reconciled against the push view.
type Client struct {
	baseURL      string
	http         *resty.Client
	dialer       *websocket.Dialer
	pollInterval time.Duration
	maxAttempts  int

	tracker *stateTracker

	mu       sync.Mutex
	pushView *domain.StatusSnapshot
}

// Options tune the client; zero values get defaults.
type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	HTTPTimeout  time.Duration
}

// New creates a sync client against a server base URL such as
// "http://localhost:8080".
func New(baseURL string, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	httpTimeout := opts.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}

	http := resty.New()
	http.SetTimeout(httpTimeout)

	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		http:         http,
		dialer:       websocket.DefaultDialer,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		tracker:      newStateTracker(),
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return c.tracker.get()
}

type statusEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	domain.StatusSnapshot
}

// PollStatus fetches a point-in-time snapshot from the status endpoint.
func (c *Client) PollStatus(ctx context.Context, jobID string) (*domain.StatusSnapshot, error) {
	var env statusEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		Get(fmt.Sprintf("%s/api/v1/status/%s", c.baseURL, jobID))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 || !env.Success {
		return nil, fmt.Errorf("status read failed: HTTP %d %s", resp.StatusCode(), env.Error)
	}
	return &env.StatusSnapshot, nil
}

// subscribeFrame is the first frame sent on the push channel.
type subscribeFrame struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
}

// eventFrame mirrors the server's push events.
type eventFrame struct {
	Type     string                 `json:"type"`
	JobID    string                 `json:"jobId,omitempty"`
	Snapshot *domain.StatusSnapshot `json:"snapshot,omitempty"`
}

func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/ws"
	return u.String(), nil
}

// Watch follows a job until it reaches a terminal state or the context is
// cancelled. onUpdate, when non-nil, is invoked for every reconciled view
// change. The returned snapshot is terminal.
func (c *Client) Watch(ctx context.Context, jobID string, onUpdate func(*domain.StatusSnapshot)) (*domain.StatusSnapshot, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Push channel runs beside the poll loop; it only feeds pushView
	go c.runPushChannel(watchCtx, jobID)

	var lastSeen *domain.StatusSnapshot
	emit := func(snap *domain.StatusSnapshot) {
		if snap == nil {
			return
		}
		if lastSeen != nil && lastSeen.Status == snap.Status && lastSeen.Progress == snap.Progress {
			return
		}
		lastSeen = snap
		if onUpdate != nil {
			onUpdate(snap)
		}
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		// The reconciliation check: fresh poll against the last push view
		poll, err := c.PollStatus(ctx, jobID)
		if err != nil {
			poll = nil
		}
		view := Reconcile(c.getPushView(), poll)
		emit(view)
		if view != nil && view.Status.IsTerminal() {
			c.tracker.disconnected()
			return view, nil
		}

		select {
		case <-ctx.Done():
			c.tracker.disconnected()
			return lastSeen, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) getPushView() *domain.StatusSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushView
}

func (c *Client) setPushView(snap *domain.StatusSnapshot) {
	c.mu.Lock()
	c.pushView = snap
	c.mu.Unlock()
}

// runPushChannel maintains the websocket subscription with capped
// exponential backoff. After exhausting reconnect attempts the channel is
// marked failed and polling carries the watch alone.
func (c *Client) runPushChannel(ctx context.Context, jobID string) {
	wsTarget, err := c.wsURL()
	if err != nil {
		c.tracker.failed(err)
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		c.tracker.connecting()
		start := time.Now()
		conn, _, err := c.dialer.DialContext(ctx, wsTarget, nil)
		if err != nil {
			if !c.backoffOrFail(ctx, err) {
				return
			}
			continue
		}
		c.tracker.connected(time.Since(start))

		err = c.readLoop(ctx, conn, jobID)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		if !c.backoffOrFail(ctx, err) {
			return
		}
	}
}

// backoffOrFail sleeps for the next backoff step; false means attempts are
// exhausted and the channel is permanently failed.
func (c *Client) backoffOrFail(ctx context.Context, cause error) bool {
	attempts := c.tracker.reconnecting(cause)
	if attempts > c.maxAttempts {
		c.tracker.failed(cause)
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(Backoff(attempts)):
		return true
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, jobID string) error {
	if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", JobID: jobID}); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame eventFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Unknown frames are skipped; polling covers any gap
			continue
		}
		switch frame.Type {
		case "progress_update", "conversion_completed", "conversion_failed":
			if frame.Snapshot != nil {
				c.setPushView(frame.Snapshot)
			}
		}
	}
}
