package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kaito/tubegrab/internal/logger"
	"github.com/kaito/tubegrab/internal/notify"
	"github.com/kaito/tubegrab/internal/service"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 90 * time.Second
)

// WSHandler upgrades connections for the push channel. One connection can
// subscribe to any number of jobs; events are relayed from the hub until
// the client disconnects.
type WSHandler struct {
	jobs     *service.JobService
	hub      *notify.Hub
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new websocket handler. Origin checks are delegated
// to the CORS layer; the upgrader accepts any origin.
func NewWSHandler(jobs *service.JobService, hub *notify.Hub, log *logger.Logger) *WSHandler {
	return &WSHandler{
		jobs:   jobs,
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// clientFrame is an inbound message from a push-channel client.
type clientFrame struct {
	Type  string `json:"type"`
	JobID string `json:"jobId,omitempty"`
}

// Serve handles GET /ws.
func (h *WSHandler) Serve(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		logger.CtxWarn(ctx, "WebSocket upgrade failed: %v", err)
		return
	}

	sess := &wsSession{
		handler: h,
		conn:    conn,
		subs:    make(map[string]chan notify.JobEvent),
		done:    make(chan struct{}),
	}
	sess.run(ctx)
}

// wsSession is one push-channel connection and its job subscriptions.
type wsSession struct {
	handler *WSHandler
	conn    *websocket.Conn

	writeMu sync.Mutex
	subMu   sync.Mutex
	subs    map[string]chan notify.JobEvent
	done    chan struct{}
}

func (s *wsSession) run(ctx context.Context) {
	defer s.close()

	s.conn.SetReadLimit(4096)
	s.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, context.Canceled) {
				logger.CtxDebug(ctx, "WebSocket read ended: %v", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(wsPongTimeout))

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "subscribe":
			if frame.JobID != "" {
				s.subscribe(ctx, frame.JobID)
			}
		case "unsubscribe":
			if frame.JobID != "" {
				s.unsubscribe(frame.JobID)
			}
		case "ping":
			s.writeJSON(map[string]string{"type": "pong"})
		}
	}
}

// subscribe registers the job with the hub and sends the current snapshot
// so the client does not miss events published before the subscription.
func (s *wsSession) subscribe(ctx context.Context, jobID string) {
	s.subMu.Lock()
	if _, exists := s.subs[jobID]; exists {
		s.subMu.Unlock()
		return
	}
	ch := s.handler.hub.Subscribe(jobID)
	s.subs[jobID] = ch
	s.subMu.Unlock()

	snap, err := s.handler.jobs.GetStatus(ctx, jobID)
	if err == nil {
		s.sendEvent(notify.JobEvent{
			Type:     notify.EventForStatus(snap.Status),
			JobID:    jobID,
			Snapshot: snap,
		})
	} else if errors.Is(err, service.ErrJobNotFound) {
		s.writeJSON(map[string]string{"type": "error", "jobId": jobID, "error": "job not found"})
	}

	go s.pump(ch)
}

func (s *wsSession) unsubscribe(jobID string) {
	s.subMu.Lock()
	ch, ok := s.subs[jobID]
	if ok {
		delete(s.subs, jobID)
	}
	s.subMu.Unlock()
	if ok {
		s.handler.hub.Unsubscribe(jobID, ch)
	}
}

// pump relays hub events for one subscription onto the connection.
func (s *wsSession) pump(ch chan notify.JobEvent) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.sendEvent(ev)
		case <-s.done:
			return
		}
	}
}

func (s *wsSession) sendEvent(ev notify.JobEvent) {
	s.writeJSON(ev)
}

func (s *wsSession) writeJSON(v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	// Write errors surface on the read side as a broken connection
	_ = s.conn.WriteJSON(v)
}

func (s *wsSession) close() {
	close(s.done)
	s.subMu.Lock()
	subs := s.subs
	s.subs = make(map[string]chan notify.JobEvent)
	s.subMu.Unlock()
	for jobID, ch := range subs {
		s.handler.hub.Unsubscribe(jobID, ch)
	}
	s.conn.Close()
}
