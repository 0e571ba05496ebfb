package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MarsStirner/ezekiel/internal/auth"
	"github.com/MarsStirner/ezekiel/internal/locks"
)

const sseRetryInterval = 10 * time.Second

// handleSSE implements the pull-mode StreamingSession: the client is
// parameterized by a single object_id at open time, retries acquiring
// it every 10s until it succeeds, then prolongs on a long_timeout/2
// cadence until disconnect.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	objectID := chi.URLParam(r, "object_id")
	if err := validateObjectID(objectID); err != nil {
		http.Error(w, "invalid object_id", http.StatusBadRequest)
		return
	}

	principal, ok := auth.FromRequest(r, s.auth)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if s.metrics != nil {
		s.metrics.SSEConnections.Inc()
		defer s.metrics.SSEConnections.Dec()
	}
	s.logger.Info("sse session connected", "component", "sse_session", "object_id", objectID, "principal", principal)
	defer s.logger.Info("sse session disconnected", "component", "sse_session", "object_id", objectID, "principal", principal)

	sess := &sseSession{
		server:    s,
		w:         w,
		flusher:   flusher,
		ctx:       r.Context(),
		objectID:  objectID,
		principal: principal,
	}
	sess.run()
}

type sseSession struct {
	server    *Server
	w         http.ResponseWriter
	flusher   http.Flusher
	ctx       context.Context
	objectID  string
	principal string
	lock      *locks.Lock
}

func (s *sseSession) run() {
	defer s.teardown()

	retry := time.NewTicker(sseRetryInterval)
	defer retry.Stop()
	var keepAlive *time.Ticker
	if s.server.cfg.KeepAlive.Enabled {
		keepAlive = time.NewTicker(s.server.cfg.KeepAlive.Interval)
		defer keepAlive.Stop()
	}

	if s.tryAcquire() {
		retry.Stop()
		s.prolongLoop(retry, keepAlive)
		return
	}

	var keepAliveC <-chan time.Time
	if keepAlive != nil {
		keepAliveC = keepAlive.C
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-retry.C:
			if s.tryAcquire() {
				s.prolongLoop(retry, keepAlive)
				return
			}
		case <-keepAliveC:
			s.send("ping", nil)
		}
	}
}

// tryAcquire attempts AcquireExclusive once and reports the outcome as
// an SSE event. It returns true on success.
func (s *sseSession) tryAcquire() bool {
	lock, err := s.server.manager.AcquireExclusive(s.objectID, s.principal)
	if err != nil {
		s.send("rejected", errorPayload(s.objectID, err))
		return false
	}
	s.lock = lock
	s.send("acquired", lockToJSON(lock))
	return true
}

// prolongLoop runs once the lock is held, renewing it every
// long_timeout/2 until the client disconnects or a prolong fails.
func (s *sseSession) prolongLoop(retry *time.Ticker, keepAlive *time.Ticker) {
	period := s.server.manager.LongTimeout() / 2
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var keepAliveC <-chan time.Time
	if keepAlive != nil {
		keepAliveC = keepAlive.C
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			lock, err := s.server.manager.Prolong(s.objectID, s.lock.Token)
			if err != nil {
				s.send("exception", errorPayload(s.objectID, err))
				return
			}
			s.lock = lock
			s.send("prolonged", lockToJSON(lock))
		case <-keepAliveC:
			s.send("ping", nil)
		}
	}
}

func (s *sseSession) send(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("null")
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload)
	s.flusher.Flush()
}

// teardown releases the held lock, if any. A Release error is logged at
// debug level and otherwise ignored.
func (s *sseSession) teardown() {
	if s.lock == nil {
		return
	}
	if _, err := s.server.manager.Release(s.objectID, s.lock.Token); err != nil {
		s.server.logger.Debug("sse teardown release raced", "object_id", s.objectID, "error", err)
	}
}
