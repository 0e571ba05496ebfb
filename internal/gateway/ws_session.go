package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MarsStirner/ezekiel/internal/auth"
	"github.com/MarsStirner/ezekiel/internal/locks"
)

const (
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 64
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsSession is one push-mode StreamingSession: a bidirectional
// WebSocket connection that owns a set of locks and a waiter set,
// retries waiting acquisitions on released events, and pings every 30s.
type wsSession struct {
	id        string
	server    *Server
	conn      *websocket.Conn
	send      chan outboundFrame
	ctx       context.Context
	cancel    context.CancelFunc
	owned     *ownedLocks
	principal string
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromRequest(r, s.auth)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &wsSession{
		id:        uuid.NewString(),
		server:    s,
		conn:      conn,
		send:      make(chan outboundFrame, wsSendBuffer),
		ctx:       ctx,
		cancel:    cancel,
		owned:     newOwnedLocks(),
		principal: principal,
	}
	sess.run()
}

func (s *wsSession) run() {
	if s.server.metrics != nil {
		s.server.metrics.WSConnections.Inc()
	}
	s.server.logger.Info("ws session connected", "component", "ws_session", "session_id", s.id, "principal", s.principal)

	releases, unsubscribe := s.server.manager.SubscribeReleased()
	defer unsubscribe()

	go s.writeLoop()
	go s.pingLoop()
	go s.retryLoop(releases)

	s.readLoop()
	s.teardown()
}

func (s *wsSession) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.enqueue(outboundFrame{Event: "exception", Data: map[string]string{"message": "malformed frame"}})
			continue
		}
		s.handleCommand(frame)
	}
}

func (s *wsSession) handleCommand(frame inboundFrame) {
	switch frame.Command {
	case "acquire":
		lock, err := s.server.manager.AcquireExclusive(frame.ObjectID, s.principal)
		if err != nil {
			s.owned.wait(frame.ObjectID)
			s.enqueue(outboundFrame{Event: "rejected", Data: errorPayload(frame.ObjectID, err)})
			return
		}
		s.owned.add(lock)
		s.enqueue(outboundFrame{Event: "acquired", Data: lockToJSON(lock)})

	case "release":
		s.owned.stopWaiting(frame.ObjectID)
		token, terr := locks.ParseToken(frame.Token)
		if terr != nil {
			s.enqueue(outboundFrame{Event: "exception", Data: notFoundToJSON(&locks.NotFoundError{ObjectID: frame.ObjectID})})
			return
		}
		lock, err := s.server.manager.Release(frame.ObjectID, token)
		if err != nil {
			s.enqueue(outboundFrame{Event: "exception", Data: errorPayload(frame.ObjectID, err)})
			return
		}
		_ = lock
		s.enqueue(outboundFrame{Event: "released", Data: releasedJSON{Success: true, ObjectID: frame.ObjectID}})

	case "prolong":
		token, terr := locks.ParseToken(frame.Token)
		if terr != nil {
			s.enqueue(outboundFrame{Event: "exception", Data: notFoundToJSON(&locks.NotFoundError{ObjectID: frame.ObjectID})})
			return
		}
		lock, err := s.server.manager.Prolong(frame.ObjectID, token)
		if err != nil {
			s.enqueue(outboundFrame{Event: "exception", Data: errorPayload(frame.ObjectID, err)})
			return
		}
		s.enqueue(outboundFrame{Event: "prolonged", Data: lockToJSON(lock)})

	default:
		s.enqueue(outboundFrame{Event: "exception", Data: map[string]string{"message": "unknown command"}})
	}
}

// retryLoop re-attempts AcquireExclusive for any object_id this
// session is waiting on whenever that object's lock is released.
func (s *wsSession) retryLoop(releases <-chan *locks.Lock) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case released, ok := <-releases:
			if !ok {
				return
			}
			if !s.owned.isWaiting(released.ObjectID) {
				continue
			}
			lock, err := s.server.manager.AcquireExclusive(released.ObjectID, s.principal)
			if err != nil {
				s.enqueue(outboundFrame{Event: "rejected", Data: errorPayload(released.ObjectID, err)})
				continue
			}
			s.owned.add(lock)
			s.enqueue(outboundFrame{Event: "acquired", Data: lockToJSON(lock)})
		}
	}
}

func (s *wsSession) pingLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(outboundFrame{Event: "ping"})
		}
	}
}

func (s *wsSession) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case frame, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				s.cancel()
				return
			}
		}
	}
}

func (s *wsSession) enqueue(frame outboundFrame) {
	select {
	case s.send <- frame:
	default:
		s.server.logger.Warn("ws session send buffer full, dropping frame", "session_id", s.id, "event", frame.Event)
	}
}

// teardown stops timers, unsubscribes (handled by caller's defer), and
// releases every lock this session owns. A Release error is logged at
// debug level and otherwise ignored.
func (s *wsSession) teardown() {
	s.cancel()
	for _, lock := range s.owned.snapshot() {
		_, err := s.server.manager.Release(lock.ObjectID, lock.Token)
		if err != nil {
			s.server.logger.Debug("ws teardown release raced", "object_id", lock.ObjectID, "error", err)
		}
	}
	s.owned.clear()
	_ = s.conn.Close()
	if s.server.metrics != nil {
		s.server.metrics.WSConnections.Dec()
	}
	s.server.logger.Info("ws session disconnected", "component", "ws_session", "session_id", s.id)
}
