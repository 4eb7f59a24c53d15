package ws

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/codecollab/server/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Session is one live WebSocket connection bound to an authenticated
// identity. The identity is immutable for the session's lifetime. Outbound
// frames pass through a buffered channel drained by the write pump, so
// senders never block on a slow socket.
type Session struct {
	id       string
	identity auth.Identity
	conn     *websocket.Conn
	send     chan []byte
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func newSession(parent context.Context, conn *websocket.Conn, identity auth.Identity, sendBuffer int, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	return &Session{
		id:       id,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		log: log.With().
			Str("session_id", id).
			Str("user_id", identity.ID).
			Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Identity returns the immutable identity bound at authentication time.
func (s *Session) Identity() auth.Identity { return s.identity }

// Context is canceled when the session ends; in-flight generation work for
// the session hangs off it.
func (s *Session) Context() context.Context { return s.ctx }

// enqueue queues an encoded frame for delivery without blocking. It reports
// false when the session is closed or its buffer is full.
func (s *Session) enqueue(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// close tears the session down: no further enqueues succeed, the write pump
// drains and exits, and any in-flight work on the session context is
// canceled. Safe to call more than once.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.send)
		s.cancel()

		if s.conn != nil {
			if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
				s.log.Debug().Err(err).Msg("error closing connection")
			}
		}
	})
}

// readPump consumes inbound frames and hands them to the handler until the
// connection drops. It runs on the connection's own goroutine.
func (s *Session) readPump(maxMessageSize int64, handle func(raw []byte)) {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.log.Debug().Err(err).Msg("error setting read deadline")
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadExit(err)
			return
		}
		handle(raw)
	}
}

func (s *Session) logReadExit(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		s.log.Warn().Msg("inbound frame exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		s.log.Info().Msg("session disconnected")
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		s.log.Info().Msg("connection closed")
	default:
		s.log.Warn().Err(err).Msg("websocket read error")
	}
}

// writePump drains the send channel onto the socket and keeps the connection
// alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Session closed; tell the peer before hanging up.
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					s.log.Debug().Err(err).Msg("write failed")
				}
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
