package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/codecollab/server/internal/ai"
	"github.com/codecollab/server/internal/auth"
)

// Options configures the hub's connection handling and rate limiting.
type Options struct {
	MaxMessageSize int64
	SendBuffer     int
	CloseReplaced  bool
	RateLimit      int
	RateWindow     time.Duration
}

// Hub coordinates all live sessions: it owns the connection registry, the
// room multiplexer, the rate limiter, and the streaming relay, and performs
// disconnect cleanup and graceful shutdown.
type Hub struct {
	opts     Options
	registry *Registry
	rooms    *Rooms
	limiter  *RateLimiter
	relay    *Relay
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub using the given generation engine and persistence
// sink.
func NewHub(opts Options, engine ai.Engine, sink ExchangeSink, log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	registry := NewRegistry(opts.CloseReplaced, log)
	rooms := NewRooms(registry)
	limiter := NewRateLimiter(opts.RateLimit, opts.RateWindow)

	return &Hub{
		opts:     opts,
		registry: registry,
		rooms:    rooms,
		limiter:  limiter,
		relay:    NewRelay(engine, sink, limiter, registry, rooms, log),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Limiter exposes the shared rate limiter so the REST AI endpoints draw from
// the same per-user budget as the relay.
func (h *Hub) Limiter() *RateLimiter { return h.limiter }

// RoomMembers returns the current member ids of a room.
func (h *Hub) RoomMembers(room string) []string { return h.rooms.Members(room) }

// ServeDirect runs a direct-mode chat session on the caller's goroutine until
// the connection drops. Prompts are processed sequentially: the next inbound
// frame is not read until the current generation finishes.
func (h *Hub) ServeDirect(conn *websocket.Conn, identity auth.Identity) {
	s := newSession(h.ctx, conn, identity, h.opts.SendBuffer, h.log)
	h.registry.Register(s)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()

	h.wg.Add(1)
	defer h.wg.Done()
	s.readPump(h.opts.MaxMessageSize, func(raw []byte) {
		h.handleDirectFrame(s, raw)
	})

	h.drop(s)
}

// ServeTeam runs a team-mode session in the given room on the caller's
// goroutine until the connection drops.
func (h *Hub) ServeTeam(conn *websocket.Conn, identity auth.Identity, room string) {
	s := newSession(h.ctx, conn, identity, h.opts.SendBuffer, h.log.With().Str("room", room).Logger())
	h.registry.Register(s)
	h.rooms.Join(room, identity.ID)

	h.rooms.Broadcast(room, encode(presenceFrame{
		Type:      typeUserJoined,
		UserID:    identity.ID,
		Username:  identity.Username,
		Timestamp: wireTimestamp(),
	}), identity.ID)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()

	h.wg.Add(1)
	defer h.wg.Done()
	s.readPump(h.opts.MaxMessageSize, func(raw []byte) {
		h.handleTeamFrame(s, room, raw)
	})

	h.drop(s)
}

func (h *Hub) handleDirectFrame(s *Session, raw []byte) {
	var req promptRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.log.Warn().Err(err).Msg("malformed inbound frame")
		h.relay.sendError(s.identity.ID, "Invalid message format")
		return
	}

	mode, err := ai.ParseMode(req.Mode)
	if err != nil {
		h.relay.sendError(s.identity.ID, "Unknown mode: "+req.Mode)
		return
	}

	h.relay.StreamDirect(s, ai.Request{
		Prompt:      req.Prompt,
		Mode:        mode,
		CodeContext: req.CodeContext,
	})
}

func (h *Hub) handleTeamFrame(s *Session, room string, raw []byte) {
	var req roomRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.log.Warn().Err(err).Msg("malformed inbound frame")
		h.relay.sendError(s.identity.ID, "Invalid message format")
		return
	}

	if req.Type == typeAIPrompt {
		mode, err := ai.ParseMode(req.Mode)
		if err != nil {
			h.relay.sendError(s.identity.ID, "Unknown mode: "+req.Mode)
			return
		}
		h.relay.StreamTeam(s, room, ai.Request{
			Prompt:      req.Prompt,
			Mode:        mode,
			CodeContext: req.CodeContext,
		})
		return
	}

	// Plain chat message; the sender does not receive its own echo.
	h.rooms.Broadcast(room, encode(messageFrame{
		Type:      typeMessage,
		UserID:    s.identity.ID,
		Username:  s.identity.Username,
		Content:   req.Content,
		Timestamp: wireTimestamp(),
	}), s.identity.ID)
}

// drop performs disconnect cleanup: deregistration, room removal, relay
// cancellation, then best-effort departure broadcasts. Each step is
// independent; a failure in one never blocks the others.
func (h *Hub) drop(s *Session) {
	removed := h.registry.Unregister(s)
	s.close()

	if !removed {
		// A newer connection for this user owns the mapping and the rooms.
		return
	}

	vacated := h.rooms.LeaveAll(s.identity.ID)
	for _, room := range vacated {
		h.rooms.Broadcast(room, encode(presenceFrame{
			Type:      typeUserLeft,
			UserID:    s.identity.ID,
			Username:  s.identity.Username,
			Timestamp: wireTimestamp(),
		}), s.identity.ID)
	}
}

// Shutdown closes every live session and waits for their pump goroutines to
// finish, or gives up when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("shutting down hub")
	h.cancel()

	for _, s := range h.registry.snapshot() {
		s.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
