package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/codecollab/server/internal/ai"
)

const persistTimeout = 10 * time.Second

// Exchange is one finished prompt/response pair handed to the persistence
// sink after a stream completes.
type Exchange struct {
	UserID      string
	Prompt      string
	Response    string
	Mode        ai.Mode
	CodeContext string
}

// ExchangeSink persists completed exchanges. A sink failure is independent of
// the relay's state machine.
type ExchangeSink interface {
	SaveExchange(ctx context.Context, ex Exchange) (string, error)
}

// Relay pulls fragments from the generation engine one at a time and forwards
// each to its recipients before the next is pulled, preserving the provider's
// emission order. A completed direct stream is persisted; aborted and failed
// streams are not.
type Relay struct {
	engine   ai.Engine
	sink     ExchangeSink
	limiter  *RateLimiter
	registry *Registry
	rooms    *Rooms
	log      zerolog.Logger
}

// NewRelay wires the relay to its collaborators.
func NewRelay(engine ai.Engine, sink ExchangeSink, limiter *RateLimiter, registry *Registry, rooms *Rooms, log zerolog.Logger) *Relay {
	return &Relay{
		engine:   engine,
		sink:     sink,
		limiter:  limiter,
		registry: registry,
		rooms:    rooms,
		log:      log,
	}
}

func (r *Relay) sendError(userID, message string) {
	_ = r.registry.Send(userID, encode(errorFrame{Type: typeError, Message: message}))
}

// admit validates the request and checks the rate limit. A failure is
// reported to the requester as an error frame and the request never reaches
// the engine.
func (r *Relay) admit(userID string, req ai.Request) bool {
	if req.Prompt == "" {
		r.sendError(userID, "Prompt is required")
		return false
	}
	if req.Mode.RequiresContext() && req.CodeContext == "" {
		r.sendError(userID, fmt.Sprintf("Code context is required for %s mode", req.Mode))
		return false
	}
	if !r.limiter.Admit(userID) {
		r.sendError(userID, fmt.Sprintf("Rate limit exceeded. Remaining: %d", r.limiter.Remaining(userID)))
		return false
	}
	return true
}

// StreamDirect runs one direct-mode generation for the session: start frame,
// one chunk frame per fragment, then completion, persistence, and the saved
// acknowledgement. It returns when the stream completes, fails, or the
// session goes away.
func (r *Relay) StreamDirect(s *Session, req ai.Request) {
	userID := s.identity.ID
	if !r.admit(userID, req) {
		return
	}

	_ = r.registry.Send(userID, encode(statusFrame{Type: typeStart, Message: "Generating response..."}))

	stream, err := r.engine.Stream(s.ctx, req)
	if err != nil {
		r.sendError(userID, "Error generating response: "+err.Error())
		return
	}
	defer func() { _ = stream.Close() }()

	var full strings.Builder
	for stream.Next() {
		fragment := stream.Current()
		full.WriteString(fragment)

		err := r.registry.Send(userID, encode(chunkFrame{Type: typeChunk, Content: fragment}))
		if errors.Is(err, ErrNotConnected) {
			// Recipient is gone: stop pulling, nothing is persisted.
			return
		}
	}

	if s.ctx.Err() != nil {
		// Session disconnected mid-stream; the engine was already cut off
		// through the session context.
		return
	}
	if err := stream.Err(); err != nil {
		r.sendError(userID, "Error generating response: "+err.Error())
		return
	}

	_ = r.registry.Send(userID, encode(statusFrame{Type: typeComplete, Message: "Response complete"}))
	r.persist(s, req, full.String())
}

// persist hands the finished exchange to the sink and acknowledges with a
// chat_saved frame. Sink failures are logged, not surfaced to the client.
func (r *Relay) persist(s *Session, req ai.Request, response string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	exchangeID, err := r.sink.SaveExchange(ctx, Exchange{
		UserID:      s.identity.ID,
		Prompt:      req.Prompt,
		Response:    response,
		Mode:        req.Mode,
		CodeContext: req.CodeContext,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to persist chat exchange")
		return
	}

	_ = r.registry.Send(s.identity.ID, encode(chatSavedFrame{Type: typeChatSaved, ChatID: exchangeID}))
}

// StreamTeam runs one team-mode generation, broadcasting every frame to the
// room. The ai_start frame is not excluded from the requester; the completion
// frame carries the full accumulated response instead of a saved
// acknowledgement.
func (r *Relay) StreamTeam(s *Session, room string, req ai.Request) {
	userID := s.identity.ID
	if !r.admit(userID, req) {
		return
	}

	r.rooms.Broadcast(room, encode(aiStartFrame{
		Type:     typeAIStart,
		UserID:   userID,
		Username: s.identity.Username,
		Prompt:   req.Prompt,
	}), "")

	stream, err := r.engine.Stream(s.ctx, req)
	if err != nil {
		r.sendError(userID, "Error generating response: "+err.Error())
		return
	}
	defer func() { _ = stream.Close() }()

	var full strings.Builder
	for stream.Next() {
		fragment := stream.Current()
		full.WriteString(fragment)

		r.rooms.Broadcast(room, encode(aiChunkFrame{
			Type:    typeAIChunk,
			Content: fragment,
			UserID:  userID,
		}), "")

		if len(r.rooms.Members(room)) == 0 {
			// Everyone left; no recipients remain for further fragments.
			return
		}
	}

	if s.ctx.Err() != nil {
		return
	}
	if err := stream.Err(); err != nil {
		r.sendError(userID, "Error generating response: "+err.Error())
		return
	}

	r.rooms.Broadcast(room, encode(aiCompleteFrame{
		Type:         typeAIComplete,
		UserID:       userID,
		FullResponse: full.String(),
	}), "")
}
