package ws

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrNotConnected reports that the user has no live session.
	ErrNotConnected = errors.New("ws: user not connected")
	// ErrSendBufferFull reports that the frame was dropped because the
	// session's outbound buffer was full.
	ErrSendBufferFull = errors.New("ws: send buffer full")
)

// Registry owns the user-to-session mapping for all live connections.
// Registering a session for a user that already has one replaces the prior
// mapping (last writer wins); the displaced connection is force-closed only
// when the registry was configured to do so.
type Registry struct {
	closeReplaced bool
	log           zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty connection registry.
func NewRegistry(closeReplaced bool, log zerolog.Logger) *Registry {
	return &Registry{
		closeReplaced: closeReplaced,
		log:           log,
		sessions:      make(map[string]*Session),
	}
}

// Register binds the session to its user, replacing any prior session for
// the same user.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	displaced := r.sessions[s.identity.ID]
	r.sessions[s.identity.ID] = s
	count := len(r.sessions)
	r.mu.Unlock()

	if displaced != nil && displaced != s {
		r.log.Info().
			Str("user_id", s.identity.ID).
			Str("session_id", displaced.id).
			Msg("session replaced by newer connection")
		if r.closeReplaced {
			displaced.close()
		}
	}

	r.log.Info().
		Str("user_id", s.identity.ID).
		Str("session_id", s.id).
		Int("connected", count).
		Msg("session registered")
}

// Unregister removes the session's mapping and reports whether it was the
// current one. A session that has already been replaced by a newer connection
// for the same user leaves the newer mapping untouched.
func (r *Registry) Unregister(s *Session) bool {
	r.mu.Lock()
	current, ok := r.sessions[s.identity.ID]
	removed := ok && current == s
	if removed {
		delete(r.sessions, s.identity.ID)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if removed {
		r.log.Info().
			Str("user_id", s.identity.ID).
			Str("session_id", s.id).
			Int("connected", count).
			Msg("session unregistered")
	}
	return removed
}

// Connected reports whether the user currently has a live session.
func (r *Registry) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// Send delivers an encoded frame to the user's session, best effort. It
// never blocks: a missing session yields ErrNotConnected and a full outbound
// buffer drops the frame with ErrSendBufferFull. Neither failure may abort a
// surrounding broadcast.
func (r *Registry) Send(userID string, payload []byte) error {
	r.mu.RLock()
	s := r.sessions[userID]
	r.mu.RUnlock()

	if s == nil {
		return ErrNotConnected
	}
	if !s.enqueue(payload) {
		return ErrSendBufferFull
	}
	return nil
}

// snapshot returns the live sessions at a point in time.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}
