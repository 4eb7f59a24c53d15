package ws

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/codecollab/server/internal/ai"
	"github.com/codecollab/server/internal/auth"
)

// fakeStream plays back scripted fragments and can fail mid-stream.
type fakeStream struct {
	fragments []string
	failAfter int // fail after this many fragments; -1 means never
	failErr   error

	onPull func(pull int)

	idx    int
	pulls  int
	cur    string
	closed bool
}

func newFakeStream(fragments ...string) *fakeStream {
	return &fakeStream{fragments: fragments, failAfter: -1}
}

func (s *fakeStream) Next() bool {
	if s.failAfter >= 0 && s.idx >= s.failAfter {
		return false
	}
	if s.idx >= len(s.fragments) {
		return false
	}
	s.pulls++
	s.cur = s.fragments[s.idx]
	s.idx++
	if s.onPull != nil {
		s.onPull(s.pulls)
	}
	return true
}

func (s *fakeStream) Current() string { return s.cur }

func (s *fakeStream) Err() error {
	if s.failAfter >= 0 && s.idx >= s.failAfter {
		return s.failErr
	}
	return nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeEngine hands out a single scripted stream.
type fakeEngine struct {
	stream    *fakeStream
	streamErr error
}

func (e *fakeEngine) Complete(_ context.Context, _ ai.Request) (string, error) {
	if e.streamErr != nil {
		return "", e.streamErr
	}
	return strings.Join(e.stream.fragments, ""), nil
}

func (e *fakeEngine) Stream(_ context.Context, _ ai.Request) (ai.TokenStream, error) {
	if e.streamErr != nil {
		return nil, e.streamErr
	}
	return e.stream, nil
}

// fakeSink records persisted exchanges.
type fakeSink struct {
	exchanges []Exchange
	id        string
	err       error
}

func (s *fakeSink) SaveExchange(_ context.Context, ex Exchange) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.exchanges = append(s.exchanges, ex)
	return s.id, nil
}

func newTestHub(engine ai.Engine, sink ExchangeSink) *Hub {
	return NewHub(Options{
		MaxMessageSize: 1024,
		SendBuffer:     16,
		RateLimit:      100,
		RateWindow:     time.Minute,
	}, engine, sink, zerolog.Nop())
}

// newTestSession builds a session without a real socket; outbound frames are
// observed on its send channel.
func newTestSession(userID, username string) *Session {
	return newSession(context.Background(), nil, auth.Identity{ID: userID, Username: username}, 16, zerolog.Nop())
}

// recvFrame pops the next queued outbound frame.
func recvFrame(t *testing.T, s *Session) map[string]any {
	t.Helper()
	select {
	case raw := <-s.send:
		var frame map[string]any
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("malformed frame %q: %v", raw, err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

// assertNoFrame asserts the session has nothing queued.
func assertNoFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case raw := <-s.send:
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}
