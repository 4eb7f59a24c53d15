package ws

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySendDelivers(t *testing.T) {
	r := NewRegistry(false, zerolog.Nop())
	s := newTestSession("u1", "alice")
	r.Register(s)

	require.NoError(t, r.Send("u1", []byte(`{"type":"start"}`)))
	frame := recvFrame(t, s)
	assert.Equal(t, "start", frame["type"])
}

func TestRegistrySendNotConnected(t *testing.T) {
	r := NewRegistry(false, zerolog.Nop())

	err := r.Send("nobody", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRegistryReplaceIsLastWriterWins(t *testing.T) {
	r := NewRegistry(false, zerolog.Nop())
	old := newTestSession("u1", "alice")
	newer := newTestSession("u1", "alice")

	r.Register(old)
	r.Register(newer)

	require.NoError(t, r.Send("u1", []byte(`{"type":"x"}`)))
	recvFrame(t, newer)
	assertNoFrame(t, old)

	// Replaced connections are left open unless configured otherwise.
	assert.NoError(t, old.ctx.Err())
}

func TestRegistryCloseReplaced(t *testing.T) {
	r := NewRegistry(true, zerolog.Nop())
	old := newTestSession("u1", "alice")
	newer := newTestSession("u1", "alice")

	r.Register(old)
	r.Register(newer)

	assert.Error(t, old.ctx.Err(), "displaced session must be closed")
	assert.NoError(t, newer.ctx.Err())
}

func TestRegistryUnregisterStaleSessionKeepsCurrent(t *testing.T) {
	r := NewRegistry(false, zerolog.Nop())
	old := newTestSession("u1", "alice")
	newer := newTestSession("u1", "alice")

	r.Register(old)
	r.Register(newer)

	// The displaced session's cleanup must not evict the live one.
	assert.False(t, r.Unregister(old))
	assert.True(t, r.Connected("u1"))

	assert.True(t, r.Unregister(newer))
	assert.False(t, r.Connected("u1"))
}

func TestRegistrySendToClosedSession(t *testing.T) {
	r := NewRegistry(false, zerolog.Nop())
	s := newTestSession("u1", "alice")
	r.Register(s)
	s.close()

	err := r.Send("u1", []byte(`{}`))
	assert.ErrorIs(t, err, ErrSendBufferFull)
}
