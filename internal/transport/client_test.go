package transport

import (
	"testing"
	"time"

	"github.com/globed-io/central/internal/roles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SetIdentityMarksAuthenticated(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)

	assert.False(t, c.Authenticated())
	c.setIdentity(1, 1, "alice", "admin", roles.Computed{})
	assert.True(t, c.Authenticated())
	assert.Equal(t, int32(1), c.AccountID())
	assert.Equal(t, "alice", c.Username())
}

func TestClient_SetRoomIDAndSessionIDRoundTrip(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)

	c.setRoomID(42)
	assert.Equal(t, uint32(42), c.RoomID())

	c.setSessionID(99)
	assert.Equal(t, uint64(99), c.SessionID())
}

func TestClient_SetMutedRoundTrip(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)

	assert.False(t, c.Muted())
	c.setMuted(true)
	assert.True(t, c.Muted())
}

func TestClient_EnqueueDeliversThroughWritePump(t *testing.T) {
	s := newTestServer()
	conn := newFakeConn()
	c := newClient(conn, s)
	go c.writePump()

	c.enqueue([]byte("hello"))

	require.Eventually(t, func() bool {
		return len(conn.writtenFrames()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []byte("hello"), conn.writtenFrames()[0])
	c.disconnect()
}

func TestClient_EnqueueAfterDisconnectIsDropped(t *testing.T) {
	s := newTestServer()
	conn := newFakeConn()
	c := newClient(conn, s)
	go c.writePump()
	c.disconnect()

	require.Eventually(t, func() bool {
		return conn.isClosed()
	}, time.Second, 5*time.Millisecond)

	c.enqueue([]byte("too late"))
	assert.Empty(t, conn.writtenFrames())
}

func TestClient_DisconnectIsIdempotent(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)
	go c.writePump()

	assert.NotPanics(t, func() {
		c.disconnect()
		c.disconnect()
	})
}

func TestClient_OnDisconnectRemovesUnauthenticatedClientWithoutPanicking(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)
	go c.writePump()

	assert.NotPanics(t, func() {
		c.onDisconnect()
	})
}

func TestClient_OnDisconnectClearsRoomAndRegistryMembership(t *testing.T) {
	s := newTestServer()
	c := newTestClient(s, 7, "gina", roles.Computed{})

	room, err := s.Rooms.Create("gina's Room", 0, 1)
	require.NoError(t, err)
	_, err = room.Join(7, "gina", 8)
	require.NoError(t, err)
	c.setRoomID(room.ID)
	s.Clients.Insert(7, "gina", c)

	c.onDisconnect()

	_, ok := s.Clients.GetByAccount(7)
	assert.False(t, ok)
	assert.Equal(t, 0, room.PlayerCount())
}
