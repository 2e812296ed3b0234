package transport

import (
	"testing"
	"time"

	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/sessions"
	"github.com/globed-io/central/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSessionJoin_RequiresAuthentication(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)
	go c.writePump()

	err := s.handleSessionJoin(c, &wire.SessionJoin{})
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestHandleSessionJoin_RejectsMismatchedRoom(t *testing.T) {
	s := newTestServer()
	c := newTestClient(s, 1, "alice", roles.Computed{})
	c.setRoomID(1)

	id := sessions.ID{ServerID: 7, LevelID: 42, Uniq: 1}
	err := s.handleSessionJoin(c, &wire.SessionJoin{AccountID: 1, RoomID: 2, ServerID: 7, SessionID: sessions.Pack(id)})
	assert.ErrorIs(t, err, sessions.ErrRoomMismatch)
}

func TestHandleSessionJoin_RejectsInactiveShard(t *testing.T) {
	s := newTestServer()
	c := newTestClient(s, 1, "alice", roles.Computed{})

	id := sessions.ID{ServerID: 7, LevelID: 42, Uniq: 1}
	err := s.handleSessionJoin(c, &wire.SessionJoin{AccountID: 1, RoomID: 0, ServerID: 7, SessionID: sessions.Pack(id)})
	assert.ErrorIs(t, err, sessions.ErrServerMismatch)
}

func TestHandleSessionJoin_TracksSessionAndReplacesPrevious(t *testing.T) {
	s := newTestServer()
	c := newTestClient(s, 1, "alice", roles.Computed{})

	shard, err := s.Fleet.Register("shard-1", "Shard One", "us", "127.0.0.1:5000")
	require.NoError(t, err)

	first := sessions.ID{ServerID: shard.ID, LevelID: 1, Uniq: 1}
	second := sessions.ID{ServerID: shard.ID, LevelID: 2, Uniq: 1}

	require.NoError(t, s.handleSessionJoin(c, &wire.SessionJoin{AccountID: 1, RoomID: 0, ServerID: shard.ID, SessionID: sessions.Pack(first)}))
	assert.Equal(t, 1, s.Sessions.Count(first))

	require.NoError(t, s.handleSessionJoin(c, &wire.SessionJoin{AccountID: 1, RoomID: 0, ServerID: shard.ID, SessionID: sessions.Pack(second)}))
	assert.Equal(t, 0, s.Sessions.Count(first))
	assert.Equal(t, 1, s.Sessions.Count(second))
	assert.Equal(t, sessions.Pack(second), c.SessionID())
}

func TestHandleSessionLeave_RequiresAuthentication(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)
	go c.writePump()

	err := s.handleSessionLeave(c, &wire.SessionLeave{})
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestHandleSessionLeave_ClearsJoinedSession(t *testing.T) {
	s := newTestServer()
	c := newTestClient(s, 1, "alice", roles.Computed{})

	shard, err := s.Fleet.Register("shard-1", "Shard One", "us", "127.0.0.1:5000")
	require.NoError(t, err)
	id := sessions.ID{ServerID: shard.ID, LevelID: 1, Uniq: 1}
	require.NoError(t, s.handleSessionJoin(c, &wire.SessionJoin{AccountID: 1, RoomID: 0, ServerID: shard.ID, SessionID: sessions.Pack(id)}))

	require.NoError(t, s.handleSessionLeave(c, &wire.SessionLeave{AccountID: 1, SessionID: sessions.Pack(id)}))
	assert.Equal(t, uint64(0), c.SessionID())
	assert.Equal(t, 0, s.Sessions.Count(id))
}

func TestHandleSessionWarp_RequiresAuthentication(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)
	go c.writePump()

	err := s.handleSessionWarp(c, &wire.SessionWarp{})
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestHandleSessionWarp_BroadcastsToOtherRoomMembersWhenOwner(t *testing.T) {
	s := newTestServer()
	owner := newTestClient(s, 1, "owner", roles.Computed{})
	other := newTestClient(s, 2, "watcher", roles.Computed{})

	room, err := s.Rooms.Create("Lobby", 0, 1)
	require.NoError(t, err)
	_, err = room.Join(1, "owner", 8)
	require.NoError(t, err)
	_, err = room.Join(2, "watcher", 8)
	require.NoError(t, err)
	owner.setRoomID(room.ID)
	other.setRoomID(room.ID)
	s.Clients.Insert(2, "watcher", other)

	otherConn := other.conn.(*fakeConn)

	require.NoError(t, s.handleSessionWarp(owner, &wire.SessionWarp{NewSessionID: 77}))

	require.Eventually(t, func() bool {
		return len(otherConn.writtenFrames()) == 1
	}, time.Second, 5*time.Millisecond)

	decoded, err := wire.DecodeFrame(otherConn.writtenFrames()[0])
	require.NoError(t, err)
	warp, ok := decoded.(*wire.SessionWarp)
	require.True(t, ok)
	assert.Equal(t, int32(1), warp.AccountID)
	assert.Equal(t, uint64(77), warp.NewSessionID)
}

func TestHandleSessionWarp_DoesNothingWhenNotOwner(t *testing.T) {
	s := newTestServer()
	owner := newTestClient(s, 1, "owner", roles.Computed{})
	other := newTestClient(s, 2, "watcher", roles.Computed{})

	room, err := s.Rooms.Create("Lobby", 0, 1)
	require.NoError(t, err)
	_, err = room.Join(1, "owner", 8)
	require.NoError(t, err)
	_, err = room.Join(2, "watcher", 8)
	require.NoError(t, err)
	owner.setRoomID(room.ID)
	other.setRoomID(room.ID)

	require.NoError(t, s.handleSessionWarp(other, &wire.SessionWarp{NewSessionID: 77}))

	otherConn := owner.conn.(*fakeConn)
	assert.Empty(t, otherConn.writtenFrames())
}
