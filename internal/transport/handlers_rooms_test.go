package transport

import (
	"testing"
	"time"

	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/wire"
	"github.com/globed-io/central/internal/wordfilter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(s *Server, accountID int32, username string, computed roles.Computed) *Client {
	c := newClient(newFakeConn(), s)
	go c.writePump()
	c.setIdentity(accountID, accountID, username, "", computed)
	return c
}

func TestResolveRoomName_NoCapabilityFallsBackToDefaultName(t *testing.T) {
	s := newTestServer()
	c := newTestClient(s, 1, "alice", roles.Computed{})

	name, err := s.resolveRoomName(c, "anything at all")
	require.NoError(t, err)
	assert.Equal(t, "alice's Room", name)
}

func TestResolveRoomName_WithCapabilityUsesRequestedName(t *testing.T) {
	s := newTestServer()
	computed := roles.Computed{Capabilities: map[string]bool{roles.CapNameRooms: true}}
	c := newTestClient(s, 1, "alice", computed)

	name, err := s.resolveRoomName(c, "Speedrun Lobby")
	require.NoError(t, err)
	assert.Equal(t, "Speedrun Lobby", name)
}

func TestResolveRoomName_RejectsEmptyName(t *testing.T) {
	s := newTestServer()
	computed := roles.Computed{Capabilities: map[string]bool{roles.CapNameRooms: true}}
	c := newTestClient(s, 1, "alice", computed)

	_, err := s.resolveRoomName(c, "")
	assert.ErrorIs(t, err, errEmptyRoomName)
}

func TestResolveRoomName_RejectsNonASCIIName(t *testing.T) {
	s := newTestServer()
	computed := roles.Computed{Capabilities: map[string]bool{roles.CapNameRooms: true}}
	c := newTestClient(s, 1, "alice", computed)

	_, err := s.resolveRoomName(c, "café room")
	assert.ErrorIs(t, err, errNonASCIIRoomName)
}

func TestResolveRoomName_RejectsDisallowedName(t *testing.T) {
	s := newTestServer()
	s.Words = wordfilter.NewBlocklist([]string{"slur"})
	computed := roles.Computed{Capabilities: map[string]bool{roles.CapNameRooms: true}}
	c := newTestClient(s, 1, "alice", computed)

	_, err := s.resolveRoomName(c, "has a slur in it")
	assert.ErrorIs(t, err, errDisallowedRoomName)
}

func TestHandleCreateRoom_RejectsUnknownShard(t *testing.T) {
	s := newTestServer()
	computed := roles.Computed{Capabilities: map[string]bool{roles.CapNameRooms: true}}
	c := newTestClient(s, 1, "alice", computed)

	err := s.handleCreateRoom(c, &wire.CreateRoom{Name: "Lobby", ServerID: 7})
	assert.ErrorIs(t, err, errShardNotInFleet)
}

func TestHandleCreateRoom_RequiresAuthentication(t *testing.T) {
	s := newTestServer()
	c := newClient(newFakeConn(), s)
	go c.writePump()

	err := s.handleCreateRoom(c, &wire.CreateRoom{Name: "Lobby"})
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestHandleCreateRoom_SucceedsWhenShardAcksPromptly(t *testing.T) {
	s := newTestServer()
	shardConn := newFakeConn()
	gs := newGameServerConn(shardConn, s)
	go gs.writePump()
	require.NoError(t, s.handleLoginSrv(gs, &wire.LoginSrv{
		Password: "correct-password",
		Data:     wire.GameServerData{StringID: "shard-1", Name: "Shard One", Region: "us", Address: "127.0.0.1:4202"},
	}))
	shardID, _ := gs.registeredID()

	computed := roles.Computed{Capabilities: map[string]bool{roles.CapNameRooms: true}}
	c := newTestClient(s, 1, "alice", computed)

	done := make(chan error, 1)
	go func() {
		done <- s.handleCreateRoom(c, &wire.CreateRoom{Name: "Lobby", ServerID: shardID})
	}()

	// handleCreateRoom sends RoomCreatedNotify down the shard's connection
	// before awaiting the ack; it follows the GameServerLoginOk that
	// handleLoginSrv already wrote there. Poll for that second outbound
	// frame, decode it for the assigned room id, then simulate the shard's
	// ack.
	require.Eventually(t, func() bool {
		shardConn.mu.Lock()
		defer shardConn.mu.Unlock()
		return len(shardConn.written) > 1
	}, 2*time.Second, 5*time.Millisecond)

	shardConn.mu.Lock()
	notifyFrame := shardConn.written[1]
	shardConn.mu.Unlock()

	decoded, err := wire.DecodeFrame(notifyFrame)
	require.NoError(t, err)
	notify, ok := decoded.(*wire.RoomCreatedNotify)
	require.True(t, ok)
	assert.Equal(t, "Lobby", notify.RoomName)

	ackFrame, err := wire.EncodeFrame(&wire.RoomCreatedAck{RoomID: notify.RoomID}, 32)
	require.NoError(t, err)
	defer wire.Put(ackFrame)
	s.dispatchGameServer(gs, ackFrame)

	require.NoError(t, <-done)
	assert.Equal(t, notify.RoomID, c.RoomID())
}
