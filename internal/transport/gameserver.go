package transport

import (
	"context"
	"crypto/subtle"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/wire"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// gameServerTokenTTL is how long a shard's issued token pair is valid for
// before it must re-run LoginSrv.
const gameServerTokenTTL = 24 * time.Hour

// GameServerConn is one upstream shard's connection on the game-server
// uplink listener, a separate socket pair from the player-facing one (spec
// §4.5/§6). Before LoginSrv succeeds a connection carries no shard identity
// at all; every other frame it sends is dropped.
type GameServerConn struct {
	conn   wsConnection
	server *Server

	send chan []byte

	mu         sync.RWMutex
	registered bool
	serverID   uint8

	closeOnce sync.Once
	closed    bool
}

func newGameServerConn(conn wsConnection, server *Server) *GameServerConn {
	return &GameServerConn{
		conn:   conn,
		server: server,
		send:   make(chan []byte, sendBufferSize),
	}
}

func (g *GameServerConn) registeredID() (uint8, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.serverID, g.registered
}

func (g *GameServerConn) setRegistered(id uint8) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registered = true
	g.serverID = id
}

func (g *GameServerConn) enqueue(frame []byte) {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		wire.Put(frame)
		return
	}
	g.mu.RUnlock()

	select {
	case g.send <- frame:
	default:
		wire.Put(frame)
	}
}

func (g *GameServerConn) sendFrame(msg wire.Message, estimatedCap int) {
	buf, err := wire.EncodeFrame(msg, estimatedCap)
	if err != nil {
		logging.Warn(context.Background(), "failed to encode outbound game-server frame", zap.Error(err))
		return
	}
	g.enqueue(buf)
}

func (g *GameServerConn) disconnect() {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
		close(g.send)
	})
}

func (g *GameServerConn) writePump() {
	defer g.conn.Close()

	for frame := range g.send {
		if err := g.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			wire.Put(frame)
			return
		}
		err := g.conn.WriteMessage(websocket.BinaryMessage, frame)
		wire.Put(frame)
		if err != nil {
			return
		}
	}
	g.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (g *GameServerConn) readPump() {
	defer g.onDisconnect()

	for {
		messageType, payload, err := g.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		g.server.dispatchGameServer(g, payload)
	}
}

// onDisconnect deregisters the shard's fleet entry, if any, and drops it
// from the uplink registry so a later RoomCreatedNotify has nowhere to go.
func (g *GameServerConn) onDisconnect() {
	if id, ok := g.registeredID(); ok {
		g.server.Fleet.Deregister(id)
		g.server.removeGameServer(id)
	}
	g.disconnect()
}

// ServeGameServerWS upgrades an incoming game-server uplink connection and
// hands it off to HandleGameServerConnection.
func (s *Server) ServeGameServerWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "game-server websocket upgrade failed", zap.Error(err))
		return
	}
	s.HandleGameServerConnection(conn)
}

// HandleGameServerConnection starts the read/write pumps for an
// already-upgraded game-server uplink connection and blocks until it
// disconnects.
func (s *Server) HandleGameServerConnection(conn wsConnection) {
	gs := newGameServerConn(conn, s)
	go gs.writePump()
	gs.readPump()
}

func (s *Server) registerGameServer(id uint8, gs *GameServerConn) {
	s.gameServersMu.Lock()
	defer s.gameServersMu.Unlock()
	s.gameServers[id] = gs
}

func (s *Server) removeGameServer(id uint8) {
	s.gameServersMu.Lock()
	defer s.gameServersMu.Unlock()
	delete(s.gameServers, id)
}

func (s *Server) getGameServer(id uint8) (*GameServerConn, bool) {
	s.gameServersMu.RLock()
	defer s.gameServersMu.RUnlock()
	gs, ok := s.gameServers[id]
	return gs, ok
}

// broadcastToFleet sends msg to every currently registered game-server
// shard, used to push punishment notifications so each shard can refresh
// its locally cached copy of the affected account's standing.
func (s *Server) broadcastToFleet(msg wire.Message, estimatedCap int) {
	s.gameServersMu.RLock()
	defer s.gameServersMu.RUnlock()
	for _, gs := range s.gameServers {
		gs.sendFrame(msg, estimatedCap)
	}
}

// dispatchGameServer routes one frame from an upstream shard. Any frame
// besides LoginSrv arriving before the shard has authenticated is an
// unauthorized message and is silently dropped, per spec.
func (s *Server) dispatchGameServer(gs *GameServerConn, payload []byte) {
	msg, err := wire.DecodeFrame(payload)
	if err != nil {
		logging.Warn(context.Background(), "dropping malformed game-server frame", zap.Error(err))
		return
	}

	_, registered := gs.registeredID()

	switch m := msg.(type) {
	case *wire.LoginSrv:
		if registered {
			return
		}
		if err := s.handleLoginSrv(gs, m); err != nil {
			logging.Warn(context.Background(), "game-server login failed", zap.Error(err))
		}
	case *wire.RoomCreatedAck:
		if !registered {
			return
		}
		s.Fleet.ResolveRoomCreated(m.RoomID, nil)
	default:
		// unauthorized or unrecognized message; dropped.
	}
}

// handleLoginSrv authenticates an upstream shard. The password check runs in
// constant time: a length mismatch still costs the same as a content
// mismatch rather than returning early, so a timing side channel can't leak
// how much of the password guess was correct.
func (s *Server) handleLoginSrv(gs *GameServerConn, m *wire.LoginSrv) error {
	if !constantTimeEquals(m.Password, s.GameServerPassword) {
		gs.disconnect()
		return errGameServerAuthFailed
	}

	record, err := s.Fleet.Register(m.Data.StringID, m.Data.Name, m.Data.Region, m.Data.Address)
	if err != nil {
		gs.disconnect()
		return err
	}

	gs.setRegistered(record.ID)
	s.registerGameServer(record.ID, gs)

	gs.sendFrame(&wire.GameServerLoginOk{
		ServerID:    record.ID,
		TokenKey:    uuid.NewString(),
		ScriptKey:   uuid.NewString(),
		TokenExpiry: time.Now().Add(gameServerTokenTTL).Unix(),
		Roles:       s.roleIDs(),
	}, 256)
	return nil
}

// roleIDs returns every configured role id, sorted, for the fleet login
// reply's roles[] field.
func (s *Server) roleIDs() []string {
	ids := make([]string, 0, len(s.RoleTable))
	for id := range s.RoleTable {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func constantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

var errGameServerAuthFailed = errors.New("transport: game-server login password mismatch")
