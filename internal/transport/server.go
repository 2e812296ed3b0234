package transport

import (
	"net/http"
	"sync"

	"github.com/globed-io/central/internal/authbridge"
	"github.com/globed-io/central/internal/authtoken"
	"github.com/globed-io/central/internal/fleet"
	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/metrics"
	"github.com/globed-io/central/internal/registry"
	"github.com/globed-io/central/internal/repo"
	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/rooms"
	"github.com/globed-io/central/internal/sessions"
	"github.com/globed-io/central/internal/wordfilter"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server holds every singleton a client connection's handlers need. It is
// built from the module registry's contents once the registry is frozen.
type Server struct {
	Rooms     *rooms.Manager
	Clients   *registry.Registry[Client]
	Sessions  *sessions.Counter
	Fleet     *fleet.Manager
	Oracle    *authbridge.Bridge
	Repo      repo.Repository
	RoleTable roles.Table
	Tokens    *authtoken.Validator
	Words     wordfilter.Filter

	SuperAdmins        map[int32]bool
	AdminBcryptCost    int
	GameServerPassword string
	OracleURL          string

	upgrader websocket.Upgrader

	gameServersMu sync.RWMutex
	gameServers   map[uint8]*GameServerConn
}

// NewServer wires a Server from its already-constructed dependencies.
func NewServer(roomsMgr *rooms.Manager, clients *registry.Registry[Client], sessionCounter *sessions.Counter, fleetMgr *fleet.Manager, oracle *authbridge.Bridge, repository repo.Repository, roleTable roles.Table, tokens *authtoken.Validator, words wordfilter.Filter, superAdmins map[int32]bool, adminBcryptCost int, gameServerPassword string, oracleURL string) *Server {
	if words == nil {
		words = wordfilter.None{}
	}
	return &Server{
		Rooms:              roomsMgr,
		Clients:            clients,
		Sessions:           sessionCounter,
		Fleet:              fleetMgr,
		Oracle:             oracle,
		Repo:               repository,
		RoleTable:          roleTable,
		Tokens:             tokens,
		Words:              words,
		SuperAdmins:        superAdmins,
		AdminBcryptCost:    adminBcryptCost,
		GameServerPassword: gameServerPassword,
		OracleURL:          oracleURL,
		gameServers:        make(map[uint8]*GameServerConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
			WriteBufferPool: &sync.Pool{
				New: func() any { return make([]byte, 4096) },
			},
		},
	}
}

// ServeWS upgrades an incoming HTTP request to a WebSocket connection and
// hands it off to HandleConnection. Unlike the teacher's hub, authentication
// happens inside the wire protocol (LoginPlain/LoginOracle/LoginUserToken),
// not at the upgrade boundary, since this protocol's clients authenticate
// after connecting.
func (s *Server) ServeWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	s.HandleConnection(conn)
}

// HandleConnection starts the read/write pumps for an already-upgraded
// connection and blocks until the client disconnects.
func (s *Server) HandleConnection(conn wsConnection) {
	client := newClient(conn, s)
	metrics.ActiveConnections.Inc()

	go client.writePump()
	client.readPump()

	metrics.ActiveConnections.Dec()
}

func (c *Client) readPump() {
	defer c.onDisconnect()

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		c.server.dispatch(c, payload)
	}
}

// onDisconnect cleans up room membership, the client registry entry, and
// the send channel when a connection's readPump exits, mirroring the
// teacher's readPump deferred cleanup.
func (c *Client) onDisconnect() {
	if c.Authenticated() {
		if room, ok := c.server.Rooms.Get(c.RoomID()); ok {
			room.Remove(c.AccountID())
		}
		if sid := c.SessionID(); sid != 0 {
			c.server.Sessions.Leave(sessions.Unpack(sid))
		}
		c.server.Clients.Remove(c.AccountID(), c.Username(), c)
	}
	c.disconnect()
}
