// Package transport wires the wire codec to the domain packages: it owns
// the per-connection read/write pumps, the login state machine, and
// dispatch of every inbound message kind to its handler.
package transport

import (
	"sync"
	"time"

	"github.com/globed-io/central/internal/authtoken"
	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/wire"
	"github.com/gorilla/websocket"
)

// wsConnection is the subset of *websocket.Conn the client pump needs,
// grounded on the teacher's transport.wsConnection seam so pumps are
// testable against a fake.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() interface {
		String() string
	}
}

const (
	sendBufferSize = 64
	writeWait      = 10 * time.Second
)

// Client is a single player connection's state: identity once authenticated,
// current room/session membership, and the buffered send channel its
// writePump drains.
type Client struct {
	conn   wsConnection
	server *Server

	send chan []byte

	mu            sync.RWMutex
	authenticated bool
	accountID     int32
	userID        int32
	username      string
	roleStr       string
	computed      roles.Computed

	currentRoomID uint32
	sessionID     uint64
	muted         bool

	closeOnce sync.Once
	closed    bool
}

func newClient(conn wsConnection, server *Server) *Client {
	return &Client{
		conn:   conn,
		server: server,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Authenticated reports whether login has completed successfully.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

func (c *Client) setIdentity(accountID, userID int32, username, roleStr string, computed roles.Computed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
	c.accountID = accountID
	c.userID = userID
	c.username = username
	c.roleStr = roleStr
	c.computed = computed
}

// AccountID returns the client's account id (0 before authentication).
func (c *Client) AccountID() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

// Username returns the lowercase-insensitive display name used at login.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// Roles returns the client's computed moderation permissions.
func (c *Client) Roles() roles.Computed {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.computed
}

func (c *Client) setRoomID(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentRoomID = id
}

// RoomID returns the id of the room the client currently occupies.
func (c *Client) RoomID() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentRoomID
}

// Muted reports whether the client's account is currently muted, cached at
// login so a mute check never has to hit the repository on the hot path.
func (c *Client) Muted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.muted
}

func (c *Client) setMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
}

// Friends returns the account ids the client has marked as friends, used to
// prioritize room-state sampling. No login or wire path currently populates
// this, so every client reports an empty friend set.
func (c *Client) Friends() []int32 {
	return nil
}

// SessionID returns the client's currently joined packed session id (0 if
// none).
func (c *Client) SessionID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSessionID(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// setAuthTokenClaims applies an already-validated reconnect token, skipping
// the full login handshake.
func (c *Client) setAuthTokenClaims(claims *authtoken.Claims, computed roles.Computed) {
	c.setIdentity(claims.AccountID, claims.UserID, claims.Username, claims.RoleStr, computed)
}

// enqueue buffers an encoded frame for delivery, taking ownership of the
// pool-backed buffer. A full channel means the connection can't keep up;
// the frame is dropped (and its buffer returned to the pool) rather than
// blocking the handler that produced it.
func (c *Client) enqueue(frame []byte) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		wire.Put(frame)
		return
	}
	c.mu.RUnlock()

	select {
	case c.send <- frame:
	default:
		wire.Put(frame)
	}
}

// disconnect closes the send channel exactly once, triggering writePump's
// close-message path and eventual socket close.
func (c *Client) disconnect() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.send)
	})
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for frame := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			wire.Put(frame)
			return
		}
		err := c.conn.WriteMessage(websocket.BinaryMessage, frame)
		wire.Put(frame)
		if err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
