package transport

import (
	"github.com/globed-io/central/internal/sessions"
	"github.com/globed-io/central/internal/wire"
)

// handleSessionJoin records that c is now watching the level encoded in
// m.SessionID. If c is the room's owner, every other room member is sent a
// SessionWarp so their spectator streams follow the owner to the new level.
func (s *Server) handleSessionJoin(c *Client, m *wire.SessionJoin) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}

	id := sessions.Unpack(m.SessionID)
	if err := sessions.Validate(id, c.RoomID(), m.RoomID, s.Fleet.IsActive); err != nil {
		return err
	}

	if prev := c.SessionID(); prev != 0 {
		s.Sessions.Leave(sessions.Unpack(prev))
	}
	s.Sessions.Join(id)
	c.setSessionID(m.SessionID)

	s.broadcastWarpIfOwner(c, m.SessionID)
	return nil
}

// handleSessionLeave clears c's session, if any.
func (s *Server) handleSessionLeave(c *Client, m *wire.SessionLeave) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	if prev := c.SessionID(); prev != 0 {
		s.Sessions.Leave(sessions.Unpack(prev))
	}
	c.setSessionID(0)
	return nil
}

// handleSessionWarp is sent by a room owner's client directly (rather than
// derived from handleSessionJoin) when only the spectator broadcast is
// needed, e.g. the owner's session id is already tracked server-side.
func (s *Server) handleSessionWarp(c *Client, m *wire.SessionWarp) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	s.broadcastWarpIfOwner(c, m.NewSessionID)
	return nil
}

// broadcastWarpIfOwner notifies every other occupant of c's current room
// that the owner's session changed, so follower clients can retarget their
// spectator stream without leaving the room.
func (s *Server) broadcastWarpIfOwner(c *Client, newSessionID uint64) {
	room, ok := s.Rooms.Get(c.RoomID())
	if !ok {
		return
	}
	owner, hasOwner := room.OwnerAccountID()
	if !hasOwner || owner != c.AccountID() {
		return
	}

	for _, p := range room.Players() {
		if p.AccountID == c.AccountID() {
			continue
		}
		if other, ok := s.Clients.GetByAccount(p.AccountID); ok {
			other.sendFrame(&wire.SessionWarp{AccountID: c.AccountID(), NewSessionID: newSessionID}, 32)
		}
	}
}
