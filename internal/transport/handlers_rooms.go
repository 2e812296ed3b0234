package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
	"unicode"

	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/repo"
	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/rooms"
	"github.com/globed-io/central/internal/wire"
	"go.uber.org/zap"
	"k8s.io/utils/set"
)

// defaultRoomPlayerLimit applies when CreateRoom.Settings carries no
// nonzero player limit. The wire schema folds "room settings" down to a
// single uint32 field rather than a dedicated player_limit; this server
// treats that field as the limit directly, with 0 meaning "use the
// default", since no other bit of room configuration is exercised yet.
const defaultRoomPlayerLimit = 250

const fleetAckTimeout = 5 * time.Second

var errUnauthenticated = errors.New("transport: message requires a completed login")

var errShardNotInFleet = errors.New("transport: target shard is not a registered game server")

// handleCreateRoom implements create_room(name, passcode, settings):
// authenticated, not room-banned, target shard present in the fleet;
// disallowed names are rejected outright, and a caller lacking can_name_rooms
// gets the default "<username>'s Room" instead of their requested name.
// On success the room is allocated locally and the client joins it before
// the target shard is notified and its ack awaited; any failure from here
// on rolls the room back and the client never leaves global.
func (s *Server) handleCreateRoom(c *Client, m *wire.CreateRoom) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	if !s.Fleet.IsActive(m.ServerID) {
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: "ShardUnavailable"}, 256)
		return errShardNotInFleet
	}

	name, err := s.resolveRoomName(c, m.Name)
	if err != nil {
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: err.Error()}, 256)
		return err
	}

	room, err := s.Rooms.Create(name, m.Passcode, m.ServerID)
	if err != nil {
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: err.Error()}, 256)
		return err
	}

	limit := playerLimit(m.Settings)
	if _, err := room.Join(c.AccountID(), c.Username(), limit); err != nil {
		s.Rooms.Close(room.ID)
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: "Full"}, 256)
		return err
	}
	s.leaveCurrentRoom(c)
	c.setRoomID(room.ID)

	if err := s.notifyShardRoomCreated(m.ServerID, room.ID, name); err != nil {
		s.Rooms.Close(room.ID)
		s.moveToGlobal(c)
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: "internal error"}, 256)
		return err
	}

	c.sendFrame(&wire.CreateRoomResponse{RoomID: room.ID}, 32)
	c.sendFrame(s.buildRoomState(c, room), 2048)
	return nil
}

// notifyShardRoomCreated sends the RoomCreatedNotify down to serverID's
// uplink connection and blocks until its RoomCreatedAck resolves the fleet
// manager's waiter, or until the ack times out / the shard disconnects.
func (s *Server) notifyShardRoomCreated(serverID uint8, roomID uint32, roomName string) error {
	gs, ok := s.getGameServer(serverID)
	if !ok {
		return fmt.Errorf("transport: shard %d has no live uplink connection", serverID)
	}
	gs.sendFrame(&wire.RoomCreatedNotify{RoomID: roomID, RoomName: roomName}, 256)
	return s.Fleet.AwaitRoomCreated(roomID, fleetAckTimeout)
}

// resolveRoomName validates m.Name per create_room's naming rules, falling
// back to the default name when the caller can't name rooms at all.
func (s *Server) resolveRoomName(c *Client, name string) (string, error) {
	if !c.Roles().Has(roles.CapNameRooms) {
		return fmt.Sprintf("%s's Room", c.Username()), nil
	}
	if name == "" {
		return "", errEmptyRoomName
	}
	if !isASCII(name) {
		return "", errNonASCIIRoomName
	}
	if !s.Words.IsAllowed(name) {
		return "", errDisallowedRoomName
	}
	return name, nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

var (
	errEmptyRoomName      = errors.New("EmptyName")
	errNonASCIIRoomName   = errors.New("NonAsciiName")
	errDisallowedRoomName = errors.New("DisallowedName")
)

func playerLimit(settings uint32) int {
	if settings == 0 {
		return defaultRoomPlayerLimit
	}
	return int(settings)
}

func (s *Server) handleJoinRoom(c *Client, m *wire.JoinRoom) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}

	// Joining by invite token identifies its own room (CreateInviteToken
	// mints tokens scoped to a single room), so a nonzero InviteToken takes
	// priority over RoomID/Passcode entirely.
	room, ok := s.resolveJoinTarget(m)
	if !ok {
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: "NotFound"}, 256)
		return rooms.ErrRoomNotFound
	}

	if m.InviteToken == 0 && !room.CheckPasscode(m.Passcode) {
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: "InvalidPasscode"}, 256)
		return rooms.ErrInvalidPasscode
	}

	if _, err := room.Join(c.AccountID(), c.Username(), defaultRoomPlayerLimit); err != nil {
		reason := "Full"
		switch {
		case errors.Is(err, rooms.ErrAlreadyInRoom):
			reason = "AlreadyInRoom"
		case errors.Is(err, rooms.ErrBanned):
			reason = "Banned"
		case errors.Is(err, rooms.ErrRoomNotJoinable):
			reason = "NotFound"
		}
		c.sendFrame(&wire.JoinRoomResponse{OK: false, Reason: reason}, 256)
		return err
	}

	s.leaveCurrentRoom(c)
	c.setRoomID(room.ID)
	c.sendFrame(&wire.JoinRoomResponse{OK: true, RoomID: room.ID}, 256)
	c.sendFrame(s.buildRoomState(c, room), 2048)
	return nil
}

// resolveJoinTarget finds the room a JoinRoom message targets. A nonzero
// InviteToken packs its owning room id in its top bits (see
// rooms.InviteTokenRoomID), so the target room is looked up directly rather
// than scanned for; a zero InviteToken targets RoomID directly and leaves
// passcode checking to the caller.
func (s *Server) resolveJoinTarget(m *wire.JoinRoom) (*rooms.Room, bool) {
	if m.InviteToken != 0 {
		room, ok := s.Rooms.Get(rooms.InviteTokenRoomID(m.InviteToken))
		if !ok || !room.ConsumeInviteToken(m.InviteToken, time.Now()) {
			return nil, false
		}
		return room, true
	}
	return s.Rooms.Get(m.RoomID)
}

// leaveCurrentRoom removes c from whatever room it previously occupied
// (typically the global room) before it joins a new one.
func (s *Server) leaveCurrentRoom(c *Client) {
	prevID := c.RoomID()
	if room, ok := s.Rooms.Get(prevID); ok {
		room.Remove(c.AccountID())
	}
}

func (s *Server) handleCloseRoom(c *Client, m *wire.CloseRoom) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}
	owner, hasOwner := room.OwnerAccountID()
	if !hasOwner || owner != c.AccountID() {
		return errNotRoomOwner
	}

	room.SetJoinable(false)
	for _, p := range room.Players() {
		if p.AccountID == c.AccountID() {
			continue
		}
		if other, ok := s.Clients.GetByAccount(p.AccountID); ok {
			s.moveToGlobal(other)
		}
	}
	return s.Rooms.Close(m.RoomID)
}

var errNotRoomOwner = errors.New("transport: only the room owner can close it")

func (s *Server) moveToGlobal(c *Client) {
	global := s.Rooms.Global()
	if _, err := global.Join(c.AccountID(), c.Username(), maxGlobalRoomPlayers); err != nil && !errors.Is(err, rooms.ErrAlreadyInRoom) {
		logging.Warn(context.Background(), "failed to move client back to global room", zap.Error(err))
		return
	}
	c.setRoomID(rooms.GlobalRoomID)
}

// handleCreateInviteToken mints a one-shot invite for the caller. A room
// owner may always mint one; a non-owner is rejected once the room's
// private_invites setting is on, per invite_player's "mint a token for the
// caller" contract.
func (s *Server) handleCreateInviteToken(c *Client, m *wire.CreateInviteToken) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}

	owner, hasOwner := room.OwnerAccountID()
	isOwner := hasOwner && owner == c.AccountID()
	if !isOwner && room.Settings().PrivateInvites {
		return errInsufficientPermissions
	}

	token, err := room.CreateInviteToken(time.Now())
	if err != nil {
		return err
	}
	c.sendFrame(&wire.InviteTokenCreated{Token: token}, 32)
	return nil
}

func (s *Server) handleConsumeInviteToken(c *Client, m *wire.ConsumeInviteToken) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(rooms.InviteTokenRoomID(m.Token))
	if !ok || !room.ConsumeInviteToken(m.Token, time.Now()) {
		return rooms.ErrInviteTokenUnused
	}
	return nil
}

func (s *Server) handleCreateTeam(c *Client, m *wire.CreateTeam) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}
	if err := requireRoomOwner(c, room); err != nil {
		return err
	}
	_, err := room.CreateTeam(m.Name)
	return err
}

func (s *Server) handleDeleteTeam(c *Client, m *wire.DeleteTeam) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}
	if err := requireRoomOwner(c, room); err != nil {
		return err
	}
	return room.DeleteTeam(int(m.TeamIndex))
}

// requireRoomOwner enforces create_team/delete_team/update_team's "room
// owner only; must be a non-global room" rule.
func requireRoomOwner(c *Client, room *rooms.Room) error {
	if room.ID == rooms.GlobalRoomID {
		return errGlobalRoomTeamOp
	}
	owner, hasOwner := room.OwnerAccountID()
	if !hasOwner || owner != c.AccountID() {
		return errNotRoomOwner
	}
	return nil
}

var errGlobalRoomTeamOp = errors.New("transport: team operations are not allowed in the global room")
var errTeamsLocked = errors.New("transport: teams are locked; only the room owner may reassign players")

// handleAssignTeam lets the room owner move anyone onto any team. A
// non-owner may only move themselves, and only when the room's
// locked_teams setting is off.
func (s *Server) handleAssignTeam(c *Client, m *wire.AssignTeam) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}

	owner, hasOwner := room.OwnerAccountID()
	isOwner := hasOwner && owner == c.AccountID()
	if !isOwner {
		if room.Settings().LockedTeams {
			return errTeamsLocked
		}
		if m.AccountID != c.AccountID() {
			return errNotRoomOwner
		}
	}
	return room.AssignTeam(m.AccountID, int(m.TeamIndex))
}

// targetIsModerator reports whether accountID's computed role grants
// CapModerate, independent of whether the account is currently connected.
// Room owners can't kick or ban moderators, per the room-ownership model.
func (s *Server) targetIsModerator(accountID int32) (bool, error) {
	user, err := s.Repo.GetUser(context.Background(), accountID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	rolesCSV := ""
	if user != nil {
		rolesCSV = user.RolesCSV
	}
	computed := roles.Compute(splitRoles(rolesCSV), s.RoleTable, s.SuperAdmins[accountID])
	return computed.Has(roles.CapModerate), nil
}

// handleKickUser removes the target from the room without banning it. Only
// the room owner may do this, and a moderator target is immune.
func (s *Server) handleKickUser(c *Client, m *wire.KickUser) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}
	if err := requireRoomOwner(c, room); err != nil {
		return err
	}
	if isMod, err := s.targetIsModerator(m.AccountID); err != nil {
		return err
	} else if isMod {
		return errInsufficientPermissions
	}

	if err := room.Remove(m.AccountID); err != nil && !errors.Is(err, rooms.ErrNotInRoom) {
		return err
	}
	if target, ok := s.Clients.GetByAccount(m.AccountID); ok && target.RoomID() == m.RoomID {
		s.moveToGlobal(target)
	}
	return nil
}

// handleBanUser removes the target from the room and bars it from
// rejoining. Only the room owner may do this, and a moderator target is
// immune.
func (s *Server) handleBanUser(c *Client, m *wire.BanUser) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}
	if err := requireRoomOwner(c, room); err != nil {
		return err
	}
	if isMod, err := s.targetIsModerator(m.AccountID); err != nil {
		return err
	} else if isMod {
		return errInsufficientPermissions
	}

	if err := room.Ban(m.AccountID); err != nil {
		return err
	}
	if target, ok := s.Clients.GetByAccount(m.AccountID); ok && target.RoomID() == m.RoomID {
		s.moveToGlobal(target)
	}
	return nil
}

const roomStateSampleLimit = 100

// handleCheckRoomState answers with an out-of-band RoomState frame for
// m.RoomID, the same payload a join would have produced.
func (s *Server) handleCheckRoomState(c *Client, m *wire.CheckRoomState) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	room, ok := s.Rooms.Get(m.RoomID)
	if !ok {
		return rooms.ErrRoomNotFound
	}
	c.sendFrame(s.buildRoomState(c, room), 2048)
	return nil
}

// buildRoomState assembles the room-state-visibility frame: metadata,
// settings, and a sampled player list. The global room samples up to
// roomStateSampleLimit occupants, friends of the caller first, then a
// random fill of the rest; any other room reports its full roster.
func (s *Server) buildRoomState(c *Client, room *rooms.Room) *wire.RoomState {
	owner, _ := room.OwnerAccountID()
	players := room.Players()

	limit := len(players)
	if room.ID == rooms.GlobalRoomID {
		limit = roomStateSampleLimit
	}

	friendIDs := set.New(c.Friends()...)
	sampled := sampleRoomPlayers(players, c.AccountID(), friendIDs, limit)

	out := make([]wire.RoomStatePlayer, len(sampled))
	for i, p := range sampled {
		out[i] = wire.RoomStatePlayer{AccountID: p.AccountID, Username: p.Username, TeamIndex: uint8(p.TeamIndex)}
	}

	settings := room.Settings()
	return &wire.RoomState{
		RoomID:         room.ID,
		OwnerAccountID: owner,
		Name:           room.Name,
		Joinable:       room.Joinable(),
		LockedTeams:    settings.LockedTeams,
		PrivateInvites: settings.PrivateInvites,
		PlayerCount:    uint16(room.PlayerCount()),
		Teams:          room.TeamNames(),
		Players:        out,
	}
}

// sampleRoomPlayers implements the room-state sampling policy: never the
// caller itself, friends of the caller first (up to n), then a random fill
// of the remaining slots from the rest of the roster.
func sampleRoomPlayers(players []rooms.Player, callerAccountID int32, friendIDs set.Set[int32], n int) []rooms.Player {
	candidates := make([]rooms.Player, 0, len(players))
	for _, p := range players {
		if p.AccountID != callerAccountID {
			candidates = append(candidates, p)
		}
	}
	if n <= 0 || n >= len(candidates) {
		return candidates
	}

	var friends, rest []rooms.Player
	for _, p := range candidates {
		if friendIDs.Has(p.AccountID) {
			friends = append(friends, p)
		} else {
			rest = append(rest, p)
		}
	}

	if len(friends) > n {
		friends = friends[:n]
	}
	out := make([]rooms.Player, 0, n)
	out = append(out, friends...)

	remaining := n - len(out)
	if remaining > 0 && len(rest) > 0 {
		rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		if remaining > len(rest) {
			remaining = len(rest)
		}
		out = append(out, rest[:remaining]...)
	}
	return out
}

// requireCapability is used by the admin handlers to gate an action on the
// caller's computed moderation permissions.
func requireCapability(c *Client, capability string) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}
	if !c.Roles().Has(capability) {
		return errInsufficientPermissions
	}
	return nil
}

var errInsufficientPermissions = errors.New("transport: insufficient permissions")
