package transport

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/globed-io/central/internal/authbridge"
	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/repo"
	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/rooms"
	"github.com/globed-io/central/internal/wire"
	"go.uber.org/zap"
)

var errAlreadyLoggedIn = errors.New("transport: duplicate login message after success")
var errBannedAccount = errors.New("transport: login rejected, account is banned")
var errLoginRequiresOracle = errors.New("transport: plain login rejected, identity verification is required")

// completeLogin is the shared tail of every login path: reject a banned
// account outright, cache its mute status, register the client (displacing
// a prior live connection for the same account), force-join the global
// room, issue a reconnect token, and reply with LoginSuccess.
func (s *Server) completeLogin(c *Client, accountID, userID int32, username, rolesCSV string, user *repo.User) error {
	if c.Authenticated() {
		return errAlreadyLoggedIn
	}

	if user != nil && user.Banned {
		c.sendFrame(&wire.LoginFailure{Reason: user.BanReason}, 256)
		return errBannedAccount
	}

	computed := roles.Compute(splitRoles(rolesCSV), s.RoleTable, s.SuperAdmins[accountID])
	c.setIdentity(accountID, userID, username, rolesCSV, computed)
	if user != nil {
		c.setMuted(user.Muted)
	}

	if previous, displaced := s.Clients.Insert(accountID, username, c); displaced && previous != c {
		previous.sendFrame(&wire.LoginFailure{Reason: "Duplicate login from another connection"}, 64)
		previous.disconnect()
	}

	global := s.Rooms.Global()
	if _, err := global.Join(accountID, username, maxGlobalRoomPlayers); err != nil && !errors.Is(err, rooms.ErrAlreadyInRoom) {
		s.Clients.Remove(accountID, username, c)
		return err
	}
	c.setRoomID(rooms.GlobalRoomID)

	token, err := s.Tokens.Issue(accountID, userID, username, rolesCSV)
	if err != nil {
		logging.Warn(context.Background(), "failed to issue user token", zap.Error(err))
	}

	c.sendFrame(&wire.LoginSuccess{
		AccountID: accountID,
		UserID:    userID,
		Username:  username,
		RoleStr:   rolesCSV,
		NameColor: computed.NameColor,
		UserToken: token,
	}, 512)
	return nil
}

// maxGlobalRoomPlayers is effectively unbounded: the global room is a
// lobby every authenticated client occupies, not a gameplay room.
const maxGlobalRoomPlayers = 1 << 20

func splitRoles(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// handleLoginPlain is the oracle-disabled login path. The original client
// always sends a password alongside its username, a holdover from the
// account server's own login form; this port has no account server to
// check it against; trusting the client-supplied username is the explicit
// behavior of "oracle disabled" mode, so Password is accepted but ignored.
// When an oracle is configured, identity verification is mandatory and this
// path refuses outright, pointing the client at LoginOracle instead.
func (s *Server) handleLoginPlain(c *Client, m *wire.LoginPlain) error {
	if s.OracleURL != "" {
		c.sendFrame(&wire.LoginRequired{OracleURL: s.OracleURL}, 256)
		return errLoginRequiresOracle
	}

	accountID := int32(fnvHash(m.Username))

	rolesCSV := ""
	var user *repo.User
	if fetched, err := s.Repo.GetUser(context.Background(), accountID); err == nil {
		user = fetched
		rolesCSV = fetched.RolesCSV
	} else if !errors.Is(err, repo.ErrNotFound) {
		logging.Warn(context.Background(), "repository lookup failed during plain login", zap.Error(err))
	}

	return s.completeLogin(c, accountID, accountID, m.Username, rolesCSV, user)
}

func fnvHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32() & 0x7fffffff
}

// handleLoginUserToken re-authenticates a reconnecting client from a token
// issued by a previous completeLogin, skipping the oracle/plain handshake.
func (s *Server) handleLoginUserToken(c *Client, m *wire.LoginUserToken) error {
	claims, err := s.Tokens.ValidateToken(m.Token)
	if err != nil {
		c.sendFrame(&wire.LoginFailure{Reason: "invalid or expired token"}, 64)
		return err
	}

	user, err := s.Repo.GetUser(context.Background(), claims.AccountID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		logging.Warn(context.Background(), "repository lookup failed during token login", zap.Error(err))
		user = nil
	}
	return s.completeLogin(c, claims.AccountID, claims.UserID, claims.Username, claims.RoleStr, user)
}

// handleLoginOracle validates the client's token against the identity
// oracle before completing login.
func (s *Server) handleLoginOracle(c *Client, m *wire.LoginOracle) error {
	if !s.Oracle.Connected() {
		c.sendFrame(&wire.LoginFailure{Reason: "OracleUnreachable"}, 64)
		return authbridge.ErrNotConnected
	}

	outcome, err := s.Oracle.Validate(context.Background(), m.AccountID, m.OracleToken)
	if err != nil {
		c.sendFrame(&wire.LoginFailure{Reason: "OracleInternalError"}, 64)
		return err
	}
	if !outcome.Valid {
		c.sendFrame(&wire.LoginFailure{Reason: outcome.Reason}, 256)
		return nil
	}

	rolesCSV := ""
	var user *repo.User
	if fetched, err := s.Repo.GetUser(context.Background(), m.AccountID); err == nil {
		user = fetched
		rolesCSV = fetched.RolesCSV
	} else if !errors.Is(err, repo.ErrNotFound) {
		logging.Warn(context.Background(), "repository lookup failed during oracle login", zap.Error(err))
	}

	return s.completeLogin(c, m.AccountID, outcome.UserID, outcome.Username, rolesCSV, user)
}
