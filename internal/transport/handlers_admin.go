package transport

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/repo"
	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/wire"
	"go.uber.org/zap"
)

// roleDiff renders the difference between an account's previous role-id set
// and its new one as a "+added,-removed" string for the audit log, e.g.
// "+mod,-helper". An account that only had roles removed, or only gained
// roles, reports just that half.
func roleDiff(oldRoleIDs, newRoleIDs []string) string {
	oldSet := make(map[string]bool, len(oldRoleIDs))
	for _, id := range oldRoleIDs {
		oldSet[id] = true
	}
	newSet := make(map[string]bool, len(newRoleIDs))
	for _, id := range newRoleIDs {
		newSet[id] = true
	}

	var added, removed []string
	for _, id := range newRoleIDs {
		if !oldSet[id] {
			added = append(added, id)
		}
	}
	for _, id := range oldRoleIDs {
		if !newSet[id] {
			removed = append(removed, id)
		}
	}

	var parts []string
	for _, id := range added {
		parts = append(parts, "+"+id)
	}
	for _, id := range removed {
		parts = append(parts, "-"+id)
	}
	return strings.Join(parts, ",")
}

// handleAdminLogin is a second-factor check for an already-logged-in client
// that holds a moderation role: it proves possession of the account's admin
// password before any capability-gated handler accepts further commands.
// Capability checks on the other admin handlers don't depend on this having
// run; it exists because the original protocol treats admin mode as an
// explicit elevation step, logged separately from ordinary login.
func (s *Server) handleAdminLogin(c *Client, m *wire.AdminLogin) error {
	if !c.Authenticated() {
		return errUnauthenticated
	}

	if s.SuperAdmins[c.AccountID()] {
		c.sendFrame(&wire.AdminResult{OK: true}, 64)
		return nil
	}

	hash, err := s.Repo.GetAdminPasswordHash(context.Background(), c.AccountID())
	if err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: "no admin password set"}, 64)
		return err
	}
	if !repo.CheckAdminPassword(hash, m.Password) {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: "incorrect password"}, 64)
		return nil
	}
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

// targetOutranked reports whether c's computed role outranks the target
// account's, looking the target's roles up by repository record. Moderation
// actions require the caller to strictly outrank the target, per the
// "caller.priority > target.priority" rule.
func (s *Server) targetOutranked(c *Client, targetAccountID int32) (bool, error) {
	user, err := s.Repo.GetUser(context.Background(), targetAccountID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	rolesCSV := ""
	if user != nil {
		rolesCSV = user.RolesCSV
	}
	target := roles.Compute(splitRoles(rolesCSV), s.RoleTable, s.SuperAdmins[targetAccountID])
	return c.Roles().StrongerThan(target), nil
}

func (s *Server) logAdminAction(c *Client, kind, detail string) {
	if err := s.Repo.LogAction(context.Background(), c.AccountID(), kind, detail); err != nil {
		logging.Warn(context.Background(), "failed to record admin action", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *Server) handleAdminKick(c *Client, m *wire.AdminKick) error {
	if err := requireCapability(c, roles.CapKick); err != nil {
		return err
	}
	outranked, err := s.targetOutranked(c, m.AccountID)
	if err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	if !outranked {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: "insufficient rank"}, 64)
		return errInsufficientPermissions
	}

	target, ok := s.Clients.GetByAccount(m.AccountID)
	if !ok {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: "not connected"}, 64)
		return nil
	}
	target.sendFrame(&wire.LoginFailure{Reason: m.Reason}, 256)
	target.disconnect()

	s.logAdminAction(c, "kick", m.Reason)
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

// noticeSender returns the AccountID to stamp on an outgoing notice: the
// caller's own id when ShowSender is set, or 0 to keep the caller anonymous.
func noticeSender(c *Client, m *wire.AdminNotice) int32 {
	if m.ShowSender {
		return c.AccountID()
	}
	return 0
}

func (s *Server) deliverNotice(c *Client, m *wire.AdminNotice, target *Client) {
	target.sendFrame(&wire.AdminNotice{
		Mode:       m.Mode,
		AccountID:  noticeSender(c, m),
		Message:    m.Message,
		CanReply:   m.CanReply,
		ShowSender: m.ShowSender,
	}, 256)
}

// handleAdminNotice resolves a moderator-issued notice by the mode the
// caller selected and delivers it to every matching connected client: a
// single account, a single username (case-insensitive), every occupant of a
// room, or every connected client.
func (s *Server) handleAdminNotice(c *Client, m *wire.AdminNotice) error {
	if err := requireCapability(c, roles.CapNotice); err != nil {
		return err
	}

	switch m.Mode {
	case wire.NoticeModeEveryone:
		for _, room := range s.Rooms.All() {
			for _, p := range room.Players() {
				if target, ok := s.Clients.GetByAccount(p.AccountID); ok {
					s.deliverNotice(c, m, target)
				}
			}
		}
		s.logAdminAction(c, "notice_everyone", m.Message)

	case wire.NoticeModeRoom:
		room, ok := s.Rooms.Get(m.RoomID)
		if !ok {
			c.sendFrame(&wire.AdminResult{OK: false, Reason: "room not found"}, 64)
			return nil
		}
		for _, p := range room.Players() {
			if target, ok := s.Clients.GetByAccount(p.AccountID); ok {
				s.deliverNotice(c, m, target)
			}
		}
		s.logAdminAction(c, "notice_group", m.Message)

	case wire.NoticeModeUsername:
		target, ok := s.Clients.GetByUsername(m.Username)
		if !ok {
			c.sendFrame(&wire.AdminResult{OK: false, Reason: "not connected"}, 64)
			return nil
		}
		s.deliverNotice(c, m, target)
		s.logAdminAction(c, "notice", m.Message)

	default:
		target, ok := s.Clients.GetByAccount(m.AccountID)
		if !ok {
			c.sendFrame(&wire.AdminResult{OK: false, Reason: "not connected"}, 64)
			return nil
		}
		s.deliverNotice(c, m, target)
		s.logAdminAction(c, "notice", m.Message)
	}

	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminBan(c *Client, m *wire.AdminBan) error {
	if err := requireCapability(c, roles.CapBan); err != nil {
		return err
	}
	outranked, err := s.targetOutranked(c, m.AccountID)
	if err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	if !outranked {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: "insufficient rank"}, 64)
		return errInsufficientPermissions
	}

	var expiresAt *time.Time
	if m.DurationSecs > 0 {
		t := time.Now().Add(time.Duration(m.DurationSecs) * time.Second)
		expiresAt = &t
	}
	if _, err := s.Repo.PunishUser(context.Background(), c.AccountID(), m.AccountID, repo.PunishmentBan, m.Reason, expiresAt); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}

	if target, ok := s.Clients.GetByAccount(m.AccountID); ok {
		target.sendFrame(&wire.LoginFailure{Reason: m.Reason}, 256)
		target.disconnect()
	}

	s.notifyFleetOfPunishment(m.AccountID, "ban", true)
	s.logAdminAction(c, "ban", m.Reason)
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminUnban(c *Client, m *wire.AdminUnban) error {
	if err := requireCapability(c, roles.CapBan); err != nil {
		return err
	}
	if err := s.Repo.UnpunishUser(context.Background(), m.AccountID, repo.PunishmentBan); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	s.notifyFleetOfPunishment(m.AccountID, "ban", false)
	s.logAdminAction(c, "unban", "")
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminRoomBan(c *Client, m *wire.AdminRoomBan) error {
	if err := requireCapability(c, roles.CapRoomBan); err != nil {
		return err
	}
	if _, err := s.Repo.PunishUser(context.Background(), c.AccountID(), m.AccountID, repo.PunishmentRoomBan, m.Reason, nil); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	if target, ok := s.Clients.GetByAccount(m.AccountID); ok && target.RoomID() == m.RoomID {
		s.moveToGlobal(target)
	}
	s.notifyFleetOfPunishment(m.AccountID, "room_ban", true)
	s.logAdminAction(c, "room_ban", m.Reason)
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminRoomUnban(c *Client, m *wire.AdminRoomUnban) error {
	if err := requireCapability(c, roles.CapRoomBan); err != nil {
		return err
	}
	if err := s.Repo.UnpunishUser(context.Background(), m.AccountID, repo.PunishmentRoomBan); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	s.notifyFleetOfPunishment(m.AccountID, "room_ban", false)
	s.logAdminAction(c, "room_unban", "")
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminMute(c *Client, m *wire.AdminMute) error {
	if err := requireCapability(c, roles.CapMute); err != nil {
		return err
	}
	var expiresAt *time.Time
	if m.DurationSecs > 0 {
		t := time.Now().Add(time.Duration(m.DurationSecs) * time.Second)
		expiresAt = &t
	}
	if _, err := s.Repo.PunishUser(context.Background(), c.AccountID(), m.AccountID, repo.PunishmentMute, "", expiresAt); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	if target, ok := s.Clients.GetByAccount(m.AccountID); ok {
		target.setMuted(true)
	}
	s.notifyFleetOfPunishment(m.AccountID, "mute", true)
	s.logAdminAction(c, "mute", "")
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminUnmute(c *Client, m *wire.AdminUnmute) error {
	if err := requireCapability(c, roles.CapMute); err != nil {
		return err
	}
	if err := s.Repo.UnpunishUser(context.Background(), m.AccountID, repo.PunishmentMute); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	if target, ok := s.Clients.GetByAccount(m.AccountID); ok {
		target.setMuted(false)
	}
	s.notifyFleetOfPunishment(m.AccountID, "mute", false)
	s.logAdminAction(c, "unmute", "")
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

// notifyFleetOfPunishment pushes a FleetPunishmentNotify to every connected
// game-server shard so each can refresh its cached copy of the account's
// standing, per the ban/unban/room-ban/room-unban/mute/unmute contract.
func (s *Server) notifyFleetOfPunishment(accountID int32, action string, active bool) {
	s.broadcastToFleet(&wire.FleetPunishmentNotify{
		AccountID: accountID,
		Action:    action,
		Active:    active,
	}, 64)
}

func (s *Server) handleAdminEditRoles(c *Client, m *wire.AdminEditRoles) error {
	if err := requireCapability(c, roles.CapEditRoles); err != nil {
		return err
	}

	var oldRoleIDs []string
	if previous, err := s.Repo.GetUser(context.Background(), m.AccountID); err == nil && previous != nil {
		oldRoleIDs = splitRoles(previous.RolesCSV)
	} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}

	rolesCSV := strings.Join(m.RoleIDs, ",")
	if err := s.Repo.UpdateRoles(context.Background(), m.AccountID, rolesCSV); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}

	if target, ok := s.Clients.GetByAccount(m.AccountID); ok {
		computed := roles.Compute(m.RoleIDs, s.RoleTable, s.SuperAdmins[m.AccountID])
		target.setIdentity(target.AccountID(), target.userID, target.Username(), rolesCSV, computed)

		token, err := s.Tokens.Issue(target.AccountID(), target.userID, target.Username(), rolesCSV)
		if err != nil {
			logging.Warn(context.Background(), "failed to reissue user token after role edit", zap.Error(err))
		} else {
			target.sendFrame(&wire.AdminUserDataChanged{RolesCSV: rolesCSV, UserToken: token}, 512)
		}
	}

	s.logAdminAction(c, "edit_roles", roleDiff(oldRoleIDs, m.RoleIDs))
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminSetPassword(c *Client, m *wire.AdminSetPassword) error {
	if err := requireCapability(c, roles.CapSetPassword); err != nil {
		return err
	}
	hash, err := repo.HashAdminPassword(m.Password, s.AdminBcryptCost)
	if err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	if err := s.Repo.SetAdminPasswordHash(context.Background(), c.AccountID(), hash); err != nil {
		c.sendFrame(&wire.AdminResult{OK: false, Reason: err.Error()}, 256)
		return err
	}
	c.sendFrame(&wire.AdminResult{OK: true}, 64)
	return nil
}

func (s *Server) handleAdminFetchUser(c *Client, m *wire.AdminFetchUser) error {
	if err := requireCapability(c, roles.CapFetchUser); err != nil {
		return err
	}
	user, err := s.Repo.GetUser(context.Background(), m.AccountID)
	if errors.Is(err, repo.ErrNotFound) {
		c.sendFrame(&wire.AdminUserInfo{Found: false}, 32)
		return nil
	}
	if err != nil {
		return err
	}
	c.sendFrame(&wire.AdminUserInfo{
		Found:     true,
		AccountID: user.AccountID,
		UserID:    user.UserID,
		Username:  user.Username,
		RolesCSV:  user.RolesCSV,
		Banned:    user.Banned,
		BanReason: user.BanReason,
		Muted:     user.Muted,
	}, 512)
	return nil
}

func (s *Server) handleAdminFetchLogs(c *Client, m *wire.AdminFetchLogs) error {
	if err := requireCapability(c, roles.CapFetchLogs); err != nil {
		return err
	}
	actions, err := s.Repo.FetchLogs(context.Background(), m.AccountID, int(m.Limit))
	if err != nil {
		return err
	}
	entries := make([]wire.AdminLogEntry, len(actions))
	for i, a := range actions {
		entries[i] = wire.AdminLogEntry{
			ActorAccountID:  a.IssuerAccountID,
			TargetAccountID: m.AccountID,
			Action:          a.Kind,
			Reason:          a.Detail,
			CreatedAtUnix:   a.At.Unix(),
		}
	}
	c.sendFrame(&wire.AdminLogsResult{Entries: entries}, 2048)
	return nil
}
