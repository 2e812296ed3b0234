package transport

import (
	"context"
	"testing"
	"time"

	"github.com/globed-io/central/internal/repo"
	"github.com/globed-io/central/internal/roles"
	"github.com/globed-io/central/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdminRepo implements repo.Repository, recording calls and returning
// whatever the test configured on the relevant field.
type fakeAdminRepo struct {
	repo.Repository

	getUser      *repo.User
	getUserErr   error
	punishErr    error
	unpunishErr  error
	updateRoleErr error
	adminHash    string
	adminHashErr error
	setHashErr   error
	logs         []repo.Action
	logsErr      error

	loggedActions []string
	punished      []repo.PunishmentKind
}

func (r *fakeAdminRepo) GetUser(ctx context.Context, accountID int32) (*repo.User, error) {
	return r.getUser, r.getUserErr
}

func (r *fakeAdminRepo) PunishUser(ctx context.Context, issuer, target int32, kind repo.PunishmentKind, reason string, expiresAt *time.Time) (bool, error) {
	r.punished = append(r.punished, kind)
	return true, r.punishErr
}

func (r *fakeAdminRepo) UnpunishUser(ctx context.Context, target int32, kind repo.PunishmentKind) error {
	return r.unpunishErr
}

func (r *fakeAdminRepo) UpdateRoles(ctx context.Context, accountID int32, rolesCSV string) error {
	return r.updateRoleErr
}

func (r *fakeAdminRepo) GetAdminPasswordHash(ctx context.Context, accountID int32) (string, error) {
	return r.adminHash, r.adminHashErr
}

func (r *fakeAdminRepo) SetAdminPasswordHash(ctx context.Context, accountID int32, hash string) error {
	return r.setHashErr
}

func (r *fakeAdminRepo) LogAction(ctx context.Context, issuer int32, kind, detail string) error {
	r.loggedActions = append(r.loggedActions, kind)
	return nil
}

func (r *fakeAdminRepo) FetchLogs(ctx context.Context, accountID int32, limit int) ([]repo.Action, error) {
	return r.logs, r.logsErr
}

var adminRoleTable = roles.Table{
	"admin": {ID: "admin", Priority: 100, Capabilities: map[string]bool{
		roles.CapKick: true, roles.CapBan: true, roles.CapMute: true,
		roles.CapNotice: true, roles.CapRoomBan: true, roles.CapEditRoles: true,
		roles.CapSetPassword: true, roles.CapFetchUser: true, roles.CapFetchLogs: true,
	}},
}

func newAdminTestServer(repository repo.Repository) *Server {
	s := newTestServer()
	s.Repo = repository
	s.RoleTable = adminRoleTable
	return s
}

func newAdminClient(s *Server, accountID int32, username string) *Client {
	computed := roles.Compute([]string{"admin"}, s.RoleTable, false)
	return newTestClient(s, accountID, username, computed)
}

func TestHandleAdminLogin_RejectsUnauthenticated(t *testing.T) {
	s := newAdminTestServer(&fakeAdminRepo{})
	c := newClient(newFakeConn(), s)
	go c.writePump()

	err := s.handleAdminLogin(c, &wire.AdminLogin{Password: "x"})
	assert.ErrorIs(t, err, errUnauthenticated)
}

func TestHandleAdminLogin_SucceedsWithMatchingPassword(t *testing.T) {
	hash, err := repo.HashAdminPassword("correct-horse", 4)
	require.NoError(t, err)
	s := newAdminTestServer(&fakeAdminRepo{adminHash: hash})
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminLogin(c, &wire.AdminLogin{Password: "correct-horse"}))

	conn := c.conn.(*fakeConn)
	require.Eventually(t, func() bool { return len(conn.writtenFrames()) == 1 }, time.Second, 5*time.Millisecond)
	decoded, err := wire.DecodeFrame(conn.writtenFrames()[0])
	require.NoError(t, err)
	result := decoded.(*wire.AdminResult)
	assert.True(t, result.OK)
}

func TestHandleAdminKick_RequiresCapability(t *testing.T) {
	s := newAdminTestServer(&fakeAdminRepo{})
	c := newTestClient(s, 1, "plain", roles.Computed{})

	err := s.handleAdminKick(c, &wire.AdminKick{AccountID: 2, Reason: "spam"})
	assert.ErrorIs(t, err, errInsufficientPermissions)
}

func TestHandleAdminKick_RejectsWhenCallerDoesNotOutrankTarget(t *testing.T) {
	repository := &fakeAdminRepo{getUser: &repo.User{RolesCSV: "admin"}}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	err := s.handleAdminKick(c, &wire.AdminKick{AccountID: 2, Reason: "spam"})
	assert.ErrorIs(t, err, errInsufficientPermissions)
}

func TestHandleAdminKick_DisconnectsConnectedTarget(t *testing.T) {
	repository := &fakeAdminRepo{getUserErr: repo.ErrNotFound}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")
	target := newTestClient(s, 2, "troll", roles.Computed{})
	s.Clients.Insert(2, "troll", target)

	require.NoError(t, s.handleAdminKick(c, &wire.AdminKick{AccountID: 2, Reason: "spam"}))

	targetConn := target.conn.(*fakeConn)
	require.Eventually(t, func() bool { return targetConn.isClosed() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"kick"}, repository.loggedActions)
}

func TestHandleAdminKick_ReportsTargetNotConnected(t *testing.T) {
	repository := &fakeAdminRepo{getUserErr: repo.ErrNotFound}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminKick(c, &wire.AdminKick{AccountID: 99, Reason: "spam"}))
	assert.Empty(t, repository.loggedActions)
}

func TestHandleAdminNotice_EveryoneModeBroadcastsToEveryRoomMember(t *testing.T) {
	repository := &fakeAdminRepo{}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	room, err := s.Rooms.Create("Lobby", 0, 1)
	require.NoError(t, err)
	_, err = room.Join(2, "alice", 8)
	require.NoError(t, err)

	alice := newTestClient(s, 2, "alice", roles.Computed{})
	s.Clients.Insert(2, "alice", alice)

	require.NoError(t, s.handleAdminNotice(c, &wire.AdminNotice{Mode: wire.NoticeModeEveryone, Message: "server restart"}))

	aliceConn := alice.conn.(*fakeConn)
	require.Eventually(t, func() bool { return len(aliceConn.writtenFrames()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestHandleAdminNotice_TargetedDeliversToOneClient(t *testing.T) {
	repository := &fakeAdminRepo{}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	target := newTestClient(s, 2, "bob", roles.Computed{})
	s.Clients.Insert(2, "bob", target)

	require.NoError(t, s.handleAdminNotice(c, &wire.AdminNotice{AccountID: 2, Message: "hello"}))

	targetConn := target.conn.(*fakeConn)
	require.Eventually(t, func() bool { return len(targetConn.writtenFrames()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestHandleAdminBan_AppliesPunishmentAndDisconnects(t *testing.T) {
	repository := &fakeAdminRepo{getUserErr: repo.ErrNotFound}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")
	target := newTestClient(s, 2, "cheater", roles.Computed{})
	s.Clients.Insert(2, "cheater", target)

	require.NoError(t, s.handleAdminBan(c, &wire.AdminBan{AccountID: 2, Reason: "cheating", DurationSecs: 3600}))

	assert.Equal(t, []repo.PunishmentKind{repo.PunishmentBan}, repository.punished)
	targetConn := target.conn.(*fakeConn)
	require.Eventually(t, func() bool { return targetConn.isClosed() }, time.Second, 5*time.Millisecond)
}

func TestHandleAdminUnban_Succeeds(t *testing.T) {
	repository := &fakeAdminRepo{}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminUnban(c, &wire.AdminUnban{AccountID: 2}))
	assert.Equal(t, []string{"unban"}, repository.loggedActions)
}

func TestHandleAdminMute_AppliesPunishment(t *testing.T) {
	repository := &fakeAdminRepo{}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminMute(c, &wire.AdminMute{AccountID: 2, DurationSecs: 60}))
	assert.Equal(t, []repo.PunishmentKind{repo.PunishmentMute}, repository.punished)
}

func TestHandleAdminEditRoles_UpdatesConnectedClientIdentity(t *testing.T) {
	repository := &fakeAdminRepo{}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")
	target := newTestClient(s, 2, "newbie", roles.Computed{})
	s.Clients.Insert(2, "newbie", target)

	require.NoError(t, s.handleAdminEditRoles(c, &wire.AdminEditRoles{AccountID: 2, RoleIDs: []string{"admin"}}))

	assert.True(t, target.Roles().Has(roles.CapKick))
}

func TestHandleAdminSetPassword_PersistsHash(t *testing.T) {
	repository := &fakeAdminRepo{}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminSetPassword(c, &wire.AdminSetPassword{Password: "new-password"}))
}

func TestHandleAdminFetchUser_ReportsNotFound(t *testing.T) {
	repository := &fakeAdminRepo{getUserErr: repo.ErrNotFound}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminFetchUser(c, &wire.AdminFetchUser{AccountID: 99}))

	conn := c.conn.(*fakeConn)
	require.Eventually(t, func() bool { return len(conn.writtenFrames()) == 1 }, time.Second, 5*time.Millisecond)
	decoded, err := wire.DecodeFrame(conn.writtenFrames()[0])
	require.NoError(t, err)
	info := decoded.(*wire.AdminUserInfo)
	assert.False(t, info.Found)
}

func TestHandleAdminFetchUser_ReturnsUserRecord(t *testing.T) {
	repository := &fakeAdminRepo{getUser: &repo.User{AccountID: 2, Username: "carol", Banned: true, BanReason: "exploit"}}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminFetchUser(c, &wire.AdminFetchUser{AccountID: 2}))

	conn := c.conn.(*fakeConn)
	require.Eventually(t, func() bool { return len(conn.writtenFrames()) == 1 }, time.Second, 5*time.Millisecond)
	decoded, err := wire.DecodeFrame(conn.writtenFrames()[0])
	require.NoError(t, err)
	info := decoded.(*wire.AdminUserInfo)
	assert.True(t, info.Found)
	assert.Equal(t, "carol", info.Username)
	assert.True(t, info.Banned)
}

func TestHandleAdminFetchLogs_ReturnsEntries(t *testing.T) {
	repository := &fakeAdminRepo{logs: []repo.Action{{IssuerAccountID: 1, Kind: "kick", Detail: "spam"}}}
	s := newAdminTestServer(repository)
	c := newAdminClient(s, 1, "mod")

	require.NoError(t, s.handleAdminFetchLogs(c, &wire.AdminFetchLogs{AccountID: 2, Limit: 10}))

	conn := c.conn.(*fakeConn)
	require.Eventually(t, func() bool { return len(conn.writtenFrames()) == 1 }, time.Second, 5*time.Millisecond)
	decoded, err := wire.DecodeFrame(conn.writtenFrames()[0])
	require.NoError(t, err)
	result := decoded.(*wire.AdminLogsResult)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "kick", result.Entries[0].Action)
}
