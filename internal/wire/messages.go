package wire

// Field bounds enforced at both encode and decode time.
const (
	MaxUsernameLen = 16
	MaxRoomNameLen = 64
	MaxReasonLen   = 256
	MaxTokenLen    = 256
)

func init() {
	Register(KindLoginPlain, func() Message { return &LoginPlain{} })
	Register(KindLoginUserToken, func() Message { return &LoginUserToken{} })
	Register(KindLoginOracle, func() Message { return &LoginOracle{} })
	Register(KindLoginSuccess, func() Message { return &LoginSuccess{} })
	Register(KindLoginFailure, func() Message { return &LoginFailure{} })

	Register(KindCreateRoom, func() Message { return &CreateRoom{} })
	Register(KindCreateRoomResponse, func() Message { return &CreateRoomResponse{} })
	Register(KindJoinRoom, func() Message { return &JoinRoom{} })
	Register(KindJoinRoomResponse, func() Message { return &JoinRoomResponse{} })
	Register(KindCloseRoom, func() Message { return &CloseRoom{} })
	Register(KindRoomState, func() Message { return &RoomState{} })
	Register(KindCreateInviteToken, func() Message { return &CreateInviteToken{} })
	Register(KindInviteTokenCreated, func() Message { return &InviteTokenCreated{} })
	Register(KindConsumeInviteToken, func() Message { return &ConsumeInviteToken{} })
	Register(KindCreateTeam, func() Message { return &CreateTeam{} })
	Register(KindDeleteTeam, func() Message { return &DeleteTeam{} })
	Register(KindAssignTeam, func() Message { return &AssignTeam{} })
	Register(KindCheckRoomState, func() Message { return &CheckRoomState{} })
	Register(KindKickUser, func() Message { return &KickUser{} })
	Register(KindBanUser, func() Message { return &BanUser{} })

	Register(KindSessionJoin, func() Message { return &SessionJoin{} })
	Register(KindSessionLeave, func() Message { return &SessionLeave{} })
	Register(KindSessionWarp, func() Message { return &SessionWarp{} })

	Register(KindAdminLogin, func() Message { return &AdminLogin{} })
	Register(KindAdminKick, func() Message { return &AdminKick{} })
	Register(KindAdminNotice, func() Message { return &AdminNotice{} })
	Register(KindAdminBan, func() Message { return &AdminBan{} })
	Register(KindAdminUnban, func() Message { return &AdminUnban{} })
	Register(KindAdminRoomBan, func() Message { return &AdminRoomBan{} })
	Register(KindAdminRoomUnban, func() Message { return &AdminRoomUnban{} })
	Register(KindAdminMute, func() Message { return &AdminMute{} })
	Register(KindAdminUnmute, func() Message { return &AdminUnmute{} })
	Register(KindAdminEditRoles, func() Message { return &AdminEditRoles{} })
	Register(KindAdminSetPassword, func() Message { return &AdminSetPassword{} })
	Register(KindAdminFetchUser, func() Message { return &AdminFetchUser{} })
	Register(KindAdminFetchLogs, func() Message { return &AdminFetchLogs{} })
	Register(KindAdminResult, func() Message { return &AdminResult{} })
	Register(KindAdminUserInfo, func() Message { return &AdminUserInfo{} })
	Register(KindAdminLogsResult, func() Message { return &AdminLogsResult{} })

	Register(KindValidateCheckDataMany, func() Message { return &ValidateCheckDataMany{} })
	Register(KindValidateCheckDataManyResponse, func() Message { return &ValidateCheckDataManyResponse{} })

	Register(KindLoginSrv, func() Message { return &LoginSrv{} })
	Register(KindGameServerLoginOk, func() Message { return &GameServerLoginOk{} })
	Register(KindRoomCreatedNotify, func() Message { return &RoomCreatedNotify{} })
	Register(KindRoomCreatedAck, func() Message { return &RoomCreatedAck{} })

	Register(KindAdminUserDataChanged, func() Message { return &AdminUserDataChanged{} })
	Register(KindFleetPunishmentNotify, func() Message { return &FleetPunishmentNotify{} })
	Register(KindLoginRequired, func() Message { return &LoginRequired{} })
}

// --- login ---

type LoginPlain struct {
	Username string
	Password string
}

func (m *LoginPlain) Kind() Kind { return KindLoginPlain }

func (m *LoginPlain) Encode(w *Writer) error {
	if err := w.WriteBoundedString(m.Username, MaxUsernameLen); err != nil {
		return err
	}
	return w.WriteBoundedString(m.Password, MaxReasonLen)
}

func (m *LoginPlain) Decode(r *Reader) error {
	username, err := r.ReadBoundedString(MaxUsernameLen)
	if err != nil {
		return err
	}
	password, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Username, m.Password = username.String(), password.String()
	return nil
}

type LoginUserToken struct {
	Token string
}

func (m *LoginUserToken) Kind() Kind { return KindLoginUserToken }
func (m *LoginUserToken) Encode(w *Writer) error {
	return w.WriteBoundedString(m.Token, MaxTokenLen)
}
func (m *LoginUserToken) Decode(r *Reader) error {
	tok, err := r.ReadBoundedString(MaxTokenLen)
	if err != nil {
		return err
	}
	m.Token = tok.String()
	return nil
}

type LoginOracle struct {
	AccountID   int32
	OracleToken string
}

func (m *LoginOracle) Kind() Kind { return KindLoginOracle }
func (m *LoginOracle) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	return w.WriteBoundedString(m.OracleToken, MaxTokenLen)
}
func (m *LoginOracle) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	tok, err := r.ReadBoundedString(MaxTokenLen)
	if err != nil {
		return err
	}
	m.OracleToken = tok.String()
	return nil
}

type LoginSuccess struct {
	AccountID int32
	UserID    int32
	Username  string
	RoleStr   string
	NameColor string
	UserToken string
}

func (m *LoginSuccess) Kind() Kind { return KindLoginSuccess }
func (m *LoginSuccess) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteI32(m.UserID)
	if err := w.WriteBoundedString(m.Username, MaxUsernameLen); err != nil {
		return err
	}
	if err := w.WriteBoundedString(m.RoleStr, MaxReasonLen); err != nil {
		return err
	}
	if err := w.WriteBoundedString(m.NameColor, MaxReasonLen); err != nil {
		return err
	}
	return w.WriteBoundedString(m.UserToken, MaxTokenLen)
}
func (m *LoginSuccess) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.UserID, err = r.ReadI32(); err != nil {
		return err
	}
	username, err := r.ReadBoundedString(MaxUsernameLen)
	if err != nil {
		return err
	}
	role, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	color, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	tok, err := r.ReadBoundedString(MaxTokenLen)
	if err != nil {
		return err
	}
	m.Username, m.RoleStr, m.NameColor, m.UserToken = username.String(), role.String(), color.String(), tok.String()
	return nil
}

type LoginFailure struct {
	Reason string
}

func (m *LoginFailure) Kind() Kind { return KindLoginFailure }
func (m *LoginFailure) Encode(w *Writer) error {
	return w.WriteBoundedString(m.Reason, MaxReasonLen)
}
func (m *LoginFailure) Decode(r *Reader) error {
	reason, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Reason = reason.String()
	return nil
}

// --- rooms ---

// CreateRoom requests a custom room on a specific shard, identified by
// ServerID (the dense id fleet.Manager.Register assigned it). The shard must
// be present in the fleet or the request is rejected before anything is
// allocated.
type CreateRoom struct {
	Name     string
	Passcode uint32
	Settings uint32
	ServerID uint8
}

func (m *CreateRoom) Kind() Kind { return KindCreateRoom }
func (m *CreateRoom) Encode(w *Writer) error {
	if err := w.WriteBoundedString(m.Name, MaxRoomNameLen); err != nil {
		return err
	}
	w.WriteU32(m.Passcode)
	w.WriteU32(m.Settings)
	w.WriteU8(m.ServerID)
	return nil
}
func (m *CreateRoom) Decode(r *Reader) error {
	name, err := r.ReadBoundedString(MaxRoomNameLen)
	if err != nil {
		return err
	}
	if m.Passcode, err = r.ReadU32(); err != nil {
		return err
	}
	if m.Settings, err = r.ReadU32(); err != nil {
		return err
	}
	if m.ServerID, err = r.ReadU8(); err != nil {
		return err
	}
	m.Name = name.String()
	return nil
}

type CreateRoomResponse struct {
	RoomID uint32
}

func (m *CreateRoomResponse) Kind() Kind { return KindCreateRoomResponse }
func (m *CreateRoomResponse) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	return nil
}
func (m *CreateRoomResponse) Decode(r *Reader) error {
	var err error
	m.RoomID, err = r.ReadU32()
	return err
}

// JoinRoom joins a room either by passcode (RoomID + Passcode, InviteToken
// left zero) or by a one-shot token minted via CreateInviteToken
// (InviteToken nonzero; RoomID is ignored since the token alone identifies
// its room). Passcode == 0 on a room with no passcode always succeeds.
type JoinRoom struct {
	RoomID      uint32
	Passcode    uint32
	InviteToken uint64
}

func (m *JoinRoom) Kind() Kind { return KindJoinRoom }
func (m *JoinRoom) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	w.WriteU32(m.Passcode)
	w.WriteU64(m.InviteToken)
	return nil
}
func (m *JoinRoom) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	if m.Passcode, err = r.ReadU32(); err != nil {
		return err
	}
	m.InviteToken, err = r.ReadU64()
	return err
}

type JoinRoomResponse struct {
	OK     bool
	RoomID uint32
	Reason string
}

func (m *JoinRoomResponse) Kind() Kind { return KindJoinRoomResponse }
func (m *JoinRoomResponse) Encode(w *Writer) error {
	w.WriteBool(m.OK)
	w.WriteU32(m.RoomID)
	return w.WriteBoundedString(m.Reason, MaxReasonLen)
}
func (m *JoinRoomResponse) Decode(r *Reader) error {
	var err error
	if m.OK, err = r.ReadBool(); err != nil {
		return err
	}
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	reason, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Reason = reason.String()
	return nil
}

type CloseRoom struct {
	RoomID uint32
}

func (m *CloseRoom) Kind() Kind { return KindCloseRoom }
func (m *CloseRoom) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	return nil
}
func (m *CloseRoom) Decode(r *Reader) error {
	var err error
	m.RoomID, err = r.ReadU32()
	return err
}

// CheckRoomState requests an out-of-band RoomState frame for RoomID, the way
// a client would otherwise only receive one implicitly on join.
type CheckRoomState struct {
	RoomID uint32
}

func (m *CheckRoomState) Kind() Kind { return KindCheckRoomState }
func (m *CheckRoomState) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	return nil
}
func (m *CheckRoomState) Decode(r *Reader) error {
	var err error
	m.RoomID, err = r.ReadU32()
	return err
}

// RoomStatePlayer is one entry of RoomState's sampled player list.
type RoomStatePlayer struct {
	AccountID int32
	Username  string
	TeamIndex uint8
}

// RoomState answers CheckRoomState, and is also pushed on a successful
// create_room/join_room. A RoomID of 0 describes the global room, including
// the degenerate case of "the caller isn't in any custom room". Players is a
// sample, not necessarily the full roster: the global room caps it at 100,
// friends of the requester first, per the room-state sampling policy; any
// other room reports every occupant.
type RoomState struct {
	RoomID         uint32
	OwnerAccountID int32
	Name           string
	Joinable       bool
	LockedTeams    bool
	PrivateInvites bool
	PlayerCount    uint16
	Teams          []string
	Players        []RoomStatePlayer
}

func (m *RoomState) Kind() Kind { return KindRoomState }
func (m *RoomState) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	w.WriteI32(m.OwnerAccountID)
	if err := w.WriteBoundedString(m.Name, MaxRoomNameLen); err != nil {
		return err
	}
	w.WriteBool(m.Joinable)
	w.WriteBool(m.LockedTeams)
	w.WriteBool(m.PrivateInvites)
	w.WriteU16(m.PlayerCount)

	if len(m.Teams) > 255 {
		return ErrStringTooLong
	}
	w.WriteU8(uint8(len(m.Teams)))
	for _, name := range m.Teams {
		if err := w.WriteBoundedString(name, MaxRoomNameLen); err != nil {
			return err
		}
	}

	if len(m.Players) > 0xFFFF {
		return ErrStringTooLong
	}
	w.WriteU16(uint16(len(m.Players)))
	for _, p := range m.Players {
		w.WriteI32(p.AccountID)
		if err := w.WriteBoundedString(p.Username, MaxUsernameLen); err != nil {
			return err
		}
		w.WriteU8(p.TeamIndex)
	}
	return nil
}
func (m *RoomState) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	if m.OwnerAccountID, err = r.ReadI32(); err != nil {
		return err
	}
	name, err := r.ReadBoundedString(MaxRoomNameLen)
	if err != nil {
		return err
	}
	if m.Joinable, err = r.ReadBool(); err != nil {
		return err
	}
	if m.LockedTeams, err = r.ReadBool(); err != nil {
		return err
	}
	if m.PrivateInvites, err = r.ReadBool(); err != nil {
		return err
	}
	if m.PlayerCount, err = r.ReadU16(); err != nil {
		return err
	}

	teamCount, err := r.ReadU8()
	if err != nil {
		return err
	}
	teams := make([]string, 0, teamCount)
	for i := 0; i < int(teamCount); i++ {
		t, err := r.ReadBoundedString(MaxRoomNameLen)
		if err != nil {
			return err
		}
		teams = append(teams, t.String())
	}

	playerCount, err := r.ReadU16()
	if err != nil {
		return err
	}
	players := make([]RoomStatePlayer, 0, playerCount)
	for i := 0; i < int(playerCount); i++ {
		accountID, err := r.ReadI32()
		if err != nil {
			return err
		}
		username, err := r.ReadBoundedString(MaxUsernameLen)
		if err != nil {
			return err
		}
		teamIndex, err := r.ReadU8()
		if err != nil {
			return err
		}
		players = append(players, RoomStatePlayer{AccountID: accountID, Username: username.String(), TeamIndex: teamIndex})
	}

	m.Name = name.String()
	m.Teams = teams
	m.Players = players
	return nil
}

type CreateInviteToken struct {
	RoomID uint32
}

func (m *CreateInviteToken) Kind() Kind { return KindCreateInviteToken }
func (m *CreateInviteToken) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	return nil
}
func (m *CreateInviteToken) Decode(r *Reader) error {
	var err error
	m.RoomID, err = r.ReadU32()
	return err
}

type InviteTokenCreated struct {
	Token uint64
}

func (m *InviteTokenCreated) Kind() Kind { return KindInviteTokenCreated }
func (m *InviteTokenCreated) Encode(w *Writer) error {
	w.WriteU64(m.Token)
	return nil
}
func (m *InviteTokenCreated) Decode(r *Reader) error {
	var err error
	m.Token, err = r.ReadU64()
	return err
}

type ConsumeInviteToken struct {
	Token uint64
}

func (m *ConsumeInviteToken) Kind() Kind { return KindConsumeInviteToken }
func (m *ConsumeInviteToken) Encode(w *Writer) error {
	w.WriteU64(m.Token)
	return nil
}
func (m *ConsumeInviteToken) Decode(r *Reader) error {
	var err error
	m.Token, err = r.ReadU64()
	return err
}

type CreateTeam struct {
	RoomID uint32
	Name   string
}

func (m *CreateTeam) Kind() Kind { return KindCreateTeam }
func (m *CreateTeam) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	return w.WriteBoundedString(m.Name, MaxRoomNameLen)
}
func (m *CreateTeam) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	name, err := r.ReadBoundedString(MaxRoomNameLen)
	if err != nil {
		return err
	}
	m.Name = name.String()
	return nil
}

type DeleteTeam struct {
	RoomID    uint32
	TeamIndex uint8
}

func (m *DeleteTeam) Kind() Kind { return KindDeleteTeam }
func (m *DeleteTeam) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	w.WriteU8(m.TeamIndex)
	return nil
}
func (m *DeleteTeam) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	m.TeamIndex, err = r.ReadU8()
	return err
}

type AssignTeam struct {
	RoomID    uint32
	AccountID int32
	TeamIndex uint8
}

func (m *AssignTeam) Kind() Kind { return KindAssignTeam }
func (m *AssignTeam) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	w.WriteI32(m.AccountID)
	w.WriteU8(m.TeamIndex)
	return nil
}
func (m *AssignTeam) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.TeamIndex, err = r.ReadU8()
	return err
}

// KickUser removes AccountID from RoomID without banning it; only the room
// owner may send this, and the target may rejoin immediately afterward.
type KickUser struct {
	RoomID    uint32
	AccountID int32
}

func (m *KickUser) Kind() Kind { return KindKickUser }
func (m *KickUser) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	w.WriteI32(m.AccountID)
	return nil
}
func (m *KickUser) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	m.AccountID, err = r.ReadI32()
	return err
}

// BanUser removes AccountID from RoomID and adds it to the room's ban list,
// so it can no longer rejoin by passcode or invite token.
type BanUser struct {
	RoomID    uint32
	AccountID int32
}

func (m *BanUser) Kind() Kind { return KindBanUser }
func (m *BanUser) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	w.WriteI32(m.AccountID)
	return nil
}
func (m *BanUser) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	m.AccountID, err = r.ReadI32()
	return err
}

// --- sessions ---

type SessionJoin struct {
	AccountID int32
	RoomID    uint32
	ServerID  uint8
	SessionID uint64
}

func (m *SessionJoin) Kind() Kind { return KindSessionJoin }
func (m *SessionJoin) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU32(m.RoomID)
	w.WriteU8(m.ServerID)
	w.WriteU64(m.SessionID)
	return nil
}
func (m *SessionJoin) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	if m.ServerID, err = r.ReadU8(); err != nil {
		return err
	}
	m.SessionID, err = r.ReadU64()
	return err
}

type SessionLeave struct {
	AccountID int32
	SessionID uint64
}

func (m *SessionLeave) Kind() Kind { return KindSessionLeave }
func (m *SessionLeave) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU64(m.SessionID)
	return nil
}
func (m *SessionLeave) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.SessionID, err = r.ReadU64()
	return err
}

// SessionWarp notifies room members that a followed player's session
// changed, so their game clients can reconnect their spectator stream to the
// new session id without leaving the room.
type SessionWarp struct {
	AccountID    int32
	NewSessionID uint64
}

func (m *SessionWarp) Kind() Kind { return KindSessionWarp }
func (m *SessionWarp) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU64(m.NewSessionID)
	return nil
}
func (m *SessionWarp) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.NewSessionID, err = r.ReadU64()
	return err
}

// --- admin ---

type AdminLogin struct {
	Password string
}

func (m *AdminLogin) Kind() Kind { return KindAdminLogin }
func (m *AdminLogin) Encode(w *Writer) error {
	return w.WriteBoundedString(m.Password, MaxReasonLen)
}
func (m *AdminLogin) Decode(r *Reader) error {
	pw, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Password = pw.String()
	return nil
}

type AdminKick struct {
	AccountID int32
	Reason    string
}

func (m *AdminKick) Kind() Kind { return KindAdminKick }
func (m *AdminKick) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	return w.WriteBoundedString(m.Reason, MaxReasonLen)
}
func (m *AdminKick) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	reason, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Reason = reason.String()
	return nil
}

// Notice target-resolution modes. Mode selects which of AccountID/Username/
// RoomID is consulted; the other fields are ignored and should be left zero.
const (
	NoticeModeAccount uint8 = iota
	NoticeModeUsername
	NoticeModeRoom
	NoticeModeEveryone
)

// AdminNotice carries a moderator-issued message to one or more clients.
// Mode picks the target: a single account, a single username (matched
// case-insensitively), every occupant of a room, or every connected client.
// CanReply tells the receiving client whether to offer a reply box; when
// ShowSender is false, the delivered copy carries AccountID 0 so the
// recipient can't see who sent it.
type AdminNotice struct {
	Mode       uint8
	AccountID  int32
	Username   string
	RoomID     uint32
	Message    string
	CanReply   bool
	ShowSender bool
}

func (m *AdminNotice) Kind() Kind { return KindAdminNotice }
func (m *AdminNotice) Encode(w *Writer) error {
	w.WriteU8(m.Mode)
	w.WriteI32(m.AccountID)
	if err := w.WriteBoundedString(m.Username, MaxUsernameLen); err != nil {
		return err
	}
	w.WriteU32(m.RoomID)
	if err := w.WriteBoundedString(m.Message, MaxReasonLen); err != nil {
		return err
	}
	w.WriteBool(m.CanReply)
	w.WriteBool(m.ShowSender)
	return nil
}
func (m *AdminNotice) Decode(r *Reader) error {
	var err error
	if m.Mode, err = r.ReadU8(); err != nil {
		return err
	}
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	username, err := r.ReadBoundedString(MaxUsernameLen)
	if err != nil {
		return err
	}
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	msg, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	if m.CanReply, err = r.ReadBool(); err != nil {
		return err
	}
	if m.ShowSender, err = r.ReadBool(); err != nil {
		return err
	}
	m.Username = username.String()
	m.Message = msg.String()
	return nil
}

type AdminBan struct {
	AccountID    int32
	Reason       string
	DurationSecs uint32
}

func (m *AdminBan) Kind() Kind { return KindAdminBan }
func (m *AdminBan) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU32(m.DurationSecs)
	return w.WriteBoundedString(m.Reason, MaxReasonLen)
}
func (m *AdminBan) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.DurationSecs, err = r.ReadU32(); err != nil {
		return err
	}
	reason, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Reason = reason.String()
	return nil
}

type AdminUnban struct {
	AccountID int32
}

func (m *AdminUnban) Kind() Kind { return KindAdminUnban }
func (m *AdminUnban) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	return nil
}
func (m *AdminUnban) Decode(r *Reader) error {
	var err error
	m.AccountID, err = r.ReadI32()
	return err
}

type AdminRoomBan struct {
	AccountID int32
	RoomID    uint32
	Reason    string
}

func (m *AdminRoomBan) Kind() Kind { return KindAdminRoomBan }
func (m *AdminRoomBan) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU32(m.RoomID)
	return w.WriteBoundedString(m.Reason, MaxReasonLen)
}
func (m *AdminRoomBan) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	reason, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Reason = reason.String()
	return nil
}

type AdminRoomUnban struct {
	AccountID int32
	RoomID    uint32
}

func (m *AdminRoomUnban) Kind() Kind { return KindAdminRoomUnban }
func (m *AdminRoomUnban) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU32(m.RoomID)
	return nil
}
func (m *AdminRoomUnban) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.RoomID, err = r.ReadU32()
	return err
}

type AdminMute struct {
	AccountID    int32
	DurationSecs uint32
}

func (m *AdminMute) Kind() Kind { return KindAdminMute }
func (m *AdminMute) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU32(m.DurationSecs)
	return nil
}
func (m *AdminMute) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.DurationSecs, err = r.ReadU32()
	return err
}

type AdminUnmute struct {
	AccountID int32
}

func (m *AdminUnmute) Kind() Kind { return KindAdminUnmute }
func (m *AdminUnmute) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	return nil
}
func (m *AdminUnmute) Decode(r *Reader) error {
	var err error
	m.AccountID, err = r.ReadI32()
	return err
}

// AdminEditRoles replaces the target account's role id set. Role ids are
// short bounded strings (e.g. "mod", "helper"), at most 255 of them.
type AdminEditRoles struct {
	AccountID int32
	RoleIDs   []string
}

func (m *AdminEditRoles) Kind() Kind { return KindAdminEditRoles }
func (m *AdminEditRoles) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	if len(m.RoleIDs) > 255 {
		return ErrStringTooLong
	}
	w.WriteU8(uint8(len(m.RoleIDs)))
	for _, id := range m.RoleIDs {
		if err := w.WriteBoundedString(id, MaxUsernameLen); err != nil {
			return err
		}
	}
	return nil
}
func (m *AdminEditRoles) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	count, err := r.ReadU8()
	if err != nil {
		return err
	}
	roles := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		id, err := r.ReadBoundedString(MaxUsernameLen)
		if err != nil {
			return err
		}
		roles = append(roles, id.String())
	}
	m.RoleIDs = roles
	return nil
}

type AdminSetPassword struct {
	Password string
}

func (m *AdminSetPassword) Kind() Kind { return KindAdminSetPassword }
func (m *AdminSetPassword) Encode(w *Writer) error {
	return w.WriteBoundedString(m.Password, MaxReasonLen)
}
func (m *AdminSetPassword) Decode(r *Reader) error {
	pw, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Password = pw.String()
	return nil
}

type AdminFetchUser struct {
	AccountID int32
}

func (m *AdminFetchUser) Kind() Kind { return KindAdminFetchUser }
func (m *AdminFetchUser) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	return nil
}
func (m *AdminFetchUser) Decode(r *Reader) error {
	var err error
	m.AccountID, err = r.ReadI32()
	return err
}

type AdminFetchLogs struct {
	AccountID int32
	Limit     uint16
}

func (m *AdminFetchLogs) Kind() Kind { return KindAdminFetchLogs }
func (m *AdminFetchLogs) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	w.WriteU16(m.Limit)
	return nil
}
func (m *AdminFetchLogs) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	m.Limit, err = r.ReadU16()
	return err
}

// AdminResult is the shared reply for every admin action that doesn't
// return a payload of its own (kick, ban, mute, role edit, ...): success or
// a stringified reason.
type AdminResult struct {
	OK     bool
	Reason string
}

func (m *AdminResult) Kind() Kind { return KindAdminResult }
func (m *AdminResult) Encode(w *Writer) error {
	w.WriteBool(m.OK)
	return w.WriteBoundedString(m.Reason, MaxReasonLen)
}
func (m *AdminResult) Decode(r *Reader) error {
	ok, err := r.ReadBool()
	if err != nil {
		return err
	}
	reason, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.OK = ok
	m.Reason = reason.String()
	return nil
}

// AdminUserInfo answers AdminFetchUser.
type AdminUserInfo struct {
	Found     bool
	AccountID int32
	UserID    int32
	Username  string
	RolesCSV  string
	Banned    bool
	BanReason string
	Muted     bool
}

func (m *AdminUserInfo) Kind() Kind { return KindAdminUserInfo }
func (m *AdminUserInfo) Encode(w *Writer) error {
	w.WriteBool(m.Found)
	w.WriteI32(m.AccountID)
	w.WriteI32(m.UserID)
	if err := w.WriteBoundedString(m.Username, MaxUsernameLen); err != nil {
		return err
	}
	if err := w.WriteBoundedString(m.RolesCSV, MaxReasonLen); err != nil {
		return err
	}
	w.WriteBool(m.Banned)
	if err := w.WriteBoundedString(m.BanReason, MaxReasonLen); err != nil {
		return err
	}
	w.WriteBool(m.Muted)
	return nil
}
func (m *AdminUserInfo) Decode(r *Reader) error {
	found, err := r.ReadBool()
	if err != nil {
		return err
	}
	accountID, err := r.ReadI32()
	if err != nil {
		return err
	}
	userID, err := r.ReadI32()
	if err != nil {
		return err
	}
	username, err := r.ReadBoundedString(MaxUsernameLen)
	if err != nil {
		return err
	}
	rolesCSV, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	banned, err := r.ReadBool()
	if err != nil {
		return err
	}
	banReason, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	muted, err := r.ReadBool()
	if err != nil {
		return err
	}
	m.Found = found
	m.AccountID = accountID
	m.UserID = userID
	m.Username = username.String()
	m.RolesCSV = rolesCSV.String()
	m.Banned = banned
	m.BanReason = banReason.String()
	m.Muted = muted
	return nil
}

// AdminLogEntry is one row within an AdminLogsResult.
type AdminLogEntry struct {
	ActorAccountID  int32
	TargetAccountID int32
	Action          string
	Reason          string
	CreatedAtUnix   int64
}

// AdminLogsResult answers AdminFetchLogs.
type AdminLogsResult struct {
	Entries []AdminLogEntry
}

func (m *AdminLogsResult) Kind() Kind { return KindAdminLogsResult }
func (m *AdminLogsResult) Encode(w *Writer) error {
	if len(m.Entries) > 0xFFFF {
		return ErrStringTooLong
	}
	w.WriteU16(uint16(len(m.Entries)))
	for _, e := range m.Entries {
		w.WriteI32(e.ActorAccountID)
		w.WriteI32(e.TargetAccountID)
		if err := w.WriteBoundedString(e.Action, MaxUsernameLen); err != nil {
			return err
		}
		if err := w.WriteBoundedString(e.Reason, MaxReasonLen); err != nil {
			return err
		}
		w.WriteI64(e.CreatedAtUnix)
	}
	return nil
}
func (m *AdminLogsResult) Decode(r *Reader) error {
	count, err := r.ReadU16()
	if err != nil {
		return err
	}
	entries := make([]AdminLogEntry, 0, count)
	for i := 0; i < int(count); i++ {
		var e AdminLogEntry
		if e.ActorAccountID, err = r.ReadI32(); err != nil {
			return err
		}
		if e.TargetAccountID, err = r.ReadI32(); err != nil {
			return err
		}
		action, err := r.ReadBoundedString(MaxUsernameLen)
		if err != nil {
			return err
		}
		reason, err := r.ReadBoundedString(MaxReasonLen)
		if err != nil {
			return err
		}
		if e.CreatedAtUnix, err = r.ReadI64(); err != nil {
			return err
		}
		e.Action = action.String()
		e.Reason = reason.String()
		entries = append(entries, e)
	}
	m.Entries = entries
	return nil
}

// AdminUserDataChanged is pushed to a connected client right after an admin
// edits its roles, carrying a freshly issued reconnect token so the client
// doesn't keep authenticating with one that embeds its old role string.
type AdminUserDataChanged struct {
	RolesCSV  string
	UserToken string
}

func (m *AdminUserDataChanged) Kind() Kind { return KindAdminUserDataChanged }
func (m *AdminUserDataChanged) Encode(w *Writer) error {
	if err := w.WriteBoundedString(m.RolesCSV, MaxReasonLen); err != nil {
		return err
	}
	return w.WriteBoundedString(m.UserToken, MaxTokenLen)
}
func (m *AdminUserDataChanged) Decode(r *Reader) error {
	rolesCSV, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	token, err := r.ReadBoundedString(MaxTokenLen)
	if err != nil {
		return err
	}
	m.RolesCSV = rolesCSV.String()
	m.UserToken = token.String()
	return nil
}

// FleetPunishmentNotify is broadcast to every connected game-server shard
// whenever a moderation action changes an account's standing, so each shard
// can refresh its own locally cached copy of that account's state.
type FleetPunishmentNotify struct {
	AccountID int32
	Action    string
	Active    bool
}

func (m *FleetPunishmentNotify) Kind() Kind { return KindFleetPunishmentNotify }
func (m *FleetPunishmentNotify) Encode(w *Writer) error {
	w.WriteI32(m.AccountID)
	if err := w.WriteBoundedString(m.Action, MaxUsernameLen); err != nil {
		return err
	}
	w.WriteBool(m.Active)
	return nil
}
func (m *FleetPunishmentNotify) Decode(r *Reader) error {
	var err error
	if m.AccountID, err = r.ReadI32(); err != nil {
		return err
	}
	action, err := r.ReadBoundedString(MaxUsernameLen)
	if err != nil {
		return err
	}
	if m.Active, err = r.ReadBool(); err != nil {
		return err
	}
	m.Action = action.String()
	return nil
}

// LoginRequired answers LoginPlain when identity verification is mandatory:
// the client is expected to redo the handshake through OracleURL instead.
type LoginRequired struct {
	OracleURL string
}

func (m *LoginRequired) Kind() Kind { return KindLoginRequired }
func (m *LoginRequired) Encode(w *Writer) error {
	return w.WriteBoundedString(m.OracleURL, MaxReasonLen)
}
func (m *LoginRequired) Decode(r *Reader) error {
	url, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.OracleURL = url.String()
	return nil
}

// --- game-server uplink ---
//
// This is a second, separate protocol spoken only by upstream game-server
// shards over their own listener socket, not by player clients. GameServerData
// and GameServerLoginOk are named distinctly from the client-facing
// LoginPlain/LoginSuccess pair above even though both protocols use
// "login"/"success" vocabulary, since the two have nothing else in common: a
// shard never touches the account/room/session machinery a player client
// drives.

// GameServerData identifies an upstream shard during its LoginSrv handshake.
type GameServerData struct {
	StringID string
	Name     string
	Region   string
	Address  string
}

// LoginSrv is the first message an upstream shard sends after connecting to
// the game-server uplink listener. Password is checked in constant time
// against the configured shared secret.
type LoginSrv struct {
	Password string
	Data     GameServerData
}

func (m *LoginSrv) Kind() Kind { return KindLoginSrv }
func (m *LoginSrv) Encode(w *Writer) error {
	if err := w.WriteBoundedString(m.Password, MaxReasonLen); err != nil {
		return err
	}
	if err := w.WriteBoundedString(m.Data.StringID, MaxUsernameLen); err != nil {
		return err
	}
	if err := w.WriteBoundedString(m.Data.Name, MaxRoomNameLen); err != nil {
		return err
	}
	if err := w.WriteBoundedString(m.Data.Region, MaxUsernameLen); err != nil {
		return err
	}
	return w.WriteBoundedString(m.Data.Address, MaxReasonLen)
}
func (m *LoginSrv) Decode(r *Reader) error {
	password, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	stringID, err := r.ReadBoundedString(MaxUsernameLen)
	if err != nil {
		return err
	}
	name, err := r.ReadBoundedString(MaxRoomNameLen)
	if err != nil {
		return err
	}
	region, err := r.ReadBoundedString(MaxUsernameLen)
	if err != nil {
		return err
	}
	address, err := r.ReadBoundedString(MaxReasonLen)
	if err != nil {
		return err
	}
	m.Password = password.String()
	m.Data = GameServerData{
		StringID: stringID.String(),
		Name:     name.String(),
		Region:   region.String(),
		Address:  address.String(),
	}
	return nil
}

// GameServerLoginOk is the reply to a successful LoginSrv: the shard's dense
// id, a key pair it uses to authenticate gameplay traffic out-of-band, and
// the role table the shard needs to enforce moderation locally.
type GameServerLoginOk struct {
	ServerID    uint8
	TokenKey    string
	ScriptKey   string
	TokenExpiry int64
	Roles       []string
}

func (m *GameServerLoginOk) Kind() Kind { return KindGameServerLoginOk }
func (m *GameServerLoginOk) Encode(w *Writer) error {
	w.WriteU8(m.ServerID)
	if err := w.WriteBoundedString(m.TokenKey, MaxTokenLen); err != nil {
		return err
	}
	if err := w.WriteBoundedString(m.ScriptKey, MaxTokenLen); err != nil {
		return err
	}
	w.WriteI64(m.TokenExpiry)
	if len(m.Roles) > 255 {
		return ErrStringTooLong
	}
	w.WriteU8(uint8(len(m.Roles)))
	for _, id := range m.Roles {
		if err := w.WriteBoundedString(id, MaxUsernameLen); err != nil {
			return err
		}
	}
	return nil
}
func (m *GameServerLoginOk) Decode(r *Reader) error {
	var err error
	if m.ServerID, err = r.ReadU8(); err != nil {
		return err
	}
	tokenKey, err := r.ReadBoundedString(MaxTokenLen)
	if err != nil {
		return err
	}
	scriptKey, err := r.ReadBoundedString(MaxTokenLen)
	if err != nil {
		return err
	}
	if m.TokenExpiry, err = r.ReadI64(); err != nil {
		return err
	}
	count, err := r.ReadU8()
	if err != nil {
		return err
	}
	roleIDs := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		id, err := r.ReadBoundedString(MaxUsernameLen)
		if err != nil {
			return err
		}
		roleIDs = append(roleIDs, id.String())
	}
	m.TokenKey, m.ScriptKey, m.Roles = tokenKey.String(), scriptKey.String(), roleIDs
	return nil
}

// RoomCreatedNotify is sent down to the designated shard when a client
// creates a custom room on it; the shard is expected to reply with
// RoomCreatedAck once it has provisioned the room locally.
type RoomCreatedNotify struct {
	RoomID   uint32
	RoomName string
}

func (m *RoomCreatedNotify) Kind() Kind { return KindRoomCreatedNotify }
func (m *RoomCreatedNotify) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	return w.WriteBoundedString(m.RoomName, MaxRoomNameLen)
}
func (m *RoomCreatedNotify) Decode(r *Reader) error {
	var err error
	if m.RoomID, err = r.ReadU32(); err != nil {
		return err
	}
	name, err := r.ReadBoundedString(MaxRoomNameLen)
	if err != nil {
		return err
	}
	m.RoomName = name.String()
	return nil
}

// RoomCreatedAck is the shard's reply to RoomCreatedNotify. It resolves the
// fleet manager's pending waiter for RoomID.
type RoomCreatedAck struct {
	RoomID uint32
}

func (m *RoomCreatedAck) Kind() Kind { return KindRoomCreatedAck }
func (m *RoomCreatedAck) Encode(w *Writer) error {
	w.WriteU32(m.RoomID)
	return nil
}
func (m *RoomCreatedAck) Decode(r *Reader) error {
	var err error
	m.RoomID, err = r.ReadU32()
	return err
}

// --- identity oracle bridge ---

// ValidateRequest is one entry of a ValidateCheckDataMany batch.
type ValidateRequest struct {
	AccountID int32
	Token     string
}

// ValidateCheckDataMany batches pending token validations to the identity
// oracle, matching the oracle's own ValidateCheckDataMany frame layout.
type ValidateCheckDataMany struct {
	Requests []ValidateRequest
}

func (m *ValidateCheckDataMany) Kind() Kind { return KindValidateCheckDataMany }
func (m *ValidateCheckDataMany) Encode(w *Writer) error {
	if len(m.Requests) > 65535 {
		return ErrStringTooLong
	}
	w.WriteU16(uint16(len(m.Requests)))
	for _, req := range m.Requests {
		w.WriteI32(req.AccountID)
		if err := w.WriteBoundedString(req.Token, MaxTokenLen); err != nil {
			return err
		}
	}
	return nil
}
func (m *ValidateCheckDataMany) Decode(r *Reader) error {
	count, err := r.ReadU16()
	if err != nil {
		return err
	}
	reqs := make([]ValidateRequest, 0, count)
	for i := 0; i < int(count); i++ {
		accountID, err := r.ReadI32()
		if err != nil {
			return err
		}
		token, err := r.ReadBoundedString(MaxTokenLen)
		if err != nil {
			return err
		}
		reqs = append(reqs, ValidateRequest{AccountID: accountID, Token: token.String()})
	}
	m.Requests = reqs
	return nil
}

// ValidateResult is one entry of a ValidateCheckDataManyResponse batch. On
// success UserID/Username are populated and Reason is empty; on failure
// Reason explains why and UserID/Username are zero.
type ValidateResult struct {
	AccountID int32
	Valid     bool
	UserID    int32
	Username  string
	Reason    string
}

// ValidateCheckDataManyResponse is the oracle's reply to a
// ValidateCheckDataMany batch, correlated back to in-flight requests by
// account id.
type ValidateCheckDataManyResponse struct {
	Results []ValidateResult
}

func (m *ValidateCheckDataManyResponse) Kind() Kind { return KindValidateCheckDataManyResponse }
func (m *ValidateCheckDataManyResponse) Encode(w *Writer) error {
	if len(m.Results) > 65535 {
		return ErrStringTooLong
	}
	w.WriteU16(uint16(len(m.Results)))
	for _, res := range m.Results {
		w.WriteI32(res.AccountID)
		w.WriteBool(res.Valid)
		if res.Valid {
			w.WriteI32(res.UserID)
			if err := w.WriteBoundedString(res.Username, MaxUsernameLen); err != nil {
				return err
			}
		} else {
			if err := w.WriteBoundedString(res.Reason, MaxReasonLen); err != nil {
				return err
			}
		}
	}
	return nil
}
func (m *ValidateCheckDataManyResponse) Decode(r *Reader) error {
	count, err := r.ReadU16()
	if err != nil {
		return err
	}
	results := make([]ValidateResult, 0, count)
	for i := 0; i < int(count); i++ {
		accountID, err := r.ReadI32()
		if err != nil {
			return err
		}
		valid, err := r.ReadBool()
		if err != nil {
			return err
		}
		res := ValidateResult{AccountID: accountID, Valid: valid}
		if valid {
			if res.UserID, err = r.ReadI32(); err != nil {
				return err
			}
			username, err := r.ReadBoundedString(MaxUsernameLen)
			if err != nil {
				return err
			}
			res.Username = username.String()
		} else {
			reason, err := r.ReadBoundedString(MaxReasonLen)
			if err != nil {
				return err
			}
			res.Reason = reason.String()
		}
		results = append(results, res)
	}
	m.Results = results
	return nil
}
