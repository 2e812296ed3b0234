package wire

// Kind tags the arm of the wire protocol's tagged union a frame carries.
type Kind uint8

// Oracle bridge kinds match the identity oracle's own framing exactly, since
// those numbers are fixed by the oracle's protocol, not ours to assign.
const (
	KindValidateCheckDataMany         Kind = 13
	KindValidateCheckDataManyResponse Kind = 14
)

// Client/game-server protocol kinds. Grouped by the module that owns them;
// gaps are left between groups so a module can grow without renumbering its
// neighbors.
const (
	KindLoginPlain Kind = iota + 32
	KindLoginUserToken
	KindLoginOracle
	KindLoginSuccess
	KindLoginFailure
)

const (
	KindCreateRoom Kind = iota + 48
	KindCreateRoomResponse
	KindJoinRoom
	KindJoinRoomResponse
	KindCloseRoom
	KindRoomState
	KindCreateInviteToken
	KindInviteTokenCreated
	KindConsumeInviteToken
	KindCreateTeam
	KindDeleteTeam
	KindAssignTeam
	KindCheckRoomState
	KindKickUser
	KindBanUser
)

const (
	KindSessionJoin Kind = iota + 80
	KindSessionLeave
	KindSessionWarp
)

const (
	KindLoginSrv Kind = iota + 112
	KindGameServerLoginOk
	KindRoomCreatedNotify
	KindRoomCreatedAck
)

// KindAdminUserDataChanged and KindFleetPunishmentNotify extend the admin
// group past its original span (96-111, now full); 116 picks up right after
// the game-server uplink group ends at 115.
const (
	KindAdminUserDataChanged Kind = iota + 116
	KindFleetPunishmentNotify
	KindLoginRequired
)

const (
	KindAdminLogin Kind = iota + 96
	KindAdminKick
	KindAdminNotice
	KindAdminBan
	KindAdminUnban
	KindAdminRoomBan
	KindAdminRoomUnban
	KindAdminMute
	KindAdminUnmute
	KindAdminEditRoles
	KindAdminSetPassword
	KindAdminFetchUser
	KindAdminFetchLogs
	KindAdminResult
	KindAdminUserInfo
	KindAdminLogsResult
)

// Message is implemented by every frame body. Encode/Decode operate on an
// already-positioned Writer/Reader; the kind tag itself is handled by
// EncodeFrame/DecodeFrame.
type Message interface {
	Kind() Kind
	Encode(w *Writer) error
	Decode(r *Reader) error
}

type factory func() Message

var registry = map[Kind]factory{}

// Register associates a Kind with a zero-value constructor. Called from
// package init in messages.go, one entry per concrete message type.
func Register(kind Kind, newMessage factory) {
	registry[kind] = newMessage
}
