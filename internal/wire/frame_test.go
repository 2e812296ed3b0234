package wire

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := &CreateRoom{Name: "cool room", Settings: 7}

	buf, err := EncodeFrame(msg, 256)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)

	got, ok := decoded.(*CreateRoom)
	require.True(t, ok)
	assert.Equal(t, msg.Name, got.Name)
	assert.Equal(t, msg.Settings, got.Settings)
}

func TestEncodeDecode_ScratchPath(t *testing.T) {
	msg := &SessionLeave{AccountID: 42, SessionID: 99}

	buf, err := EncodeFrame(msg, 32)
	require.NoError(t, err)
	defer Put(buf)
	assert.LessOrEqual(t, len(buf), scratchThreshold)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*SessionLeave)
	assert.Equal(t, msg.AccountID, got.AccountID)
	assert.Equal(t, msg.SessionID, got.SessionID)
}

func TestEncodeFrame_CapacityUnderestimate(t *testing.T) {
	msg := &CreateRoom{Name: strings.Repeat("a", 60), Settings: 1}

	_, err := EncodeFrame(msg, 4)
	require.Error(t, err)

	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 4, capErr.Estimated)
	assert.Greater(t, capErr.Needed, capErr.Estimated)
	assert.NotEmpty(t, capErr.File)
	assert.Contains(t, capErr.Error(), "underestimated")
}

func TestEncodeFrame_NameTooLong(t *testing.T) {
	msg := &CreateRoom{Name: strings.Repeat("x", MaxRoomNameLen+1)}

	_, err := EncodeFrame(msg, 256)
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestDecodeFrame_UnknownKind(t *testing.T) {
	buf := []byte{0xFF}
	_, err := DecodeFrame(buf)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecodeFrame_TruncatedBuffer(t *testing.T) {
	buf := []byte{byte(KindSessionLeave)}
	_, err := DecodeFrame(buf)
	assert.ErrorIs(t, err, ErrBufferTooShort)
}

func TestDecode_RejectsOversizedUsername(t *testing.T) {
	w := NewWriter(make([]byte, 0, 256))
	longName := strings.Repeat("z", MaxUsernameLen+5)
	w.WriteU16(uint16(len(longName)))
	w.WriteRawBytes([]byte(longName))
	require.False(t, w.Overflowed())

	r := NewReader(w.Bytes())
	_, err := r.ReadBoundedString(MaxUsernameLen)
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestValidateCheckDataManyResponse_RoundTrip(t *testing.T) {
	msg := &ValidateCheckDataManyResponse{Results: []ValidateResult{
		{AccountID: 1, Valid: true, UserID: 7, Username: "alice"},
		{AccountID: 2, Valid: false, Reason: "expired"},
	}}

	buf, err := EncodeFrame(msg, 512)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*ValidateCheckDataManyResponse)
	require.Len(t, got.Results, 2)
	assert.Equal(t, msg.Results[0], got.Results[0])
	assert.Equal(t, msg.Results[1], got.Results[1])
}

func TestValidateCheckDataMany_RoundTrip(t *testing.T) {
	msg := &ValidateCheckDataMany{Requests: []ValidateRequest{
		{AccountID: 1, Token: "abc"},
		{AccountID: 2, Token: "def"},
	}}

	buf, err := EncodeFrame(msg, 512)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*ValidateCheckDataMany)
	require.Len(t, got.Requests, 2)
	assert.Equal(t, msg.Requests[0].AccountID, got.Requests[0].AccountID)
	assert.Equal(t, msg.Requests[1].Token, got.Requests[1].Token)
}

func TestAdminEditRoles_RoundTrip(t *testing.T) {
	msg := &AdminEditRoles{AccountID: 7, RoleIDs: []string{"mod", "helper"}}

	buf, err := EncodeFrame(msg, 128)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*AdminEditRoles)
	assert.Equal(t, msg.RoleIDs, got.RoleIDs)
}

func TestCreateRoom_RoundTrip_WithPasscodeAndServerID(t *testing.T) {
	msg := &CreateRoom{Name: "cool room", Passcode: 1234, Settings: 7, ServerID: 3}

	buf, err := EncodeFrame(msg, 256)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*CreateRoom)
	assert.Equal(t, *msg, *got)
}

func TestJoinRoom_RoundTrip_ByPasscode(t *testing.T) {
	msg := &JoinRoom{RoomID: 42, Passcode: 999}

	buf, err := EncodeFrame(msg, 32)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*JoinRoom)
	assert.Equal(t, *msg, *got)
}

func TestJoinRoom_RoundTrip_ByInviteToken(t *testing.T) {
	msg := &JoinRoom{InviteToken: 123456}

	buf, err := EncodeFrame(msg, 32)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*JoinRoom)
	assert.Equal(t, *msg, *got)
}

func TestAdminResult_RoundTrip(t *testing.T) {
	msg := &AdminResult{OK: false, Reason: "insufficient rank"}

	buf, err := EncodeFrame(msg, 64)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*AdminResult)
	assert.Equal(t, *msg, *got)
}

func TestAdminUserInfo_RoundTrip(t *testing.T) {
	msg := &AdminUserInfo{
		Found:     true,
		AccountID: 7,
		UserID:    9,
		Username:  "player1",
		RolesCSV:  "mod,helper",
		Banned:    true,
		BanReason: "cheating",
		Muted:     false,
	}

	buf, err := EncodeFrame(msg, 512)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*AdminUserInfo)
	assert.Equal(t, *msg, *got)
}

func TestAdminLogsResult_RoundTrip(t *testing.T) {
	msg := &AdminLogsResult{Entries: []AdminLogEntry{
		{ActorAccountID: 1, TargetAccountID: 2, Action: "kick", Reason: "spam", CreatedAtUnix: 1700000000},
		{ActorAccountID: 3, TargetAccountID: 2, Action: "ban", Reason: "cheating", CreatedAtUnix: 1700000100},
	}}

	buf, err := EncodeFrame(msg, 1024)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*AdminLogsResult)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, msg.Entries[0], got.Entries[0])
	assert.Equal(t, msg.Entries[1], got.Entries[1])
}

func TestLoginSrv_RoundTrip(t *testing.T) {
	msg := &LoginSrv{
		Password: "hunter2",
		Data: GameServerData{
			StringID: "main-1",
			Name:     "Main Server",
			Region:   "us-east",
			Address:  "10.0.0.5:4202",
		},
	}

	buf, err := EncodeFrame(msg, 256)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*LoginSrv)
	assert.Equal(t, *msg, *got)
}

func TestGameServerLoginOk_RoundTrip(t *testing.T) {
	msg := &GameServerLoginOk{
		ServerID:    3,
		TokenKey:    "key-123",
		ScriptKey:   "script-456",
		TokenExpiry: 1700000000,
		Roles:       []string{"mod", "helper"},
	}

	buf, err := EncodeFrame(msg, 256)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*GameServerLoginOk)
	assert.Equal(t, *msg, *got)
}

func TestRoomCreatedNotify_RoundTrip(t *testing.T) {
	msg := &RoomCreatedNotify{RoomID: 88, RoomName: "Speedrun Lobby"}

	buf, err := EncodeFrame(msg, 128)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*RoomCreatedNotify)
	assert.Equal(t, *msg, *got)
}

func TestRoomCreatedAck_RoundTrip(t *testing.T) {
	msg := &RoomCreatedAck{RoomID: 88}

	buf, err := EncodeFrame(msg, 32)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*RoomCreatedAck)
	assert.Equal(t, *msg, *got)
}

func TestLoginSuccess_RoundTrip(t *testing.T) {
	msg := &LoginSuccess{
		AccountID: 5,
		UserID:    9,
		Username:  "player1",
		RoleStr:   "admin",
		NameColor: "#ff0000",
		UserToken: "sometoken",
	}

	buf, err := EncodeFrame(msg, 512)
	require.NoError(t, err)
	defer Put(buf)

	decoded, err := DecodeFrame(buf)
	require.NoError(t, err)
	got := decoded.(*LoginSuccess)
	assert.Equal(t, *msg, *got)
}
