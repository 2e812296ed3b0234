package transport

import (
	"context"
	"strconv"
	"time"

	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/metrics"
	"github.com/globed-io/central/internal/wire"
	"go.uber.org/zap"
)

// dispatch decodes one frame and routes it to its handler. Decode errors
// (malformed frame, unknown kind, oversized string) are logged at warn and
// the message is dropped; the connection stays open, matching the error
// handling design's policy for decode failures.
func (s *Server) dispatch(c *Client, payload []byte) {
	msg, err := wire.DecodeFrame(payload)
	if err != nil {
		logging.Warn(context.Background(), "dropping malformed client frame", zap.Error(err))
		return
	}

	kind := strconv.Itoa(int(msg.Kind()))
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.MessagesTotal.WithLabelValues(kind, status).Inc()
		metrics.MessageProcessingDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	var handlerErr error
	switch m := msg.(type) {
	case *wire.LoginPlain:
		handlerErr = s.handleLoginPlain(c, m)
	case *wire.LoginUserToken:
		handlerErr = s.handleLoginUserToken(c, m)
	case *wire.LoginOracle:
		handlerErr = s.handleLoginOracle(c, m)

	case *wire.CreateRoom:
		handlerErr = s.handleCreateRoom(c, m)
	case *wire.JoinRoom:
		handlerErr = s.handleJoinRoom(c, m)
	case *wire.CloseRoom:
		handlerErr = s.handleCloseRoom(c, m)
	case *wire.CreateInviteToken:
		handlerErr = s.handleCreateInviteToken(c, m)
	case *wire.ConsumeInviteToken:
		handlerErr = s.handleConsumeInviteToken(c, m)
	case *wire.CreateTeam:
		handlerErr = s.handleCreateTeam(c, m)
	case *wire.DeleteTeam:
		handlerErr = s.handleDeleteTeam(c, m)
	case *wire.AssignTeam:
		handlerErr = s.handleAssignTeam(c, m)
	case *wire.CheckRoomState:
		handlerErr = s.handleCheckRoomState(c, m)
	case *wire.KickUser:
		handlerErr = s.handleKickUser(c, m)
	case *wire.BanUser:
		handlerErr = s.handleBanUser(c, m)

	case *wire.SessionJoin:
		handlerErr = s.handleSessionJoin(c, m)
	case *wire.SessionLeave:
		handlerErr = s.handleSessionLeave(c, m)
	case *wire.SessionWarp:
		handlerErr = s.handleSessionWarp(c, m)

	case *wire.AdminLogin:
		handlerErr = s.handleAdminLogin(c, m)
	case *wire.AdminKick:
		handlerErr = s.handleAdminKick(c, m)
	case *wire.AdminNotice:
		handlerErr = s.handleAdminNotice(c, m)
	case *wire.AdminBan:
		handlerErr = s.handleAdminBan(c, m)
	case *wire.AdminUnban:
		handlerErr = s.handleAdminUnban(c, m)
	case *wire.AdminRoomBan:
		handlerErr = s.handleAdminRoomBan(c, m)
	case *wire.AdminRoomUnban:
		handlerErr = s.handleAdminRoomUnban(c, m)
	case *wire.AdminMute:
		handlerErr = s.handleAdminMute(c, m)
	case *wire.AdminUnmute:
		handlerErr = s.handleAdminUnmute(c, m)
	case *wire.AdminEditRoles:
		handlerErr = s.handleAdminEditRoles(c, m)
	case *wire.AdminSetPassword:
		handlerErr = s.handleAdminSetPassword(c, m)
	case *wire.AdminFetchUser:
		handlerErr = s.handleAdminFetchUser(c, m)
	case *wire.AdminFetchLogs:
		handlerErr = s.handleAdminFetchLogs(c, m)

	default:
		status = "unhandled"
		return
	}

	if handlerErr != nil {
		status = "error"
		logging.Debug(context.Background(), "handler returned error",
			zap.Uint8("kind", uint8(msg.Kind())), zap.Error(handlerErr))
	}
}

// sendFrame encodes msg and enqueues it for delivery to c, logging (rather
// than propagating) an encode failure: a *wire.CapacityError here is a
// programming error in the estimated capacity, not something the caller can
// recover from mid-handler.
func (c *Client) sendFrame(msg wire.Message, estimatedCap int) {
	buf, err := wire.EncodeFrame(msg, estimatedCap)
	if err != nil {
		logging.Warn(context.Background(), "failed to encode outbound frame", zap.Error(err))
		return
	}
	c.enqueue(buf)
}
