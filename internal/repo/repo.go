// Package repo defines the persistence boundary: user records, punishments,
// the audit log, and linked accounts. The central server holds no other
// durable state of its own.
package repo

import (
	"context"
	"time"
)

// PunishmentKind distinguishes the three moderation actions a punishment
// record can represent.
type PunishmentKind int

const (
	PunishmentBan PunishmentKind = iota
	PunishmentMute
	PunishmentRoomBan
)

func (k PunishmentKind) String() string {
	switch k {
	case PunishmentBan:
		return "ban"
	case PunishmentMute:
		return "mute"
	case PunishmentRoomBan:
		return "room_ban"
	default:
		return "unknown"
	}
}

// User is a persisted account record.
type User struct {
	AccountID int32
	UserID    int32
	Username  string
	RolesCSV  string
	NameColor string
	DiscordID string

	Banned    bool
	BanReason string
	BanUntil  *time.Time

	Muted    bool
	MuteUntil *time.Time
}

// RoomBan is a per-room punishment, checked on room join.
type RoomBan struct {
	AccountID int32
	RoomID    uint32
	Reason    string
	Until     *time.Time
}

// Action is one audit-log entry. Kind is a short stable name ("kick",
// "ban", "edit_roles", ...); Detail is a freeform description. The exact
// Discord-log embed format this eventually feeds is left unpinned, per the
// original design's open TODO on that format.
type Action struct {
	IssuerAccountID int32
	Kind            string
	Detail          string
	At              time.Time
}

// Repository is the abstract persistence boundary every admin/login path
// goes through. Concrete implementations (pgrepo.Store) are expected to be
// wrapped with a circuit breaker, since a punishment/lookup failure must
// degrade a handler rather than take down a connection.
type Repository interface {
	GetUser(ctx context.Context, accountID int32) (*User, error)
	QueryUser(ctx context.Context, usernameOrID string) (*User, error)

	UpdateUsername(ctx context.Context, accountID int32, username string) error
	UpdateUser(ctx context.Context, accountID int32, nameColor string) error

	LinkDiscord(ctx context.Context, accountID int32, discordID string) error
	GetLinkedDiscord(ctx context.Context, accountID int32) (string, error)

	// PunishUser upserts a punishment, returning edited=true if it replaced
	// an existing active punishment of the same kind rather than creating
	// a new one.
	PunishUser(ctx context.Context, issuer, target int32, kind PunishmentKind, reason string, expiresAt *time.Time) (edited bool, err error)
	UnpunishUser(ctx context.Context, target int32, kind PunishmentKind) error
	GetRoomBan(ctx context.Context, accountID int32, roomID uint32) (*RoomBan, error)

	LogAction(ctx context.Context, issuer int32, kind, detail string) error
	FetchLogs(ctx context.Context, accountID int32, limit int) ([]Action, error)

	GetAdminPasswordHash(ctx context.Context, accountID int32) (string, error)
	SetAdminPasswordHash(ctx context.Context, accountID int32, hash string) error

	UpdateRoles(ctx context.Context, accountID int32, rolesCSV string) error
	FetchAllWithRoles(ctx context.Context) ([]User, error)
	QueryUserWithRole(ctx context.Context, accountID int32) (*User, error)
}
