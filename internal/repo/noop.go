package repo

import (
	"context"
	"time"
)

// NoopRepository is used when no Postgres DSN is configured: every lookup
// misses and every write is a no-op, so the server still starts (with
// moderation/login role lookups effectively disabled) rather than refusing
// to run without a database.
type NoopRepository struct{}

func (NoopRepository) GetUser(ctx context.Context, accountID int32) (*User, error) {
	return nil, ErrNotFound
}

func (NoopRepository) QueryUser(ctx context.Context, usernameOrID string) (*User, error) {
	return nil, ErrNotFound
}

func (NoopRepository) UpdateUsername(ctx context.Context, accountID int32, username string) error {
	return nil
}

func (NoopRepository) UpdateUser(ctx context.Context, accountID int32, nameColor string) error {
	return nil
}

func (NoopRepository) LinkDiscord(ctx context.Context, accountID int32, discordID string) error {
	return nil
}

func (NoopRepository) GetLinkedDiscord(ctx context.Context, accountID int32) (string, error) {
	return "", ErrNotFound
}

func (NoopRepository) PunishUser(ctx context.Context, issuer, target int32, kind PunishmentKind, reason string, expiresAt *time.Time) (bool, error) {
	return false, nil
}

func (NoopRepository) UnpunishUser(ctx context.Context, target int32, kind PunishmentKind) error {
	return nil
}

func (NoopRepository) GetRoomBan(ctx context.Context, accountID int32, roomID uint32) (*RoomBan, error) {
	return nil, ErrNotFound
}

func (NoopRepository) LogAction(ctx context.Context, issuer int32, kind, detail string) error {
	return nil
}

func (NoopRepository) FetchLogs(ctx context.Context, accountID int32, limit int) ([]Action, error) {
	return nil, nil
}

func (NoopRepository) GetAdminPasswordHash(ctx context.Context, accountID int32) (string, error) {
	return "", ErrNotFound
}

func (NoopRepository) SetAdminPasswordHash(ctx context.Context, accountID int32, hash string) error {
	return nil
}

func (NoopRepository) UpdateRoles(ctx context.Context, accountID int32, rolesCSV string) error {
	return nil
}

func (NoopRepository) FetchAllWithRoles(ctx context.Context) ([]User, error) {
	return nil, nil
}

func (NoopRepository) QueryUserWithRole(ctx context.Context, accountID int32) (*User, error) {
	return nil, ErrNotFound
}
