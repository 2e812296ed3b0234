package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/globed-io/central/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("repo: not found")

const circuitName = "postgres"

// db is the subset of pgxpool.Pool this package depends on, so tests can
// substitute a fake without standing up a real database.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgconnCommandTag mirrors pgconn.CommandTag's RowsAffected method, avoiding
// a direct pgconn import in the interface definition.
type pgconnCommandTag interface {
	RowsAffected() int64
}

// poolAdapter satisfies db by delegating to a real *pgxpool.Pool. pgx's
// CommandTag already implements RowsAffected() int64, so it satisfies
// pgconnCommandTag without any wrapping.
type poolAdapter struct {
	pool *pgxpool.Pool
}

func (p poolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconnCommandTag, error) {
	tag, err := p.pool.Exec(ctx, sql, args...)
	return tag, err
}

func (p poolAdapter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

func (p poolAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Store is the Postgres-backed Repository implementation. Every call is
// wrapped in a circuit breaker: a punishment lookup failure should degrade
// the calling handler, not cascade into a stuck connection.
type Store struct {
	db db
	cb *gobreaker.CircuitBreaker
}

// NewStore wraps an existing pgxpool.Pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return newStore(poolAdapter{pool: pool})
}

func newStore(d db) *Store {
	st := gobreaker.Settings{
		Name:        circuitName,
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(circuitName).Set(stateVal)
		},
	}
	return &Store{db: d, cb: gobreaker.NewCircuitBreaker(st)}
}

// Connect dials Postgres using a connection string, typically built from
// config's database section.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("repo: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("repo: ping: %w", err)
	}
	return NewStore(pool), nil
}

func execute[T any](s *Store, fn func() (T, error)) (T, error) {
	var zero T
	result, err := s.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			metrics.CircuitBreakerFailures.WithLabelValues(circuitName).Inc()
		}
		return zero, err
	}
	return result.(T), nil
}

func (s *Store) GetUser(ctx context.Context, accountID int32) (*User, error) {
	return execute(s, func() (*User, error) {
		return scanUser(s.db.QueryRow(ctx, `
			SELECT account_id, user_id, username, roles, name_color, discord_id,
			       banned, ban_reason, ban_until, muted, mute_until
			FROM users WHERE account_id = $1`, accountID))
	})
}

func (s *Store) QueryUser(ctx context.Context, usernameOrID string) (*User, error) {
	return execute(s, func() (*User, error) {
		return scanUser(s.db.QueryRow(ctx, `
			SELECT account_id, user_id, username, roles, name_color, discord_id,
			       banned, ban_reason, ban_until, muted, mute_until
			FROM users WHERE username = $1 OR account_id::text = $1`, usernameOrID))
	})
}

func (s *Store) QueryUserWithRole(ctx context.Context, accountID int32) (*User, error) {
	return s.GetUser(ctx, accountID)
}

func (s *Store) UpdateUsername(ctx context.Context, accountID int32, username string) error {
	_, err := execute(s, func() (struct{}, error) {
		_, e := s.db.Exec(ctx, `UPDATE users SET username = $1 WHERE account_id = $2`, username, accountID)
		return struct{}{}, e
	})
	return err
}

func (s *Store) UpdateUser(ctx context.Context, accountID int32, nameColor string) error {
	_, err := execute(s, func() (struct{}, error) {
		_, e := s.db.Exec(ctx, `UPDATE users SET name_color = $1 WHERE account_id = $2`, nameColor, accountID)
		return struct{}{}, e
	})
	return err
}

func (s *Store) LinkDiscord(ctx context.Context, accountID int32, discordID string) error {
	_, err := execute(s, func() (struct{}, error) {
		_, e := s.db.Exec(ctx, `UPDATE users SET discord_id = $1 WHERE account_id = $2`, discordID, accountID)
		return struct{}{}, e
	})
	return err
}

func (s *Store) GetLinkedDiscord(ctx context.Context, accountID int32) (string, error) {
	return execute(s, func() (string, error) {
		var discordID string
		err := s.db.QueryRow(ctx, `SELECT discord_id FROM users WHERE account_id = $1`, accountID).Scan(&discordID)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return discordID, err
	})
}

func (s *Store) PunishUser(ctx context.Context, issuer, target int32, kind PunishmentKind, reason string, expiresAt *time.Time) (bool, error) {
	return execute(s, func() (bool, error) {
		tag, err := s.db.Exec(ctx, `
			INSERT INTO punishments (account_id, kind, reason, expires_at, issuer_account_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (account_id, kind) WHERE expires_at IS NULL OR expires_at > now()
			DO UPDATE SET reason = EXCLUDED.reason, expires_at = EXCLUDED.expires_at, issuer_account_id = EXCLUDED.issuer_account_id`,
			target, kind.String(), reason, expiresAt, issuer)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() > 0, nil
	})
}

func (s *Store) UnpunishUser(ctx context.Context, target int32, kind PunishmentKind) error {
	_, err := execute(s, func() (struct{}, error) {
		_, e := s.db.Exec(ctx, `DELETE FROM punishments WHERE account_id = $1 AND kind = $2`, target, kind.String())
		return struct{}{}, e
	})
	return err
}

func (s *Store) GetRoomBan(ctx context.Context, accountID int32, roomID uint32) (*RoomBan, error) {
	return execute(s, func() (*RoomBan, error) {
		var rb RoomBan
		err := s.db.QueryRow(ctx, `
			SELECT account_id, room_id, reason, expires_at FROM room_bans
			WHERE account_id = $1 AND room_id = $2 AND (expires_at IS NULL OR expires_at > now())`,
			accountID, roomID).Scan(&rb.AccountID, &rb.RoomID, &rb.Reason, &rb.Until)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &rb, nil
	})
}

func (s *Store) LogAction(ctx context.Context, issuer int32, kind, detail string) error {
	_, err := execute(s, func() (struct{}, error) {
		_, e := s.db.Exec(ctx, `
			INSERT INTO action_log (issuer_account_id, kind, detail, at) VALUES ($1, $2, $3, now())`,
			issuer, kind, detail)
		return struct{}{}, e
	})
	return err
}

func (s *Store) FetchLogs(ctx context.Context, accountID int32, limit int) ([]Action, error) {
	return execute(s, func() ([]Action, error) {
		rows, err := s.db.Query(ctx, `
			SELECT issuer_account_id, kind, detail, at FROM action_log
			WHERE issuer_account_id = $1 ORDER BY at DESC LIMIT $2`, accountID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var actions []Action
		for rows.Next() {
			var a Action
			if err := rows.Scan(&a.IssuerAccountID, &a.Kind, &a.Detail, &a.At); err != nil {
				return nil, err
			}
			actions = append(actions, a)
		}
		return actions, rows.Err()
	})
}

func (s *Store) GetAdminPasswordHash(ctx context.Context, accountID int32) (string, error) {
	return execute(s, func() (string, error) {
		var hash string
		err := s.db.QueryRow(ctx, `SELECT admin_password_hash FROM users WHERE account_id = $1`, accountID).Scan(&hash)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return hash, err
	})
}

func (s *Store) SetAdminPasswordHash(ctx context.Context, accountID int32, hash string) error {
	_, err := execute(s, func() (struct{}, error) {
		_, e := s.db.Exec(ctx, `UPDATE users SET admin_password_hash = $1 WHERE account_id = $2`, hash, accountID)
		return struct{}{}, e
	})
	return err
}

func (s *Store) UpdateRoles(ctx context.Context, accountID int32, rolesCSV string) error {
	_, err := execute(s, func() (struct{}, error) {
		_, e := s.db.Exec(ctx, `UPDATE users SET roles = $1 WHERE account_id = $2`, rolesCSV, accountID)
		return struct{}{}, e
	})
	return err
}

func (s *Store) FetchAllWithRoles(ctx context.Context) ([]User, error) {
	return execute(s, func() ([]User, error) {
		rows, err := s.db.Query(ctx, `
			SELECT account_id, user_id, username, roles, name_color, discord_id,
			       banned, ban_reason, ban_until, muted, mute_until
			FROM users WHERE roles IS NOT NULL AND roles != ''`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var users []User
		for rows.Next() {
			var u User
			if err := rows.Scan(&u.AccountID, &u.UserID, &u.Username, &u.RolesCSV, &u.NameColor, &u.DiscordID,
				&u.Banned, &u.BanReason, &u.BanUntil, &u.Muted, &u.MuteUntil); err != nil {
				return nil, err
			}
			users = append(users, u)
		}
		return users, rows.Err()
	})
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.AccountID, &u.UserID, &u.Username, &u.RolesCSV, &u.NameColor, &u.DiscordID,
		&u.Banned, &u.BanReason, &u.BanUntil, &u.Muted, &u.MuteUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
