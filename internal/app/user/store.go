package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onlyfriends/internal/app/rank"
)

// ErrNotFound is returned when a lookup resolves no user record.
var ErrNotFound = errors.New("user not found")

const userColumns = `id, uid, name, email, rank, is_owner, is_muted, is_banned, level, bio, avatar_url, last_login_at`

// Store persists user records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var r string
	err := row.Scan(&u.ID, &u.UID, &u.Name, &u.Email, &r, &u.IsOwner, &u.IsMuted, &u.IsBanned, &u.Level, &u.Bio, &u.AvatarURL, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Rank = rank.Rank(r)
	u.Color = rank.Color(u.Rank)
	return u, nil
}

// Create inserts a new user record. Name and email uniqueness are enforced
// case-insensitively by functional indexes; violations surface as database
// unique-violation errors for the caller to classify.
func (s *Store) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (uid, name, email, password_hash, rank, is_owner, level, bio, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		u.UID, u.Name, strings.ToLower(u.Email), passwordHash, string(u.Rank), u.IsOwner, u.Level, u.Bio, u.AvatarURL,
	)
	return scanUser(row)
}

// Count returns the total number of user records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// GetByUID fetches a user by its public UID.
func (s *Store) GetByUID(ctx context.Context, uid string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid)
	return scanUser(row)
}

// GetCredentials fetches the user and password hash for a login attempt.
// Email matching is case-insensitive.
func (s *Store) GetCredentials(ctx context.Context, email string) (User, string, error) {
	var hash string
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash FROM users WHERE email = LOWER($1)`, email)

	var u User
	var r string
	err := row.Scan(&u.ID, &u.UID, &u.Name, &u.Email, &r, &u.IsOwner, &u.IsMuted, &u.IsBanned, &u.Level, &u.Bio, &u.AvatarURL, &u.LastLoginAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, "", ErrNotFound
		}
		return User{}, "", fmt.Errorf("scan credentials: %w", err)
	}
	u.Rank = rank.Rank(r)
	u.Color = rank.Color(u.Rank)
	return u, hash, nil
}

// List returns every user record, banned ones included. Roster filtering is
// the projection's job, not the store's.
func (s *Store) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// NameTaken reports whether another user already holds the display name,
// compared case-insensitively. excludeUID may be empty.
func (s *Store) NameTaken(ctx context.Context, name, excludeUID string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(name) = LOWER($1) AND uid <> $2)`,
		name, excludeUID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check name: %w", err)
	}
	return taken, nil
}

// UpdateRank persists a rank change. Last write wins on concurrent edits.
func (s *Store) UpdateRank(ctx context.Context, uid string, r rank.Rank) error {
	return s.exec(ctx, `UPDATE users SET rank = $2 WHERE uid = $1`, uid, string(r))
}

// SetMuted persists the muted flag.
func (s *Store) SetMuted(ctx context.Context, uid string, muted bool) error {
	return s.exec(ctx, `UPDATE users SET is_muted = $2 WHERE uid = $1`, uid, muted)
}

// SetBanned marks the user banned. There is no unban operation.
func (s *Store) SetBanned(ctx context.Context, uid string) error {
	return s.exec(ctx, `UPDATE users SET is_banned = TRUE WHERE uid = $1`, uid)
}

// UpdateProfile persists the editable profile fields of a patch.
func (s *Store) UpdateProfile(ctx context.Context, uid string, p Patch) error {
	return s.exec(ctx, `
		UPDATE users SET
			name       = COALESCE($2, name),
			bio        = COALESCE($3, bio),
			avatar_url = COALESCE($4, avatar_url)
		WHERE uid = $1`,
		uid, p.Name, p.Bio, p.AvatarURL)
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	return s.exec(ctx, `UPDATE users SET password_hash = $2 WHERE uid = $1`, uid, passwordHash)
}

// UpdateLastLogin stamps the login time.
func (s *Store) UpdateLastLogin(ctx context.Context, uid string) error {
	return s.exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE uid = $1`, uid)
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
