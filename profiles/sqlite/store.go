// Package sqlite provides SQLite-backed persistence for user profiles.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/openprofiles/profiled/profiles"
	"github.com/openprofiles/profiled/profiles/sqlite/migrations"
)

// Store provides SQLite-backed persistence for profiles and friendships.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens and migrates a profile SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	// The _pragma parameters are applied by the modernc driver on every
	// pooled connection. Foreign keys back the friends edge integrity.
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SetNow overrides the clock, for tests.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}

// GetByUsername loads a profile. Returns profiles.ErrNotFound when absent.
func (s *Store) GetByUsername(ctx context.Context, username string) (profiles.Profile, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, name, about, location, website, created_at, updated_at
		 FROM profiles
		 WHERE username = ?`,
		username,
	)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.Profile{}, profiles.ErrNotFound
		}
		return profiles.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// List returns profiles ordered by username.
func (s *Store) List(ctx context.Context, opts profiles.ListOptions) ([]profiles.Profile, error) {
	limit := opts.Limit
	if limit <= 0 {
		// SQLite requires LIMIT when OFFSET is used; -1 means unbounded.
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, username, name, about, location, website, created_at, updated_at
		 FROM profiles
		 ORDER BY username
		 LIMIT ? OFFSET ?`,
		limit,
		opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []profiles.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// Count returns the total number of profiles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

// SearchUsernames returns up to limit usernames with the given prefix.
func (s *Store) SearchUsernames(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = profiles.DefaultSearchLimit
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT username FROM profiles
		 WHERE username LIKE ? ESCAPE '\'
		 ORDER BY username
		 LIMIT ?`,
		escapeLike(prefix)+"%",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search usernames: %w", err)
	}
	defer rows.Close()

	return scanUsernames(rows)
}

// FriendUsernames is SearchUsernames restricted to the friends of username.
func (s *Store) FriendUsernames(ctx context.Context, username, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = profiles.DefaultSearchLimit
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT f.friend FROM friends f
		 WHERE f.username = ? AND f.friend LIKE ? ESCAPE '\'
		 ORDER BY f.friend
		 LIMIT ?`,
		username,
		escapeLike(prefix)+"%",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search friend usernames: %w", err)
	}
	defer rows.Close()

	return scanUsernames(rows)
}

// Upsert creates or updates the profile keyed by username.
func (s *Store) Upsert(ctx context.Context, p profiles.Profile) (profiles.Profile, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return profiles.Profile{}, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)

	existing, err := s.GetByUsername(ctx, p.Username)
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = now
		_, err = s.sqlDB.ExecContext(
			ctx,
			`UPDATE profiles SET name = ?, about = ?, location = ?, website = ?, updated_at = ?
			 WHERE username = ?`,
			p.Name, p.About, p.Location, p.Website, p.UpdatedAt.UnixMilli(), p.Username,
		)
		if err != nil {
			return profiles.Profile{}, fmt.Errorf("update profile: %w", err)
		}
	case errors.Is(err, profiles.ErrNotFound):
		p.ID = uuid.New().String()
		p.CreatedAt = now
		p.UpdatedAt = now
		_, err = s.sqlDB.ExecContext(
			ctx,
			`INSERT INTO profiles (id, username, name, about, location, website, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Username, p.Name, p.About, p.Location, p.Website,
			p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return profiles.Profile{}, fmt.Errorf("insert profile: %w", err)
		}
	default:
		return profiles.Profile{}, err
	}

	return p, nil
}

// AddFriend records a directed friendship edge. Both usernames must have
// profiles; the foreign keys enforce it.
func (s *Store) AddFriend(ctx context.Context, username, friend string) error {
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO friends (username, friend, created_at) VALUES (?, ?, ?)`,
		username, friend, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return profiles.ErrNotFound
		}
		return fmt.Errorf("add friend: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (profiles.Profile, error) {
	var p profiles.Profile
	var createdAt, updatedAt int64
	if err := row.Scan(
		&p.ID, &p.Username, &p.Name, &p.About, &p.Location, &p.Website,
		&createdAt, &updatedAt,
	); err != nil {
		return profiles.Profile{}, err
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return p, nil
}

func scanUsernames(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan usernames: %w", err)
	}
	return out, nil
}

// escapeLike escapes the LIKE wildcards in a literal prefix. Underscores are
// valid username characters, so this matters for prefix search.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "FOREIGN KEY")
}
