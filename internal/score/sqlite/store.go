// Package sqlite provides a SQLite-backed best-score store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xtding233/coinmerge/internal/score"
	"github.com/xtding233/coinmerge/internal/score/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const (
	DefaultProfile = "default"
	migrationTable = "schema_migrations"
)

// Store persists one best score per profile. Stores returned by ForProfile
// share the handle of the Store they came from.
type Store struct {
	sqlDB   *sql.DB
	profile string
	owner   bool
}

var _ score.Store = (*Store)(nil)

// Open opens a SQLite best-score store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
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
	return &Store{sqlDB: sqlDB, profile: DefaultProfile, owner: true}, nil
}

// ForProfile scopes the store to another profile key.
func (s *Store) ForProfile(profile string) *Store {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	return &Store{sqlDB: s.sqlDB, profile: profile}
}

func (s *Store) Profile() string { return s.profile }

// Close closes the SQLite handle. Profile-scoped copies do not own it.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || !s.owner {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the stored best score, 0 when none was saved yet.
func (s *Store) Load(ctx context.Context) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("%w: storage is not configured", score.ErrPersistence)
	}
	var best int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT score FROM best_scores WHERE profile = ?`, s.profile).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: load %s: %v", score.ErrPersistence, s.profile, err)
	}
	return best, nil
}

// Save keeps the larger of the stored and given scores, so concurrent
// sessions on one profile never lower it.
func (s *Store) Save(ctx context.Context, best int) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("%w: storage is not configured", score.ErrPersistence)
	}
	if best < 0 {
		return fmt.Errorf("%w: negative score %d", score.ErrPersistence, best)
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO best_scores (profile, score, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(profile) DO UPDATE SET
		   score = MAX(best_scores.score, excluded.score),
		   updated_at = excluded.updated_at`,
		s.profile, best, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", score.ErrPersistence, s.profile, err)
	}
	return nil
}

// applyMigrations runs each embedded .sql file at most once.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			file, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
func upSection(content string) string {
	up := strings.Index(content, "-- +migrate Up")
	if up == -1 {
		return content
	}
	rest := content[up+len("-- +migrate Up"):]
	if down := strings.Index(rest, "-- +migrate Down"); down != -1 {
		return rest[:down]
	}
	return rest
}
