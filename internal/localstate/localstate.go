// Package localstate persists small UI preferences between runs in a
// SQLite key/value file.
package localstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // pure-Go driver, registers "sqlite"
)

// Keys of the stored preferences.
const (
	KeySidebarCollapsed = "sidebar-collapsed"
	KeyCategory         = "active-category"
	KeyLastView         = "last-view"
	KeyUnreadOnly       = "notifications-unread-only"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Store is the preferences file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("localstate.Open: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("localstate.Open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("localstate.Open: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("localstate.Open: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key; ok is false when unset.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstate.Get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return set(ctx, s.db, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func set(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("localstate.Set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("localstate.Delete %s: %w", key, err)
	}
	return nil
}

// Prefs are the persisted UI preferences.
type Prefs struct {
	SidebarCollapsed bool
	Category         string
	LastView         string
	UnreadOnly       bool
}

// DefaultPrefs is what a first run starts with.
func DefaultPrefs() Prefs {
	return Prefs{Category: "all", LastView: "home"}
}

// LoadPrefs reads the preferences, falling back to defaults per key.
func (s *Store) LoadPrefs(ctx context.Context) (Prefs, error) {
	p := DefaultPrefs()
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (?, ?, ?, ?)`,
		KeySidebarCollapsed, KeyCategory, KeyLastView, KeyUnreadOnly)
	if err != nil {
		return p, fmt.Errorf("localstate.LoadPrefs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return p, fmt.Errorf("localstate.LoadPrefs: %w", err)
		}
		switch k {
		case KeySidebarCollapsed:
			p.SidebarCollapsed, _ = strconv.ParseBool(v)
		case KeyCategory:
			if v != "" {
				p.Category = v
			}
		case KeyLastView:
			if v != "" {
				p.LastView = v
			}
		case KeyUnreadOnly:
			p.UnreadOnly, _ = strconv.ParseBool(v)
		}
	}
	if err := rows.Err(); err != nil {
		return p, fmt.Errorf("localstate.LoadPrefs: %w", err)
	}
	return p, nil
}

// SavePrefs writes every preference in one transaction.
func (s *Store) SavePrefs(ctx context.Context, p Prefs) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstate.SavePrefs: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, kv := range [][2]string{
		{KeySidebarCollapsed, strconv.FormatBool(p.SidebarCollapsed)},
		{KeyCategory, p.Category},
		{KeyLastView, p.LastView},
		{KeyUnreadOnly, strconv.FormatBool(p.UnreadOnly)},
	} {
		if err := set(ctx, tx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("localstate.SavePrefs: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localstate.SavePrefs: %w", err)
	}
	return nil
}
