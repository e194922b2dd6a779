package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps user records in a local SQLite database. WAL is enabled
// so the admin can inspect the file while the bot is writing.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and migrates) the database at path, creating the parent
// directory when needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("users: missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initUsersSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initUsersSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("users: nil db")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    user_id        INTEGER PRIMARY KEY,
    message_count  INTEGER NOT NULL DEFAULT 0,
    quota_notified INTEGER NOT NULL DEFAULT 0,
    first_seen     TEXT    NOT NULL,
    username       TEXT    NOT NULL DEFAULT '',
    display_name   TEXT    NOT NULL DEFAULT ''
);`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, userID int64) (Record, error) {
	firstSeen := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (user_id, first_seen) VALUES (?, ?)
ON CONFLICT(user_id) DO NOTHING;`, userID, firstSeen)
	if err != nil {
		return Record{}, fmt.Errorf("users: create: %w", err)
	}
	return s.get(ctx, userID)
}

func (s *SQLiteStore) get(ctx context.Context, userID int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT message_count, quota_notified, first_seen, username, display_name
FROM users WHERE user_id = ?;`, userID)

	var rec Record
	var notified int
	var firstSeen string
	if err := row.Scan(&rec.MessageCount, &notified, &firstSeen, &rec.Username, &rec.DisplayName); err != nil {
		return Record{}, fmt.Errorf("users: load: %w", err)
	}
	rec.QuotaNotified = notified != 0
	if t, err := time.Parse(time.RFC3339Nano, firstSeen); err == nil {
		rec.FirstSeen = t
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateIdentity(ctx context.Context, userID int64, username, displayName string) error {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE users SET
    username     = CASE WHEN ? != '' THEN ? ELSE username END,
    display_name = CASE WHEN ? != '' THEN ? ELSE display_name END
WHERE user_id = ?;`, username, username, displayName, displayName, userID)
	if err != nil {
		return fmt.Errorf("users: update identity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IncrementMessageCount(ctx context.Context, userID int64) error {
	firstSeen := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (user_id, message_count, first_seen) VALUES (?, 1, ?)
ON CONFLICT(user_id) DO UPDATE SET message_count = message_count + 1;`, userID, firstSeen)
	if err != nil {
		return fmt.Errorf("users: increment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context, userID int64) error {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE users SET message_count = 0, quota_notified = 0 WHERE user_id = ?;`, userID)
	if err != nil {
		return fmt.Errorf("users: reset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetQuotaNotified(ctx context.Context, userID int64) error {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE users SET quota_notified = 1 WHERE user_id = ?;`, userID)
	if err != nil {
		return fmt.Errorf("users: set notified: %w", err)
	}
	return nil
}
