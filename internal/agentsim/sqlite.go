package agentsim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS robot (
	id         INTEGER PRIMARY KEY,
	input_time TEXT NOT NULL,
	interval   TEXT NOT NULL
);`

// SQLiteStore keeps settings and the input log in a SQLite file, so the
// simulated agent survives restarts.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens or creates the database at path and seeds any
// missing settings with their defaults. ":memory:" gives a private database.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("agentsim: create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("agentsim: open sqlite store: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("agentsim: apply schema: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("agentsim: seed defaults: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for name, value := range DefaultSettings(time.Now()) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (name, value) VALUES (?, ?)`, name, value); err != nil {
			return fmt.Errorf("agentsim: seed %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("agentsim: seed defaults: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	if err != nil {
		return "", fmt.Errorf("agentsim: read %s: %w", name, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, name, value string) error {
	if !knownSetting(name) {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value); err != nil {
		return fmt.Errorf("agentsim: write %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) RecordInput(ctx context.Context, at time.Time, interval string) error {
	stamp := at.Format(InputTimeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("agentsim: record input: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO robot (input_time, interval) VALUES (?, ?)`, stamp, interval); err != nil {
		return fmt.Errorf("agentsim: insert input: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE settings SET value = ? WHERE name = ?`, stamp, SettingLastRobotInput); err != nil {
		return fmt.Errorf("agentsim: update last input: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) InputCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM robot`).Scan(&n); err != nil {
		return 0, fmt.Errorf("agentsim: count inputs: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
