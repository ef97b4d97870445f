package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	loadQuery = `SELECT value, version FROM kv WHERE key = ?`

	upsertQuery = `INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, version = kv.version + 1, updated_at = excluded.updated_at
RETURNING version`

	insertQuery = `INSERT INTO kv (key, value, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT (key) DO NOTHING
RETURNING version`

	updateQuery = `UPDATE kv SET value = ?, version = version + 1, updated_at = ?
WHERE key = ? AND version = ?
RETURNING version`
)

// SQLiteStore is a Store kept in a single SQLite file. Several processes can
// open the same file; SQLite serializes their writes.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection per process keeps writes from this tab strictly ordered.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// dsn enables WAL and a busy timeout so concurrent tabs wait instead of failing.
func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx, loadQuery, key).Scan(&rec.Value, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("load %s: %w", key, err)
	}
	rec.Found = true
	return rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, value []byte, expect int64) (int64, error) {
	now := time.Now().UTC()

	var row *sql.Row
	switch {
	case expect == AnyVersion:
		row = s.db.QueryRowContext(ctx, upsertQuery, key, value, now)
	case expect == 0:
		row = s.db.QueryRowContext(ctx, insertQuery, key, value, now)
	default:
		row = s.db.QueryRowContext(ctx, updateQuery, value, now, key, expect)
	}

	var version int64
	err := row.Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("save %s: expected version %d: %w", key, expect, ErrVersionConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Value saved to SQLite",
		"key", key,
		"version", version,
		"bytes", len(value))

	return version, nil
}
