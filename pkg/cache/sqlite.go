package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPath returns the default location of the SQLite cache file,
// ~/.bacendata/cache.db, falling back to the working directory when the
// home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cache.db"
	}
	return filepath.Join(home, ".bacendata", "cache.db")
}

// sqliteStore is the durable single-file Store backend.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite cache database at path and
// runs migrations. Parent directories are created as needed.
func OpenSQLite(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so concurrent readers do not block the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_series (
		key       TEXT PRIMARY KEY,
		payload   TEXT NOT NULL,
		stored_at INTEGER NOT NULL,
		ttl       INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		payload  []byte
		storedAt int64
		ttlSec   int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, stored_at, ttl FROM cache_series WHERE key = ?", key,
	).Scan(&payload, &storedAt, &ttlSec)
	if err == sql.ErrNoRows {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get: %w", err)
	}
	return &Entry{
		Payload:  payload,
		StoredAt: time.Unix(storedAt, 0),
		TTL:      time.Duration(ttlSec) * time.Second,
	}, nil
}

func (s *sqliteStore) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_series (key, payload, stored_at, ttl) VALUES (?, ?, ?, ?)",
		key, entry.Payload, entry.StoredAt.Unix(), int64(entry.TTL/time.Second),
	)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_series WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

func (s *sqliteStore) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_series"); err != nil {
		return fmt.Errorf("sqlite purge: %w", err)
	}
	return nil
}

func (s *sqliteStore) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_series WHERE (? - stored_at) > ttl", time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite purge expired: %w", err)
	}
	return int(n), nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
