package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens the history database at path, creating the file and its
// tables when missing. The path must sit on a local filesystem.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if err := CheckLocalFilesystem(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	// between the engine and the API readers.
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	} {
		if _, err := db.ExecContext(pctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates the history tables and indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schedule_snapshot (
  id          TEXT PRIMARY KEY,
  boot_id     TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  config_hash TEXT NOT NULL DEFAULT '',
  affinity    TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  units       JSON NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS system_profile (
  boot_id     TEXT NOT NULL,
  system      TEXT NOT NULL,
  invocations INTEGER NOT NULL,
  total_us    INTEGER NOT NULL,
  max_us      INTEGER NOT NULL DEFAULT 0,
  recorded_at TEXT NOT NULL,
  PRIMARY KEY (boot_id, system)
);`,
		`CREATE INDEX IF NOT EXISTS schedule_snapshot_created_at_idx ON schedule_snapshot(created_at);`,
		`CREATE INDEX IF NOT EXISTS schedule_snapshot_boot_idx ON schedule_snapshot(boot_id, affinity);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
