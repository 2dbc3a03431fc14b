package repositories

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const MemoryPath = ":memory:"

// OpenSQLite opens the entity database at path. Writers take the lock when the
// transaction begins (_txlock=immediate), so a check-then-insert inside a
// transaction cannot interleave with another process sharing the file.
func OpenSQLite(path string) (*sql.DB, error) {
	const params = "_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"
	dsn := fmt.Sprintf("file:%s?%s", path, params)
	if path == MemoryPath {
		dsn = "file::memory:?" + params
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	return db, nil
}

// OpenSQLiteReadOnly opens an existing entity database without write access.
// A missing file is an error, it is never created.
func OpenSQLiteReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database %s read-only: %w", path, err)
	}
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id INTEGER NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		balance INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS locals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name TEXT NOT NULL UNIQUE,
		address_block TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_locals_owner ON locals(owner_id)`,
	`CREATE TABLE IF NOT EXISTS peers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		local_id INTEGER NOT NULL REFERENCES locals(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (local_id, name),
		UNIQUE (local_id, address)
	)`,
}

// Migrate creates the schema when it is missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
