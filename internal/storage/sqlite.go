package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"inventory_admin/internal/pkg/logger"
)

const (
	createSQLiteTableQuery = `CREATE TABLE IF NOT EXISTS session_kv (key TEXT PRIMARY KEY, value TEXT NOT NULL);`
	getSQLiteValueQuery    = `SELECT value FROM session_kv WHERE key = ?;`
	setSQLiteValueQuery    = `INSERT INTO session_kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value;`
	deleteSQLiteValueQuery = `DELETE FROM session_kv WHERE key = ?;`
)

// SQLite implements the Storage interface on a local SQLite file.
type SQLite struct {
	db  *sql.DB
	log *logger.Logger
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path. ":memory:" is accepted for tests.
func NewSQLite(ctx context.Context, path string, l *logger.Logger) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createSQLiteTableQuery); err != nil {
		l.Sugar().Errorf("Failed to execute a query createSQLiteTableQuery: %s", err)
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, log: l}, nil
}

// Close closes the database.
func (sqlite *SQLite) Close() {
	if sqlite.db != nil {
		sqlite.db.Close()
	}
}

// Get returns the value stored under key.
func (sqlite *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := sqlite.db.QueryRowContext(ctx, getSQLiteValueQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		sqlite.log.Sugar().Errorf("Failed to execute a query getSQLiteValueQuery: %s", err)
		return "", false, err
	}

	return value, true, nil
}

// Set upserts value under key.
func (sqlite *SQLite) Set(ctx context.Context, key, value string) error {
	if _, err := sqlite.db.ExecContext(ctx, setSQLiteValueQuery, key, value); err != nil {
		sqlite.log.Sugar().Errorf("Failed to execute a query setSQLiteValueQuery: %s", err)
		return err
	}
	return nil
}

// Delete removes the given keys inside one transaction.
func (sqlite *SQLite) Delete(ctx context.Context, keys ...string) error {
	tx, err := sqlite.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, deleteSQLiteValueQuery, key); err != nil {
			sqlite.log.Sugar().Errorf("Failed to execute a query deleteSQLiteValueQuery: %s", err)
			return err
		}
	}

	return tx.Commit()
}
