package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"inventory_admin/internal/pkg/logger"
)

const (
	createSessionTableQuery = `CREATE TABLE IF NOT EXISTS admin_client_session (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW());`
	getSessionValueQuery    = `SELECT value FROM admin_client_session WHERE key = $1;`
	setSessionValueQuery    = `INSERT INTO admin_client_session (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();`
	deleteSessionValueQuery = `DELETE FROM admin_client_session WHERE key = ANY($1);`
)

// PostgreSQL implements the Storage interface using a PostgreSQL database.
// It lets several dashboard replicas share one operator session.
type PostgreSQL struct {
	db  *sql.DB        // Connection to the database.
	log *logger.Logger // Logger for recording events and errors.
}

var _ Storage = (*PostgreSQL)(nil)

// NewPostgreSQL creates a new PostgreSQL instance with the provided connection string and logger.
// It opens the connection and pings the database to ensure connectivity.
// The session table is created lazily, the first time a write finds it missing.
func NewPostgreSQL(ctx context.Context, configDBString string, l *logger.Logger) (*PostgreSQL, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return nil, err
	}

	const defaultTimeout = 10 * time.Second
	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		l.Sugar().Errorf("Database ping failed: %s", err)
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db, log: l}, nil
}

// Close closes the database connection if it is open.
func (postgresql *PostgreSQL) Close() {
	if postgresql.db != nil {
		postgresql.db.Close()
	}
}

// Get returns the value stored under key. A missing table reads as a missing key.
func (postgresql *PostgreSQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := postgresql.db.QueryRowContext(ctx, getSessionValueQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return "", false, nil
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query getSessionValueQuery: %s", err)
		return "", false, err
	}

	return value, true, nil
}

// Set upserts value under key, creating the session table if it does not exist yet.
func (postgresql *PostgreSQL) Set(ctx context.Context, key, value string) error {
	_, err := postgresql.db.ExecContext(ctx, setSessionValueQuery, key, value)
	if isUndefinedTable(err) {
		if _, err = postgresql.db.ExecContext(ctx, createSessionTableQuery); err != nil {
			postgresql.log.Sugar().Errorf("Failed to execute a query createSessionTableQuery: %s", err)
			return err
		}
		_, err = postgresql.db.ExecContext(ctx, setSessionValueQuery, key, value)
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query setSessionValueQuery: %s", err)
		return err
	}

	return nil
}

// Delete removes the given keys.
func (postgresql *PostgreSQL) Delete(ctx context.Context, keys ...string) error {
	result, err := postgresql.db.ExecContext(ctx, deleteSessionValueQuery, keys)
	if isUndefinedTable(err) {
		return nil
	}
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute a query deleteSessionValueQuery: %s", err)
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		postgresql.log.Sugar().Errorf("Failed to execute RowsAffected in deleteSessionValueQuery: %s", err)
		return err
	}
	postgresql.log.Sugar().Debugf("Deleted session keys: %d", rows)

	return nil
}

func isUndefinedTable(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.UndefinedTable
}
