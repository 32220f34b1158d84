// Package storage provides durable key/value backends for the operator session.
// It defines the Storage interface along with memory, file, SQLite, PostgreSQL and Redis
// implementations. Values are opaque strings; the session package decides what they mean.
package storage

import (
	"context"
	"errors"
	"fmt"

	"inventory_admin/internal/pkg/logger"
)

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks inventory_admin/internal/storage Storage

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("storage: unknown backend")

// Storage defines the methods required for session persistence.
type Storage interface {
	// Get returns the value stored under key. A missing key is not an error: ok is false.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Close releases the underlying connection, if any.
	Close()
}

// Open builds the backend named by kind. dsn is a file path for "file" and "sqlite",
// a connection string for "postgres", and a redis URL for "redis"; "memory" ignores it.
func Open(ctx context.Context, kind, dsn string, l *logger.Logger) (Storage, error) {
	switch kind {
	case "memory", "":
		return NewMemory(), nil
	case "file":
		return NewFile(dsn, l), nil
	case "sqlite":
		return NewSQLite(ctx, dsn, l)
	case "postgres":
		return NewPostgreSQL(ctx, dsn, l)
	case "redis":
		return NewRedis(ctx, dsn, l)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
