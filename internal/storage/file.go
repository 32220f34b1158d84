package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"inventory_admin/internal/pkg/logger"
)

// File keeps all values in one JSON object on disk, readable only by the owner.
// It is the default for a single operator's workstation.
type File struct {
	mu   sync.Mutex
	path string
	log  *logger.Logger
}

// NewFile creates a File storage at path. The file and its directory are created on first write.
func NewFile(path string, l *logger.Logger) *File {
	return &File{path: path, log: l}
}

var _ Storage = (*File)(nil)

// Get returns the value stored under key. An unreadable or corrupt file reads as empty.
func (file *File) Get(_ context.Context, key string) (string, bool, error) {
	file.mu.Lock()
	defer file.mu.Unlock()

	values := file.load()
	value, ok := values[key]
	return value, ok, nil
}

// Set stores value under key and rewrites the file.
func (file *File) Set(_ context.Context, key, value string) error {
	file.mu.Lock()
	defer file.mu.Unlock()

	values := file.load()
	values[key] = value
	return file.save(values)
}

// Delete removes the given keys and rewrites the file.
func (file *File) Delete(_ context.Context, keys ...string) error {
	file.mu.Lock()
	defer file.mu.Unlock()

	values := file.load()
	for _, key := range keys {
		delete(values, key)
	}
	return file.save(values)
}

// Close is a no-op.
func (file *File) Close() {}

func (file *File) load() map[string]string {
	values := make(map[string]string)

	data, err := os.ReadFile(file.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			file.log.Sugar().Errorf("Failed to read session file %s: %s", file.path, err)
		}
		return values
	}

	if err := json.Unmarshal(data, &values); err != nil {
		file.log.Sugar().Warnf("Ignoring corrupt session file %s: %s", file.path, err)
		return make(map[string]string)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values
}

func (file *File) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(file.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp := file.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, file.path)
}
