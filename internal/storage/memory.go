package storage

import (
	"context"
	"sync"
)

// Memory keeps values for the lifetime of the process.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

var _ Storage = (*Memory)(nil)

// Get returns the value stored under key.
func (memory *Memory) Get(_ context.Context, key string) (string, bool, error) {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	value, ok := memory.values[key]
	return value, ok, nil
}

// Set stores value under key.
func (memory *Memory) Set(_ context.Context, key, value string) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	memory.values[key] = value
	return nil
}

// Delete removes the given keys.
func (memory *Memory) Delete(_ context.Context, keys ...string) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()

	for _, key := range keys {
		delete(memory.values, key)
	}
	return nil
}

// Close is a no-op.
func (memory *Memory) Close() {}
