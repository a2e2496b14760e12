// Package prefs holds local, per-device preferences: bookmarks, highlights,
// the colour theme and the persisted session cookies. Values are strings
// under string keys; callers layer JSON on top where they need structure.
package prefs

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Store is a small key-value store.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("prefs: store is closed")

// Open returns the store for driver. path is ignored by the memory driver.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case "", DriverFile:
		if path == "" {
			return nil, errors.New("prefs: file store needs a path")
		}
		return NewFileStore(path), nil
	case DriverSQLite:
		if path == "" {
			return nil, errors.New("prefs: sqlite store needs a path")
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("prefs: unknown driver %q", driver)
	}
}

// MemoryStore keeps values in memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
