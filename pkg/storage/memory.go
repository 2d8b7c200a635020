// Package storage provides the per-pair signal state stores.
package storage

import (
	"fmt"
	"sync"

	"github.com/raykavin/pairwatch/pkg/core"
)

// MemoryStorage is a core.StateStore kept in a map for the process lifetime
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[string]core.SignalState
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{states: make(map[string]core.SignalState)}
}

func (m *MemoryStorage) State(pair string) (core.SignalState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[pair], nil
}

func (m *MemoryStorage) SetState(pair string, state core.SignalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[pair] = state
	return nil
}

func (m *MemoryStorage) States() (map[string]core.SignalState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make(map[string]core.SignalState, len(m.states))
	for pair, state := range m.states {
		states[pair] = state
	}
	return states, nil
}

func (m *MemoryStorage) Close() error { return nil }

// Store is a core.StateStore that holds resources
type Store interface {
	core.StateStore
	Close() error
}

// Driver names accepted by New
const (
	DriverMemory = "memory"
	DriverBuntDB = "buntdb"
)

// New opens the store selected by driver. path is only used by buntdb,
// where ":memory:" keeps the database in memory.
func New(driver, path string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStorage(), nil
	case DriverBuntDB:
		if path == "" {
			path = ":memory:"
		}
		store, err := NewBuntStorage(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
