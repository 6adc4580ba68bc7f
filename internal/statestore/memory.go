package statestore

import (
	"context"
	"sync"

	"github.com/vk/ecow/internal/fingerprint"
)

// Memory is an in-process fingerprint store.
type Memory struct {
	mu    sync.RWMutex
	state fingerprint.Map
	saves int
}

// NewMemory returns a memory store seeded with a copy of initial.
func NewMemory(initial fingerprint.Map) *Memory {
	return &Memory{state: initial.Clone()}
}

// Load implements fingerprint.Store.
func (m *Memory) Load(context.Context) (fingerprint.Map, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone(), nil
}

// Save implements fingerprint.Store.
func (m *Memory) Save(_ context.Context, state fingerprint.Map) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
