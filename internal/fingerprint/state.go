package fingerprint

import (
	"context"
	"sync"
)

// State is the in-memory fingerprint state of one evaluation. It starts from
// what a Store loaded and is updated as units finish building. Writes for the
// same unit name are serialised.
type State struct {
	mu     sync.RWMutex
	values Map
	dirty  bool

	keys sync.Map // unit name -> *sync.Mutex

	saveMu sync.Mutex
}

// NewState returns a state seeded with a copy of prior.
func NewState(prior Map) *State {
	return &State{values: prior.Clone()}
}

// Get returns the fingerprint recorded for name.
func (s *State) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.values[name]
	return fp, ok
}

// Record stores the fingerprint of a unit that built successfully.
func (s *State) Record(name, fp string) {
	lock := s.keyLock(name)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[name] != fp {
		s.values[name] = fp
		s.dirty = true
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values.Clone()
}

// Flush saves the current state to store if it changed since the last flush.
// Concurrent flushes are serialised so saves reach the store in order.
func (s *State) Flush(ctx context.Context, store Store) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.values.Clone()
	s.dirty = false
	s.mu.Unlock()

	if err := store.Save(ctx, snapshot); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *State) keyLock(name string) *sync.Mutex {
	lock, _ := s.keys.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
