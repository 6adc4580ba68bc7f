package inmemorystore

import (
	"fmt"
	"sync"
	"time"

	"github.com/vk/ecow/internal/model"
)

// Store records the state, failure, blocking cause and duration of units.
type Store struct {
	states    sync.Map // unit name -> model.State
	errors    sync.Map // unit name -> error
	causes    sync.Map // unit name -> string
	durations sync.Map // unit name -> time.Duration
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Init sets the starting state of a unit without transition checks.
func (s *Store) Init(name string, state model.State) {
	s.states.Store(name, state)
}

// State returns the recorded state of a unit, or model.Unknown.
func (s *Store) State(name string) model.State {
	v, ok := s.states.Load(name)
	if !ok {
		return model.Unknown
	}
	return v.(model.State)
}

// Transition moves a unit to the next state. It fails if the move is not
// allowed from the unit's current state.
func (s *Store) Transition(name string, to model.State) error {
	for {
		v, ok := s.states.Load(name)
		from := model.Unknown
		if ok {
			from = v.(model.State)
		}
		if !model.CanTransition(from, to) {
			return fmt.Errorf("unit %q cannot move from %s to %s", name, from, to)
		}
		if !ok {
			if _, loaded := s.states.LoadOrStore(name, to); !loaded {
				return nil
			}
			continue
		}
		if s.states.CompareAndSwap(name, from, to) {
			return nil
		}
	}
}

// SetError records the failure of a unit.
func (s *Store) SetError(name string, err error) {
	s.errors.Store(name, err)
}

// Error returns the recorded failure of a unit, if any.
func (s *Store) Error(name string) error {
	v, ok := s.errors.Load(name)
	if !ok {
		return nil
	}
	return v.(error)
}

// SetCause records the dependency that prevented a unit from building.
func (s *Store) SetCause(name, cause string) {
	s.causes.Store(name, cause)
}

// Cause returns the recorded blocking dependency of a unit.
func (s *Store) Cause(name string) string {
	v, ok := s.causes.Load(name)
	if !ok {
		return ""
	}
	return v.(string)
}

// SetDuration records how long a unit's build took.
func (s *Store) SetDuration(name string, d time.Duration) {
	s.durations.Store(name, d)
}

// Duration returns the recorded build duration of a unit.
func (s *Store) Duration(name string) time.Duration {
	v, ok := s.durations.Load(name)
	if !ok {
		return 0
	}
	return v.(time.Duration)
}
