package registry

import (
	"errors"
	"iter"
	"sync"

	"github.com/vk/ecow/internal/model"
)

// Ref is a stable, opaque handle to a registered unit.
type Ref struct {
	index      int
	generation uint64
}

// Index returns the registration index of the unit.
func (r Ref) Index() int { return r.index }

// Generation returns the registry generation the unit was registered in.
func (r Ref) Generation() uint64 { return r.generation }

// Registry maps unit names to units, in registration order.
type Registry struct {
	mu         sync.RWMutex
	units      []*model.Unit
	byName     map[string]int
	generation uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a unit. It fails with a *DuplicateUnitError if a unit with
// the same name is already registered.
func (r *Registry) Register(u *model.Unit) (Ref, error) {
	if u == nil || u.Name == "" {
		return Ref{}, errors.New("registry: unit must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, exists := r.byName[u.Name]; exists {
		return Ref{}, &DuplicateUnitError{
			Name:      u.Name,
			Existing:  r.units[idx].Source,
			Duplicate: u.Source,
		}
	}

	idx := len(r.units)
	r.units = append(r.units, u)
	r.byName[u.Name] = idx
	return Ref{index: idx, generation: r.generation}, nil
}

// Lookup returns the unit registered under name, or a *NotFoundError.
func (r *Registry) Lookup(name string) (*model.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return r.units[idx], nil
}

// Resolve returns the unit a reference points to. References from an earlier
// generation no longer resolve.
func (r *Registry) Resolve(ref Ref) (*model.Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ref.generation != r.generation || ref.index < 0 || ref.index >= len(r.units) {
		return nil, false
	}
	return r.units[ref.index], true
}

// All returns the registered units in registration order. The sequence is
// backed by a snapshot taken when All is called; it can be ranged over any
// number of times.
func (r *Registry) All() iter.Seq[*model.Unit] {
	r.mu.RLock()
	snapshot := make([]*model.Unit, len(r.units))
	copy(snapshot, r.units)
	r.mu.RUnlock()

	return func(yield func(*model.Unit) bool) {
		for _, u := range snapshot {
			if !yield(u) {
				return
			}
		}
	}
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Generation returns the current build generation.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Reset drops every unit and starts a new generation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.units = nil
	r.byName = make(map[string]int)
	r.generation++
}
