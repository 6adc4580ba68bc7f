// Package action maps part kinds to the Go functions that process them and
// composes those functions into an executor.Builder.
package action

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/executor"
	"github.com/vk/ecow/internal/model"
)

// Action processes one part of a unit.
type Action func(ctx context.Context, u *model.Unit, p model.Part) error

// Module is a bundle of actions compiled into the binary.
type Module interface {
	Register(r *Registry)
}

// Registry holds the actions registered per part kind.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register binds an action to a part kind. Registering the same kind twice
// is a programming error and panics.
func (r *Registry) Register(kind string, a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[kind]; exists {
		panic(fmt.Sprintf("action for part kind '%s' already registered", kind))
	}
	r.actions[kind] = a
}

// Lookup returns the action registered for kind.
func (r *Registry) Lookup(kind string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[kind]
	return a, ok
}

// Kinds returns the registered part kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.actions))
	for k := range r.actions {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Builder returns an executor.Builder that processes the parts of a unit in
// declaration order, stopping at the first error. Parts whose kind has no
// registered action are handed to fallback; with a nil fallback they fail.
func (r *Registry) Builder(fallback Action) executor.Builder {
	return executor.BuilderFunc(func(ctx context.Context, u *model.Unit) error {
		for _, p := range u.Parts {
			act, ok := r.Lookup(p.Kind)
			if !ok {
				if fallback == nil {
					return fmt.Errorf("part %q: no action for kind %q", p.Name, p.Kind)
				}
				act = fallback
			}
			if err := act(ctx, u, p); err != nil {
				return fmt.Errorf("part %q (%s): %w", p.Name, p.Kind, err)
			}
		}
		return nil
	})
}

// Log is an action that only logs the part it is given.
func Log(ctx context.Context, u *model.Unit, p model.Part) error {
	ctxlog.FromContext(ctx).Info("Processing part.",
		"unit", u.Name,
		"part", p.Name,
		"kind", p.Kind,
		"inputs", len(p.Inputs),
		"fingerprint", shortFingerprint(p.Fingerprint),
	)
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
