package dag

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/model"
	"github.com/vk/ecow/internal/registry"
)

// Source is the read side of a unit registry.
type Source interface {
	All() iter.Seq[*model.Unit]
	Lookup(name string) (*model.Unit, error)
}

// Build resolves every dependency name of every unit in src and returns the
// resulting graph. Resolution only starts after all units have been
// collected, so a unit may name a dependency registered after it.
func Build(ctx context.Context, src Source) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	g := &Graph{index: make(map[string]NodeID)}
	byUnit := make(map[*model.Unit]NodeID)
	for u := range src.All() {
		id := NodeID(len(g.units))
		g.units = append(g.units, u)
		g.index[u.Name] = id
		byUnit[u] = id
	}
	logger.Debug("Collected units for graph construction.", "units", len(g.units))

	g.deps = make([][]NodeID, len(g.units))
	g.dependents = make([][]NodeID, len(g.units))

	for _, u := range g.units {
		for _, depName := range u.Deps {
			if depName == u.Name {
				return nil, &SelfDependencyError{Unit: u.Name}
			}
		}
	}

	for id, u := range g.units {
		seen := make(map[NodeID]struct{}, len(u.Deps))
		deps := make([]NodeID, 0, len(u.Deps))
		for _, depName := range u.Deps {
			target, err := src.Lookup(depName)
			if err != nil {
				if errors.Is(err, registry.ErrNotFound) {
					return nil, &UnresolvedDependencyError{Unit: u.Name, Missing: depName}
				}
				return nil, fmt.Errorf("resolving dependency %q of unit %q: %w", depName, u.Name, err)
			}
			depID, ok := byUnit[target]
			if !ok {
				// Registered after the snapshot was taken.
				return nil, &UnresolvedDependencyError{Unit: u.Name, Missing: depName}
			}
			if _, dup := seen[depID]; dup {
				logger.Debug("Ignoring repeated dependency.", "unit", u.Name, "dependency", depName)
				continue
			}
			seen[depID] = struct{}{}
			deps = append(deps, depID)
		}
		g.deps[id] = deps
		g.edges += len(deps)
	}

	// Filled in ascending dependent order because ids are visited in order.
	for id, deps := range g.deps {
		for _, dep := range deps {
			g.dependents[dep] = append(g.dependents[dep], NodeID(id))
		}
	}

	logger.Debug("Dependency graph built.", "nodes", len(g.units), "edges", g.edges)
	return g, nil
}
