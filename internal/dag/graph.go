package dag

import (
	"slices"

	"github.com/vk/ecow/internal/model"
)

// NodeID is the arena index of a node. It equals the unit's registration index.
type NodeID int

// Graph is an immutable dependency graph over units.
type Graph struct {
	units      []*model.Unit
	index      map[string]NodeID
	deps       [][]NodeID
	dependents [][]NodeID
	edges      int
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.units) }

// EdgeCount returns the number of dependency edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Unit returns the unit stored at id.
func (g *Graph) Unit(id NodeID) *model.Unit { return g.units[id] }

// Name returns the name of the unit stored at id.
func (g *Graph) Name(id NodeID) string { return g.units[id].Name }

// Lookup returns the node of the named unit.
func (g *Graph) Lookup(name string) (NodeID, bool) {
	id, ok := g.index[name]
	return id, ok
}

// Nodes returns every node in registration order.
func (g *Graph) Nodes() []NodeID {
	ids := make([]NodeID, len(g.units))
	for i := range ids {
		ids[i] = NodeID(i)
	}
	return ids
}

// Dependencies returns the nodes id depends on, in declared order. The slice
// is owned by the graph and must not be modified.
func (g *Graph) Dependencies(id NodeID) []NodeID { return g.deps[id] }

// Dependents returns the nodes that depend on id, in ascending order. The
// slice is owned by the graph and must not be modified.
func (g *Graph) Dependents(id NodeID) []NodeID { return g.dependents[id] }

// Names maps node ids to unit names.
func (g *Graph) Names(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.units[id].Name
	}
	return out
}

// TransitiveDependents returns every node reachable from the given roots by
// following dependent edges, excluding the roots themselves unless they are
// reachable from another root. The result is sorted.
func (g *Graph) TransitiveDependents(roots ...NodeID) []NodeID {
	seen := make([]bool, len(g.units))
	stack := make([]NodeID, 0, len(roots))
	for _, r := range roots {
		stack = append(stack, g.dependents[r]...)
	}

	var out []NodeID
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		stack = append(stack, g.dependents[id]...)
	}
	slices.Sort(out)
	return out
}
