package scheduler

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/dag"
)

// Schedule is a validated build order for a graph.
type Schedule struct {
	// Order lists every node; dependencies always come before dependents.
	Order []dag.NodeID
	// Layers groups nodes by depth. Layer 0 holds every node without
	// dependencies; each layer is sorted by registration order.
	Layers [][]dag.NodeID

	graph *dag.Graph
	layer []int
}

// Names returns Order as unit names.
func (s *Schedule) Names() []string { return s.graph.Names(s.Order) }

// LayerNames returns Layers as unit names.
func (s *Schedule) LayerNames() [][]string {
	out := make([][]string, len(s.Layers))
	for i, layer := range s.Layers {
		out[i] = s.graph.Names(layer)
	}
	return out
}

// Layer returns the layer index of a node.
func (s *Schedule) Layer(id dag.NodeID) int { return s.layer[id] }

// Graph returns the graph the schedule was computed for.
func (s *Schedule) Graph() *dag.Graph { return s.graph }

// Scheduler computes schedules for one graph.
type Scheduler struct {
	graph *dag.Graph
}

// New creates a Scheduler for g.
func New(g *dag.Graph) *Scheduler {
	return &Scheduler{graph: g}
}

// Schedule checks the graph for cycles and returns its build order, or a
// *CycleError describing the first cycle found.
func (s *Scheduler) Schedule(ctx context.Context) (*Schedule, error) {
	logger := ctxlog.FromContext(ctx)

	if err := s.DetectCycle(); err != nil {
		logger.Debug("Cycle detected.", "error", err)
		return nil, err
	}

	order, err := s.topoOrder()
	if err != nil {
		return nil, err
	}

	layerOf := make([]int, s.graph.Len())
	depth := 0
	for _, id := range order {
		l := 0
		for _, dep := range s.graph.Dependencies(id) {
			if layerOf[dep]+1 > l {
				l = layerOf[dep] + 1
			}
		}
		layerOf[id] = l
		if l+1 > depth {
			depth = l + 1
		}
	}

	layers := make([][]dag.NodeID, depth)
	for _, id := range s.graph.Nodes() {
		layers[layerOf[id]] = append(layers[layerOf[id]], id)
	}

	logger.Debug("Schedule computed.", "units", len(order), "layers", len(layers))
	return &Schedule{Order: order, Layers: layers, graph: s.graph, layer: layerOf}, nil
}

const (
	white = iota
	gray
	black
)

// DetectCycle returns a *CycleError if the graph contains a cycle.
func (s *Scheduler) DetectCycle() error {
	g := s.graph
	color := make([]uint8, g.Len())
	stack := make([]dag.NodeID, 0, g.Len())

	var visit func(id dag.NodeID) error
	visit = func(id dag.NodeID) error {
		color[id] = gray
		stack = append(stack, id)

		for _, dep := range g.Dependencies(id) {
			switch color[dep] {
			case gray:
				return &CycleError{Path: cyclePath(g, stack, dep)}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, id := range g.Nodes() {
		if color[id] != white {
			continue
		}
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// cyclePath returns the stack suffix starting at the re-entered node, closed
// by repeating that node.
func cyclePath(g *dag.Graph, stack []dag.NodeID, reentered dag.NodeID) []string {
	start := len(stack) - 1
	for start > 0 && stack[start] != reentered {
		start--
	}
	path := g.Names(stack[start:])
	return append(path, g.Name(reentered))
}

func (s *Scheduler) topoOrder() ([]dag.NodeID, error) {
	g := s.graph
	pending := make([]int, g.Len())
	ready := &idHeap{}
	for _, id := range g.Nodes() {
		pending[id] = len(g.Dependencies(id))
		if pending[id] == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)

	order := make([]dag.NodeID, 0, g.Len())
	for ready.Len() > 0 {
		id := heap.Pop(ready).(dag.NodeID)
		order = append(order, id)
		for _, dependent := range g.Dependents(id) {
			pending[dependent]--
			if pending[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(order) != g.Len() {
		return nil, fmt.Errorf("scheduler: ordered %d of %d units", len(order), g.Len())
	}
	return order, nil
}

type idHeap []dag.NodeID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(dag.NodeID)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
