// Package incremental decides which units of a scheduled graph must be
// rebuilt.
//
// A unit is stale when no fingerprint was recorded for it, when its freshly
// computed aggregate fingerprint differs from the recorded one, or when any
// of its dependencies is stale. Staleness only travels from a dependency to
// its dependents. Planning is read-only; recording fingerprints after a
// successful build is the executor's job.
package incremental

import (
	"context"
	"fmt"

	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/dag"
	"github.com/vk/ecow/internal/fingerprint"
	"github.com/vk/ecow/internal/model"
	"github.com/vk/ecow/internal/scheduler"
)

// Reason explains why a unit is stale.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNew        Reason = "no recorded fingerprint"
	ReasonChanged    Reason = "fingerprint changed"
	ReasonDependency Reason = "dependency is stale"
)

// BuildPlan is the outcome of planning one evaluation.
type BuildPlan struct {
	// Order is the full topological order.
	Order []dag.NodeID
	// Rebuild is Order restricted to stale units.
	Rebuild []dag.NodeID
	// Layers are the schedule's layers restricted to stale units. Empty
	// layers are dropped.
	Layers [][]dag.NodeID
	// Fingerprints holds the fresh aggregate fingerprint of every unit.
	Fingerprints fingerprint.Map
	// States holds Fresh or Stale for every unit.
	States map[string]model.State
	// Reasons holds why each stale unit is stale.
	Reasons map[string]Reason

	graph *dag.Graph
	stale []bool
}

// Output is the serialisable view of a plan handed to external executors.
type Output struct {
	Order  []string   `json:"order"`
	Stale  []string   `json:"stale"`
	Layers [][]string `json:"layers"`
}

// Plan computes the build plan for g. prior holds the fingerprints recorded
// by earlier runs and may be nil.
func Plan(ctx context.Context, g *dag.Graph, sched *scheduler.Schedule, prior fingerprint.Map) (*BuildPlan, error) {
	logger := ctxlog.FromContext(ctx)

	if len(sched.Order) != g.Len() {
		return nil, fmt.Errorf("incremental: schedule covers %d of %d units", len(sched.Order), g.Len())
	}

	p := &BuildPlan{
		Order:        sched.Order,
		Fingerprints: make(fingerprint.Map, g.Len()),
		States:       make(map[string]model.State, g.Len()),
		Reasons:      make(map[string]Reason),
		graph:        g,
		stale:        make([]bool, g.Len()),
	}

	for _, id := range sched.Order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u := g.Unit(id)
		p.States[u.Name] = model.Resolved

		deps := g.Dependencies(id)
		depFPs := make([]fingerprint.Dep, 0, len(deps))
		depStale := false
		for _, dep := range deps {
			name := g.Name(dep)
			fp, ok := p.Fingerprints[name]
			if !ok {
				return nil, fmt.Errorf("incremental: %q is ordered before its dependency %q", u.Name, name)
			}
			depFPs = append(depFPs, fingerprint.Dep{Name: name, Fingerprint: fp})
			depStale = depStale || p.stale[dep]
		}

		fp := fingerprint.Aggregate(u, depFPs)
		p.Fingerprints[u.Name] = fp

		previous, known := prior[u.Name]
		reason := ReasonNone
		switch {
		case !known:
			reason = ReasonNew
		case previous != fp:
			reason = ReasonChanged
		case depStale:
			reason = ReasonDependency
		}

		if reason == ReasonNone {
			p.States[u.Name] = model.Fresh
			continue
		}
		p.stale[id] = true
		p.States[u.Name] = model.Stale
		p.Reasons[u.Name] = reason
		p.Rebuild = append(p.Rebuild, id)
		logger.Debug("Unit is stale.", "unit", u.Name, "reason", string(reason))
	}

	for _, layer := range sched.Layers {
		var staleLayer []dag.NodeID
		for _, id := range layer {
			if p.stale[id] {
				staleLayer = append(staleLayer, id)
			}
		}
		if len(staleLayer) > 0 {
			p.Layers = append(p.Layers, staleLayer)
		}
	}

	logger.Info("Build plan computed.", "units", g.Len(), "stale", len(p.Rebuild), "layers", len(p.Layers))
	return p, nil
}

// IsStale reports whether the unit at id must be rebuilt.
func (p *BuildPlan) IsStale(id dag.NodeID) bool { return p.stale[id] }

// Graph returns the graph the plan was computed for.
func (p *BuildPlan) Graph() *dag.Graph { return p.graph }

// StaleNames returns the names of stale units in build order.
func (p *BuildPlan) StaleNames() []string { return p.graph.Names(p.Rebuild) }

// Output returns the plan by unit name.
func (p *BuildPlan) Output() Output {
	out := Output{
		Order:  p.graph.Names(p.Order),
		Stale:  p.StaleNames(),
		Layers: make([][]string, len(p.Layers)),
	}
	for i, layer := range p.Layers {
		out.Layers[i] = p.graph.Names(layer)
	}
	return out
}
