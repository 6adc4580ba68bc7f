package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/dag"
	"github.com/vk/ecow/internal/fingerprint"
	"github.com/vk/ecow/internal/incremental"
	"github.com/vk/ecow/internal/inmemorystore"
	"github.com/vk/ecow/internal/model"
	"golang.org/x/sync/errgroup"
)

// Builder builds a single unit.
type Builder interface {
	Build(ctx context.Context, u *model.Unit) error
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, u *model.Unit) error

// Build calls f(ctx, u).
func (f BuilderFunc) Build(ctx context.Context, u *model.Unit) error { return f(ctx, u) }

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds the number of units built at the same time.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Executor runs the stale layers of one build plan.
type Executor struct {
	plan    *incremental.BuildPlan
	builder Builder
	state   *fingerprint.State
	store   fingerprint.Store
	workers int

	outcomes *inmemorystore.Store

	persistMu   sync.Mutex
	persistErrs []error
}

// New creates an executor. store may be nil, in which case built
// fingerprints are only recorded in state.
func New(plan *incremental.BuildPlan, builder Builder, state *fingerprint.State, store fingerprint.Store, opts ...Option) *Executor {
	e := &Executor{
		plan:     plan,
		builder:  builder,
		state:    state,
		store:    store,
		workers:  runtime.GOMAXPROCS(0),
		outcomes: inmemorystore.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the plan. Unit failures are reported in the returned Report
// and do not make Run fail; the returned error reports fingerprint state
// that could not be saved.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	g := e.plan.Graph()

	for _, id := range e.plan.Order {
		name := g.Name(id)
		e.outcomes.Init(name, e.plan.States[name])
	}

	logger.Info("Executing build plan.", "stale", len(e.plan.Rebuild), "layers", len(e.plan.Layers), "workers", e.workers)
	start := time.Now()

	for i, layer := range e.plan.Layers {
		if ctx.Err() != nil {
			logger.Warn("Execution cancelled before layer started.", "layer", i)
			e.cancelLayers(ctx, e.plan.Layers[i:])
			break
		}
		logger.Debug("Starting layer.", "layer", i, "units", len(layer))
		e.runLayer(ctx, g, layer)
	}

	report := e.report(g)
	logger.Info("Execution finished.",
		"built", len(report.Units(model.Built)),
		"failed", len(report.Units(model.Failed)),
		"not_attempted", len(report.Units(model.NotAttempted)),
		"cancelled", len(report.Units(model.Cancelled)),
		"duration", time.Since(start),
	)

	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	return report, errors.Join(e.persistErrs...)
}

// runLayer dispatches every unit of a layer and waits for all of them.
func (e *Executor) runLayer(ctx context.Context, g *dag.Graph, layer []dag.NodeID) {
	var eg errgroup.Group
	eg.SetLimit(e.workers)

	for _, id := range layer {
		u := g.Unit(id)
		if state, cause, blocked := e.blocked(g, id); blocked {
			e.finish(ctx, u.Name, state)
			e.outcomes.SetCause(u.Name, cause)
			ctxlog.FromContext(ctx).Warn("Skipping unit.", "unit", u.Name, "state", state.String(), "dependency", cause)
			continue
		}

		// Go blocks while all workers are busy; a unit waiting here is queued.
		eg.Go(func() error {
			if ctx.Err() != nil {
				e.finish(ctx, u.Name, model.Cancelled)
				return nil
			}
			e.build(ctx, u)
			return nil
		})
	}

	_ = eg.Wait()
}

// blocked reports whether a dependency of id prevents it from building.
func (e *Executor) blocked(g *dag.Graph, id dag.NodeID) (model.State, string, bool) {
	for _, dep := range g.Dependencies(id) {
		name := g.Name(dep)
		switch e.outcomes.State(name) {
		case model.Failed, model.NotAttempted:
			return model.NotAttempted, name, true
		case model.Cancelled:
			return model.Cancelled, name, true
		}
	}
	return model.Unknown, "", false
}

func (e *Executor) build(ctx context.Context, u *model.Unit) {
	logger := ctxlog.FromContext(ctx).With("unit", u.Name)
	e.finish(ctx, u.Name, model.Building)
	logger.Debug("Building unit.", "parts", len(u.Parts))

	// Running builds complete even if the run is cancelled.
	buildCtx := context.WithoutCancel(ctx)
	start := time.Now()
	err := e.safeBuild(buildCtx, u)
	e.outcomes.SetDuration(u.Name, time.Since(start))

	if err != nil {
		failure := &BuildFailure{Unit: u.Name, Err: err}
		e.outcomes.SetError(u.Name, failure)
		e.finish(ctx, u.Name, model.Failed)
		logger.Error("Unit build failed.", "error", err)
		return
	}

	e.state.Record(u.Name, e.plan.Fingerprints[u.Name])
	e.finish(ctx, u.Name, model.Built)
	logger.Debug("Unit built.", "duration", time.Since(start))

	if e.store == nil {
		return
	}
	if err := e.state.Flush(buildCtx, e.store); err != nil {
		logger.Error("Saving fingerprint state failed.", "error", err)
		e.persistMu.Lock()
		e.persistErrs = append(e.persistErrs, fmt.Errorf("saving fingerprint of %q: %w", u.Name, err))
		e.persistMu.Unlock()
	}
}

func (e *Executor) safeBuild(ctx context.Context, u *model.Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.builder.Build(ctx, u)
}

// cancelLayers marks every unit of the remaining layers as cancelled.
func (e *Executor) cancelLayers(ctx context.Context, layers [][]dag.NodeID) {
	g := e.plan.Graph()
	for _, layer := range layers {
		for _, id := range layer {
			e.finish(ctx, g.Name(id), model.Cancelled)
		}
	}
}

func (e *Executor) finish(ctx context.Context, name string, to model.State) {
	if err := e.outcomes.Transition(name, to); err != nil {
		ctxlog.FromContext(ctx).Warn("Ignoring invalid state change.", "error", err)
	}
}

func (e *Executor) report(g *dag.Graph) *Report {
	r := &Report{
		Order:    g.Names(e.plan.Order),
		Outcomes: make(map[string]Outcome, len(e.plan.Order)),
	}
	for _, name := range r.Order {
		o := Outcome{
			State:    e.outcomes.State(name),
			Err:      e.outcomes.Error(name),
			Cause:    e.outcomes.Cause(name),
			Duration: e.outcomes.Duration(name),
		}
		r.Outcomes[name] = o
	}
	return r
}
