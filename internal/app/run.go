package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vk/ecow/internal/action"
	"github.com/vk/ecow/internal/config"
	"github.com/vk/ecow/internal/content"
	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/dag"
	"github.com/vk/ecow/internal/executor"
	"github.com/vk/ecow/internal/fingerprint"
	"github.com/vk/ecow/internal/incremental"
	"github.com/vk/ecow/internal/model"
	"github.com/vk/ecow/internal/scheduler"
	"github.com/vk/ecow/internal/statestore"
)

// Run loads the manifest, plans the evaluation and, when configured to,
// executes it. Without Execute the plan is written to the output as JSON;
// with it the build report is. Unit failures make Run return the joined
// build failures after the report has been written.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	manifest, err := a.loader.Load(ctx, a.config.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	if err := a.register(ctx, manifest); err != nil {
		return err
	}

	a.logger.Debug("Building dependency graph from registry...")
	graph, err := dag.Build(ctx, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", graph.Len(), "edge_count", graph.EdgeCount())

	sched, err := scheduler.New(graph).Schedule(ctx)
	if err != nil {
		return fmt.Errorf("failed to schedule units: %w", err)
	}

	store, closeStore, err := a.openStore(ctx, manifest.Root)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close state store: %w", cerr))
		}
	}()

	prior, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load fingerprint state: %w", err)
	}

	plan, err := incremental.Plan(ctx, graph, sched, prior)
	if err != nil {
		return fmt.Errorf("failed to plan build: %w", err)
	}
	a.plan = plan

	if a.config.DOTPath != "" {
		if err := a.writeDOT(plan); err != nil {
			return err
		}
	}

	if !a.config.Execute {
		a.logger.Debug("Execution disabled, writing plan.")
		return writeJSON(a.outW, plan.Output())
	}

	if len(plan.Rebuild) == 0 {
		a.logger.Info("All units are fresh, nothing to build.")
	}

	var opts []executor.Option
	if a.config.WorkerCount > 0 {
		opts = append(opts, executor.WithWorkers(a.config.WorkerCount))
	}
	exec := executor.New(plan, a.actions.Builder(action.Log), fingerprint.NewState(prior), store, opts...)
	report, err := exec.Run(ctx)
	a.report = report
	if report != nil {
		if werr := writeJSON(a.outW, report); werr != nil {
			err = errors.Join(err, werr)
		}
	}
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("execution cancelled: %w", errors.Join(cerr, report.Err()))
	}

	a.logger.Debug("App.Run method finished.")
	return report.Err()
}

// register fingerprints every declaration and registers the resulting units
// in declaration order. The registry is cleared first so Run can be repeated.
func (a *App) register(ctx context.Context, manifest *config.Manifest) error {
	hasher, err := content.NewHasher(os.DirFS(manifest.Root), content.DefaultCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create content hasher: %w", err)
	}

	a.registry.Reset()
	for _, decl := range manifest.Units {
		fps, err := hasher.Unit(ctx, decl)
		if err != nil {
			return fmt.Errorf("failed to fingerprint unit %q: %w", decl.Name, err)
		}
		u, err := model.NewUnit(decl, fps)
		if err != nil {
			return fmt.Errorf("invalid unit declared in %s: %w", decl.Source, err)
		}
		if _, err := a.registry.Register(u); err != nil {
			return fmt.Errorf("failed to register unit: %w", err)
		}
	}
	a.logger.Info("Units registered.", "count", a.registry.Len(), "files", len(manifest.Files))
	return nil
}

// openStore returns the configured state store and a function releasing it.
// A relative file path is taken relative to the manifest root.
func (a *App) openStore(ctx context.Context, root string) (fingerprint.Store, func() error, error) {
	noop := func() error { return nil }
	if a.store != nil {
		return a.store, noop, nil
	}

	cfg := a.config.storeConfig()
	if cfg.Backend == statestore.BackendFile && !filepath.IsAbs(cfg.Path) {
		cfg.Path = filepath.Join(root, cfg.Path)
	}
	store, err := statestore.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s state store: %w", cfg.Backend, err)
	}
	a.logger.Debug("State store opened.", "backend", cfg.Backend)

	if c, ok := store.(io.Closer); ok {
		return store, c.Close, nil
	}
	return store, noop, nil
}

func (a *App) writeDOT(plan *incremental.BuildPlan) error {
	f, err := os.Create(a.config.DOTPath)
	if err != nil {
		return fmt.Errorf("failed to create DOT file: %w", err)
	}
	g := plan.Graph()
	label := func(id dag.NodeID) string {
		return plan.States[g.Name(id)].String()
	}
	if err := g.ExportDOT(f, dag.DOTWithLabel(label)); err != nil {
		f.Close()
		return fmt.Errorf("failed to export DOT: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write DOT file: %w", err)
	}
	a.logger.Debug("Graph exported.", "path", a.config.DOTPath)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
