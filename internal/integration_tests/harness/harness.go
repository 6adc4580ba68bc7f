// Package harness runs the whole application over manifest trees written to
// a temporary directory. It is shared by the integration test suites.
package harness

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/action"
	"github.com/vk/ecow/internal/app"
	"github.com/vk/ecow/internal/hcl"
	"github.com/vk/ecow/internal/testutil"
)

// Result holds the outcomes of an integration test run.
type Result struct {
	Root      string
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// Options tunes one run. The zero value plans with an in-memory store.
type Options struct {
	Config  app.Config
	Env     map[string]string
	Modules []action.Module
	Options []app.Option
}

// Run writes files to a fresh directory and runs the application over it
// using a background context.
func Run(t *testing.T, files map[string]string, opts Options) *Result {
	t.Helper()
	return RunWithContext(context.Background(), t, testutil.WriteFiles(t, files), opts)
}

// RunWithContext runs the application over an existing manifest root with
// a caller provided context.
func RunWithContext(ctx context.Context, t *testing.T, root string, opts Options) *Result {
	t.Helper()

	cfg := opts.Config
	cfg.ManifestPath = root
	if cfg.StateBackend == "" {
		cfg.StateBackend = "memory"
	}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("ECOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	env := opts.Env
	if env == nil {
		env = map[string]string{}
	}

	appOpts := []app.Option{app.WithLogWriter(logs)}
	if len(opts.Modules) > 0 {
		appOpts = append(appOpts, app.WithModules(opts.Modules...))
	}
	appOpts = append(appOpts, opts.Options...)

	out := &bytes.Buffer{}
	a := app.NewApp(out, appConfig, hcl.NewLoader(hcl.WithEnv(env)), appOpts...)
	runErr := a.Run(ctx)

	return &Result{
		Root:      root,
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       runErr,
		App:       a,
	}
}
