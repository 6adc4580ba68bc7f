package integration_tests

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/app"
	"github.com/vk/ecow/internal/incremental"
	"github.com/vk/ecow/internal/integration_tests/harness"
	"github.com/vk/ecow/internal/statestore"
	"github.com/vk/ecow/internal/testutil"
)

func decodePlan(t *testing.T, out string) incremental.Output {
	t.Helper()
	var plan incremental.Output
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	return plan
}

// Test for: Units declared across nested manifest files form one graph, in
// file path then block order.
func TestHCLFeatures_UnifiedLoading(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"build.hcl": `
			unit "jute" {
				wsdep = ["hai", "traits"]
				part "view" { inputs = ["view.cpp"] }
			}
		`,
		"hai/build.hcl": `
			unit "hai" {
				part "src" { inputs = ["hai.cpp"] }
			}
		`,
		"traits/build.hcl": `
			unit "traits" {
				wsdep = ["hai"]
			}
		`,
		"view.cpp":    "view",
		"hai/hai.cpp": "hai",
	}

	// --- Act ---
	result := harness.Run(t, files, harness.Options{})

	// --- Assert ---
	require.NoError(t, result.Err)
	want := incremental.Output{
		Order:  []string{"hai", "traits", "jute"},
		Stale:  []string{"hai", "traits", "jute"},
		Layers: [][]string{{"hai"}, {"traits"}, {"jute"}},
	}
	if diff := cmp.Diff(want, decodePlan(t, result.Output)); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	hai, err := result.App.Registry().Lookup("hai")
	require.NoError(t, err)
	assert.Equal(t, "hai", hai.Dir, "inputs resolve relative to the declaring file")
	assert.NotEmpty(t, hai.Parts[0].Fingerprint)
}

// Test for: Manifest expressions can read the environment and call the
// string and collection functions.
func TestHCLFeatures_EnvAndFunctions(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
			unit "jute" {
				kind = lower(env.ECOW_UNIT_KIND)
				part "view" {
					kind   = format("%s-view", env.ECOW_PART_PREFIX)
					inputs = concat(["a.cpp"], [join("", ["b", ".cpp"])])
				}
			}
		`,
		"a.cpp": "a",
		"b.cpp": "b",
	}
	env := map[string]string{"ECOW_UNIT_KIND": "MOD", "ECOW_PART_PREFIX": "cxx"}

	// --- Act ---
	result := harness.Run(t, files, harness.Options{Env: env})

	// --- Assert ---
	require.NoError(t, result.Err)
	u, err := result.App.Registry().Lookup("jute")
	require.NoError(t, err)
	assert.Equal(t, "mod", u.Kind)
	require.Len(t, u.Parts, 1)
	assert.Equal(t, "cxx-view", u.Parts[0].Kind)
	assert.Equal(t, []string{"a.cpp", "b.cpp"}, u.Parts[0].Inputs)
}

// Test for: Glob inputs track both edits to matched files and newly matching
// files.
func TestHCLFeatures_GlobInputsDriveStaleness(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := testutil.WriteFiles(t, map[string]string{
		"main.hcl": `
			unit "hai" {
				part "src" { inputs = ["src/**/*.cpp"] }
			}
			unit "jute" {
				wsdep = ["hai"]
				part "src" { inputs = ["jute.cpp"] }
			}
		`,
		"src/a.cpp":      "a",
		"src/deep/b.cpp": "b",
		"src/readme.md":  "ignored",
		"jute.cpp":       "jute",
	})
	store := statestore.NewMemory(nil)
	run := func() *harness.Result {
		res := harness.RunWithContext(context.Background(), t, root, harness.Options{
			Config:  app.Config{Execute: true},
			Options: []app.Option{app.WithStore(store)},
		})
		require.NoError(t, res.Err)
		return res
	}

	// --- Act ---
	run()
	afterFirst := run()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "readme.md"), []byte("edited"), 0o644))
	afterUnmatched := run()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "deep", "c.cpp"), []byte("c"), 0o644))
	afterNewFile := run()

	// --- Assert ---
	assert.Empty(t, afterFirst.App.Plan().StaleNames(), "a second run over unchanged inputs builds nothing")
	assert.Empty(t, afterUnmatched.App.Plan().StaleNames(), "files outside the pattern do not matter")
	assert.Equal(t, []string{"hai", "jute"}, afterNewFile.App.Plan().StaleNames())
}
