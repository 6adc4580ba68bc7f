package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/content"
	"github.com/vk/ecow/internal/dag"
	"github.com/vk/ecow/internal/integration_tests/harness"
	"github.com/vk/ecow/internal/model"
	"github.com/vk/ecow/internal/registry"
	"github.com/vk/ecow/internal/scheduler"
)

// Test for: Structural errors abort the run before anything is planned.
func TestErrorHandling_ManifestValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		files     map[string]string
		wantIs    error
		wantInErr string
	}{
		{
			name: "duplicate unit across files",
			files: map[string]string{
				"a.hcl":     `unit "jute" {}`,
				"sub/b.hcl": `unit "jute" {}`,
			},
			wantIs:    registry.ErrDuplicateUnit,
			wantInErr: `"jute"`,
		},
		{
			name: "duplicate part",
			files: map[string]string{"main.hcl": `
				unit "jute" {
					part "view" {}
					part "view" {}
				}
			`},
			wantIs: model.ErrDuplicatePart,
		},
		{
			name:      "unresolved dependency",
			files:     map[string]string{"main.hcl": `unit "jute" { wsdep = ["hai"] }`},
			wantIs:    dag.ErrUnresolvedDependency,
			wantInErr: "hai",
		},
		{
			name: "self dependency",
			files: map[string]string{"main.hcl": `
				unit "hai" {}
				unit "jute" { wsdep = ["hai", "jute"] }
			`},
			wantIs: dag.ErrSelfDependency,
		},
		{
			name: "three unit cycle",
			files: map[string]string{"main.hcl": `
				unit "a" { wsdep = ["c"] }
				unit "b" { wsdep = ["a"] }
				unit "c" { wsdep = ["b"] }
			`},
			wantIs:    scheduler.ErrCycle,
			wantInErr: "a -> c -> b -> a",
		},
		{
			name: "missing input file",
			files: map[string]string{"main.hcl": `
				unit "jute" {
					part "view" { inputs = ["view.cpp"] }
				}
			`},
			wantIs:    content.ErrNoMatch,
			wantInErr: "view.cpp",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			result := harness.Run(t, tc.files, harness.Options{})

			// --- Assert ---
			require.ErrorIs(t, result.Err, tc.wantIs)
			if tc.wantInErr != "" {
				require.ErrorContains(t, result.Err, tc.wantInErr)
			}
			require.Nil(t, result.App.Plan(), "no plan is computed for an invalid manifest")
		})
	}
}
