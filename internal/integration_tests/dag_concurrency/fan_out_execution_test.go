package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/action"
	"github.com/vk/ecow/internal/app"
	"github.com/vk/ecow/internal/integration_tests/harness"
)

// Test for: Units that share a dependency run in parallel once it is built.
func TestDagConcurrency_FanOutExecution(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	manifest := `
		unit "root" {
			part "run" { kind = "sleeper" }
		}
		unit "left" {
			wsdep = ["root"]
			part "run" { kind = "sleeper" }
		}
		unit "middle" {
			wsdep = ["root"]
			part "run" { kind = "sleeper" }
		}
		unit "right" {
			wsdep = ["root"]
			part "run" { kind = "sleeper" }
		}
	`
	sleeper := harness.NewMockSleeperModule(100*time.Millisecond, nil)

	// --- Act ---
	result := harness.Run(t, map[string]string{"main.hcl": manifest}, harness.Options{
		Config:  app.Config{Execute: true, WorkerCount: 3},
		Modules: []action.Module{sleeper},
	})

	// --- Assert ---
	require.NoError(t, result.Err)
	require.Equal(t, 4, sleeper.Ran())

	root := sleeper.Record("root")
	var latestStart, earliestEnd time.Time
	for i, name := range []string{"left", "middle", "right"} {
		r := sleeper.Record(name)
		require.False(t, r.Start.Before(root.End), "%s started before root finished", name)
		if i == 0 || r.Start.After(latestStart) {
			latestStart = r.Start
		}
		if i == 0 || r.End.Before(earliestEnd) {
			earliestEnd = r.End
		}
	}
	assert.True(t, latestStart.Before(earliestEnd), "the fanned out units should overlap in time")
}
