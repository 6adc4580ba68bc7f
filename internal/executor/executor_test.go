package executor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/dag"
	"github.com/vk/ecow/internal/fingerprint"
	"github.com/vk/ecow/internal/incremental"
	"github.com/vk/ecow/internal/model"
	"github.com/vk/ecow/internal/scheduler"
	"github.com/vk/ecow/internal/statestore"
	"github.com/vk/ecow/internal/testutil"
)

func newPlan(t *testing.T, units []*model.Unit, prior fingerprint.Map) *incremental.BuildPlan {
	t.Helper()

	ctx, _ := testutil.Context(t)
	g, err := dag.Build(ctx, testutil.Registry(t, units...))
	require.NoError(t, err)
	s, err := scheduler.New(g).Schedule(ctx)
	require.NoError(t, err)
	p, err := incremental.Plan(ctx, g, s, prior)
	require.NoError(t, err)
	return p
}

// diamondAndE is A, B(A), C(A), D(B, C) plus an independent E.
func diamondAndE() []*model.Unit {
	return append(testutil.Diamond(), testutil.Unit("E"))
}

// recorder is a Builder that remembers the order units finished in.
type recorder struct {
	mu       sync.Mutex
	finished []string
	fail     map[string]error
}

func (r *recorder) Build(_ context.Context, u *model.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, u.Name)
	return r.fail[u.Name]
}

func (r *recorder) index(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.finished {
		if n == name {
			return i
		}
	}
	return -1
}

func TestRun_BuildsEverythingInDependencyOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	plan := newPlan(t, diamondAndE(), nil)
	state := fingerprint.NewState(nil)
	store := statestore.NewMemory(nil)
	b := &recorder{}

	// --- Act ---
	report, err := New(plan, b, state, store, WithWorkers(4)).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, report.Units(model.Built))

	assert.Less(t, b.index("A"), b.index("B"))
	assert.Less(t, b.index("A"), b.index("C"))
	assert.Less(t, b.index("B"), b.index("D"))
	assert.Less(t, b.index("C"), b.index("D"))

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, plan.Fingerprints, saved)
	assert.Equal(t, plan.Fingerprints, state.Snapshot())
}

func TestRun_FailureSkipsOnlyDependents(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	prior := newPlan(t, diamondAndE(), nil).Fingerprints
	units := diamondAndE()
	for _, u := range units {
		u.Parts[0].Fingerprint = "v2-" + u.Name
	}
	plan := newPlan(t, units, prior)
	state := fingerprint.NewState(prior)
	store := statestore.NewMemory(prior)
	boom := errors.New("compiler exploded")
	b := &recorder{fail: map[string]error{"B": boom}}

	// --- Act ---
	report, err := New(plan, b, state, store, WithWorkers(2)).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []string{"A", "C", "E"}, report.Units(model.Built))
	assert.Equal(t, []string{"B"}, report.Failed())
	assert.Equal(t, []string{"D"}, report.Units(model.NotAttempted))
	assert.Equal(t, "B", report.Outcomes["D"].Cause)
	assert.Equal(t, -1, b.index("D"), "dependents of a failed unit are never run")

	var failure *BuildFailure
	require.True(t, errors.As(report.Err(), &failure))
	assert.Equal(t, "B", failure.Unit)
	assert.ErrorIs(t, report.Err(), boom)
	assert.ErrorIs(t, report.Err(), ErrBuildFailed)

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, prior["B"], saved["B"], "a failed unit keeps its previous fingerprint")
	assert.Equal(t, prior["D"], saved["D"])
	assert.Equal(t, plan.Fingerprints["C"], saved["C"])
	assert.Equal(t, plan.Fingerprints["E"], saved["E"])
}

func TestRun_NotAttemptedIsTransitive(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	units := []*model.Unit{
		testutil.Unit("base"),
		testutil.Unit("mid", "base"),
		testutil.Unit("top", "mid"),
	}
	plan := newPlan(t, units, nil)
	b := &recorder{fail: map[string]error{"base": errors.New("nope")}}

	report, err := New(plan, b, fingerprint.NewState(nil), nil).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "top"}, report.Units(model.NotAttempted))
	assert.Equal(t, "mid", report.Outcomes["top"].Cause)
}

func TestRun_OnlyStaleUnitsBuild(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	prior := newPlan(t, diamondAndE(), nil).Fingerprints
	units := diamondAndE()
	units[2].Parts[0].Fingerprint = "changed" // C
	plan := newPlan(t, units, prior)
	b := &recorder{}

	report, err := New(plan, b, fingerprint.NewState(prior), statestore.NewMemory(prior)).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, report.Units(model.Built))
	assert.Equal(t, []string{"A", "B", "E"}, report.Units(model.Fresh))
	assert.ElementsMatch(t, []string{"C", "D"}, b.finished)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	plan := newPlan(t, []*model.Unit{testutil.Unit("jute")}, nil)
	b := BuilderFunc(func(context.Context, *model.Unit) error { panic("bad part") })

	report, err := New(plan, b, fingerprint.NewState(nil), nil).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"jute"}, report.Failed())
	assert.Contains(t, report.Outcomes["jute"].Err.Error(), "panic: bad part")
}

func TestRun_CancellationLetsRunningBuildsFinish(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	base, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(base)
	defer cancel()

	units := []*model.Unit{
		testutil.Unit("A"),
		testutil.Unit("E"),
		testutil.Unit("F"),
		testutil.Unit("B", "A"),
	}
	plan := newPlan(t, units, nil)
	store := statestore.NewMemory(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var buildCtxErr error
	var ran []string
	var mu sync.Mutex
	b := BuilderFunc(func(ctx context.Context, u *model.Unit) error {
		mu.Lock()
		ran = append(ran, u.Name)
		mu.Unlock()
		if u.Name == "A" {
			close(started)
			<-release
			buildCtxErr = ctx.Err()
		}
		return nil
	})

	go func() {
		<-started
		cancel()
		close(release)
	}()

	// --- Act ---
	report, err := New(plan, b, fingerprint.NewState(nil), store, WithWorkers(1)).Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.NoError(t, buildCtxErr, "a running build does not see the cancellation")
	assert.Equal(t, []string{"A"}, ran)
	assert.Equal(t, []string{"A"}, report.Units(model.Built))
	assert.Equal(t, []string{"E", "F", "B"}, report.Units(model.Cancelled))

	saved, err := store.Load(base)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Map{"A": plan.Fingerprints["A"]}, saved, "cancelled units record nothing")
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	base, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(base)
	cancel()
	plan := newPlan(t, testutil.Diamond(), nil)
	b := &recorder{}

	report, err := New(plan, b, fingerprint.NewState(nil), nil).Run(ctx)

	require.NoError(t, err)
	assert.Empty(t, b.finished)
	assert.Equal(t, []string{"A", "B", "C", "D"}, report.Units(model.Cancelled))
}

func TestRun_WorkerLimit(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	var units []*model.Unit
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		units = append(units, testutil.Unit(n))
	}
	plan := newPlan(t, units, nil)

	var inFlight, maxInFlight atomic.Int32
	b := BuilderFunc(func(context.Context, *model.Unit) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	report, err := New(plan, b, fingerprint.NewState(nil), nil, WithWorkers(2)).Run(ctx)

	require.NoError(t, err)
	assert.Len(t, report.Units(model.Built), 6)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}

func TestRun_LayerRunsInParallel(t *testing.T) {
	t.Parallel()

	// Every unit of the layer waits until all of them have started, which
	// only completes if they run at the same time.
	ctx, _ := testutil.Context(t)
	units := []*model.Unit{testutil.Unit("a"), testutil.Unit("b"), testutil.Unit("c")}
	plan := newPlan(t, units, nil)

	var arrived sync.WaitGroup
	arrived.Add(len(units))
	allThere := make(chan struct{})
	go func() {
		arrived.Wait()
		close(allThere)
	}()

	b := BuilderFunc(func(context.Context, *model.Unit) error {
		arrived.Done()
		select {
		case <-allThere:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("siblings did not run concurrently")
		}
	})

	report, err := New(plan, b, fingerprint.NewState(nil), nil, WithWorkers(3)).Run(ctx)

	require.NoError(t, err)
	assert.True(t, report.OK(), "report: %v", report.Err())
}

type failingStore struct{ statestore.Memory }

func (s *failingStore) Save(context.Context, fingerprint.Map) error { return errors.New("read-only") }

func TestRun_SaveErrorIsReturned(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	plan := newPlan(t, []*model.Unit{testutil.Unit("jute")}, nil)

	report, err := New(plan, &recorder{}, fingerprint.NewState(nil), &failingStore{}).Run(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.Equal(t, []string{"jute"}, report.Units(model.Built), "the build itself succeeded")
}

func TestReport_JSON(t *testing.T) {
	t.Parallel()

	r := &Report{
		Order: []string{"a", "b"},
		Outcomes: map[string]Outcome{
			"a": {State: model.Failed, Err: &BuildFailure{Unit: "a", Err: errors.New("x")}},
			"b": {State: model.NotAttempted, Cause: "a"},
		},
	}

	data, err := json.Marshal(r)

	require.NoError(t, err)
	assert.JSONEq(t, `{"units":[
		{"name":"a","state":"failed","error":"building unit \"a\": x"},
		{"name":"b","state":"not_attempted","cause":"a"}
	]}`, string(data))
}
