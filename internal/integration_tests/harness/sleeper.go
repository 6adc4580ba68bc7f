package harness

import (
	"context"
	"sync"
	"time"

	"github.com/vk/ecow/internal/action"
	"github.com/vk/ecow/internal/model"
)

// SleeperKind is the part kind handled by MockSleeperModule.
const SleeperKind = "sleeper"

// ExecutionRecord is the wall clock window of one unit build.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It records the execution time of each unit that uses it.
type MockSleeperModule struct {
	mu             sync.Mutex
	executionTimes map[string]*ExecutionRecord
	sleepDuration  time.Duration
	fail           map[string]error
}

// NewMockSleeperModule creates a new sleeper module. Units named in fail
// return the mapped error after sleeping.
func NewMockSleeperModule(sleep time.Duration, fail map[string]error) *MockSleeperModule {
	return &MockSleeperModule{
		executionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		fail:           fail,
	}
}

// Register registers the "sleeper" action.
func (m *MockSleeperModule) Register(r *action.Registry) {
	r.Register(SleeperKind, func(_ context.Context, u *model.Unit, _ model.Part) error {
		start := time.Now()
		time.Sleep(m.sleepDuration)
		end := time.Now()

		m.mu.Lock()
		m.executionTimes[u.Name] = &ExecutionRecord{Start: start, End: end}
		m.mu.Unlock()

		return m.fail[u.Name]
	})
}

// Record returns the execution window of the named unit, or nil if it never
// ran.
func (m *MockSleeperModule) Record(name string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executionTimes[name]
}

// Ran returns how many units ran.
func (m *MockSleeperModule) Ran() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.executionTimes)
}
