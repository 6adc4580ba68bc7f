package executor

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vk/ecow/internal/model"
)

// Outcome is the result of one unit in one execution.
type Outcome struct {
	State model.State
	// Err is a *BuildFailure for failed units.
	Err error
	// Cause names the dependency that kept a skipped unit from building.
	Cause    string
	Duration time.Duration
}

// Report maps every unit of the plan to its outcome.
type Report struct {
	Order    []string
	Outcomes map[string]Outcome
}

// Units returns the names of units that ended in state, in build order.
func (r *Report) Units(state model.State) []string {
	var out []string
	for _, name := range r.Order {
		if r.Outcomes[name].State == state {
			out = append(out, name)
		}
	}
	return out
}

// Failed returns the names of units whose build failed.
func (r *Report) Failed() []string { return r.Units(model.Failed) }

// Err joins the failures of every failed unit. It is nil when no unit failed.
func (r *Report) Err() error {
	var errs []error
	for _, name := range r.Order {
		if err := r.Outcomes[name].Err; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OK reports whether every unit is Fresh or Built.
func (r *Report) OK() bool {
	for _, o := range r.Outcomes {
		if o.State != model.Fresh && o.State != model.Built {
			return false
		}
	}
	return true
}

type outcomeJSON struct {
	Name       string      `json:"name"`
	State      model.State `json:"state"`
	Error      string      `json:"error,omitempty"`
	Cause      string      `json:"cause,omitempty"`
	DurationMS int64       `json:"duration_ms,omitempty"`
}

// MarshalJSON renders the report as a list of outcomes in build order.
func (r *Report) MarshalJSON() ([]byte, error) {
	units := make([]outcomeJSON, 0, len(r.Order))
	for _, name := range r.Order {
		o := r.Outcomes[name]
		entry := outcomeJSON{
			Name:       name,
			State:      o.State,
			Cause:      o.Cause,
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		units = append(units, entry)
	}
	return json.Marshal(struct {
		Units []outcomeJSON `json:"units"`
	}{Units: units})
}
