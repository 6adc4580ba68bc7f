package scheduler

import (
	"errors"
	"strings"
)

// ErrCycle is matched by every CycleError.
var ErrCycle = errors.New("dependency cycle")

// CycleError reports a dependency cycle. Path starts and ends with the unit
// at which the cycle was closed, and each unit depends on the next one.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Path, " -> ")
}

// Is reports whether target is ErrCycle.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }
