package dag

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedDependency is matched by every UnresolvedDependencyError.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	// ErrSelfDependency is matched by every SelfDependencyError.
	ErrSelfDependency = errors.New("self dependency")
)

// UnresolvedDependencyError reports a dependency name with no registered unit.
type UnresolvedDependencyError struct {
	Unit    string
	Missing string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("unit %q depends on %q, which is not registered", e.Unit, e.Missing)
}

// Is reports whether target is ErrUnresolvedDependency.
func (e *UnresolvedDependencyError) Is(target error) bool { return target == ErrUnresolvedDependency }

// SelfDependencyError reports a unit that lists itself as a dependency.
type SelfDependencyError struct {
	Unit string
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("unit %q depends on itself", e.Unit)
}

// Is reports whether target is ErrSelfDependency.
func (e *SelfDependencyError) Is(target error) bool { return target == ErrSelfDependency }
