package executor

import (
	"errors"
	"fmt"
)

// ErrBuildFailed is matched by every BuildFailure.
var ErrBuildFailed = errors.New("build failed")

// BuildFailure reports a unit whose build returned an error or panicked.
type BuildFailure struct {
	Unit string
	Err  error
}

func (e *BuildFailure) Error() string {
	return fmt.Sprintf("building unit %q: %v", e.Unit, e.Err)
}

func (e *BuildFailure) Unwrap() error { return e.Err }

// Is reports whether target is ErrBuildFailed.
func (e *BuildFailure) Is(target error) bool { return target == ErrBuildFailed }
