package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateUnit is matched by every DuplicateUnitError.
	ErrDuplicateUnit = errors.New("duplicate unit")
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("unit not found")
)

// DuplicateUnitError is returned by Register when the name is already taken.
type DuplicateUnitError struct {
	Name string
	// Existing and Duplicate name the manifests that declared the unit, when known.
	Existing  string
	Duplicate string
}

func (e *DuplicateUnitError) Error() string {
	if e.Existing != "" || e.Duplicate != "" {
		return fmt.Sprintf("unit %q is already registered (first declared in %s, again in %s)", e.Name, e.Existing, e.Duplicate)
	}
	return fmt.Sprintf("unit %q is already registered", e.Name)
}

// Is reports whether target is ErrDuplicateUnit.
func (e *DuplicateUnitError) Is(target error) bool { return target == ErrDuplicateUnit }

// NotFoundError is returned by Lookup for an unknown name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unit %q is not registered", e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
