package model

import (
	"errors"
	"fmt"
)

const (
	// DefaultUnitKind is used when a declaration does not name a unit kind.
	DefaultUnitKind = "mod"
	// DefaultPartKind is used when a part declaration does not name a kind.
	DefaultPartKind = "source"
)

var (
	// ErrEmptyName is returned when a unit, part or dependency has no name.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrDuplicatePart is matched by every DuplicatePartError.
	ErrDuplicatePart = errors.New("duplicate part")
)

// DuplicatePartError reports two parts with the same name inside one unit.
type DuplicatePartError struct {
	Unit string
	Part string
}

func (e *DuplicatePartError) Error() string {
	return fmt.Sprintf("unit %q declares part %q more than once", e.Unit, e.Part)
}

// Is reports whether target is ErrDuplicatePart.
func (e *DuplicatePartError) Is(target error) bool { return target == ErrDuplicatePart }

// Part is the smallest processable group of inputs within a unit.
type Part struct {
	Name        string
	Kind        string
	Inputs      []string
	Fingerprint string
}

// Unit is a named buildable entity. Parts keep their declaration order, which
// is also the order they are processed in. Deps holds dependency names in
// declaration order without duplicates.
type Unit struct {
	Name   string
	Kind   string
	Parts  []Part
	Deps   []string
	Source string
	// Dir is the slash separated directory, relative to the manifest root,
	// that part inputs are resolved against.
	Dir string
}

// Part returns the part with the given name.
func (u *Unit) Part(name string) (Part, bool) {
	for _, p := range u.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return Part{}, false
}

// PartDecl is the declared form of a part, before its inputs are fingerprinted.
type PartDecl struct {
	Name   string
	Kind   string
	Inputs []string
}

// Declaration is the ingestion tuple produced by a manifest loader.
type Declaration struct {
	Name   string
	Kind   string
	Deps   []string
	Parts  []PartDecl
	Source string
	Dir    string
}

// NewUnit builds a Unit from a declaration. fingerprints maps part names to
// their content fingerprints; parts without an entry get an empty
// fingerprint. Dependency names are de-duplicated keeping the first
// occurrence. A dependency on the unit itself is kept so that graph
// construction can report it.
func NewUnit(decl *Declaration, fingerprints map[string]string) (*Unit, error) {
	if decl == nil || decl.Name == "" {
		return nil, fmt.Errorf("unit: %w", ErrEmptyName)
	}

	kind := decl.Kind
	if kind == "" {
		kind = DefaultUnitKind
	}

	u := &Unit{
		Name:   decl.Name,
		Kind:   kind,
		Parts:  make([]Part, 0, len(decl.Parts)),
		Deps:   make([]string, 0, len(decl.Deps)),
		Source: decl.Source,
		Dir:    decl.Dir,
	}
	if u.Dir == "" {
		u.Dir = "."
	}

	seenParts := make(map[string]struct{}, len(decl.Parts))
	for _, pd := range decl.Parts {
		if pd.Name == "" {
			return nil, fmt.Errorf("unit %q: part: %w", decl.Name, ErrEmptyName)
		}
		if _, dup := seenParts[pd.Name]; dup {
			return nil, &DuplicatePartError{Unit: decl.Name, Part: pd.Name}
		}
		seenParts[pd.Name] = struct{}{}

		partKind := pd.Kind
		if partKind == "" {
			partKind = DefaultPartKind
		}
		u.Parts = append(u.Parts, Part{
			Name:        pd.Name,
			Kind:        partKind,
			Inputs:      append([]string(nil), pd.Inputs...),
			Fingerprint: fingerprints[pd.Name],
		})
	}

	seenDeps := make(map[string]struct{}, len(decl.Deps))
	for _, dep := range decl.Deps {
		if dep == "" {
			return nil, fmt.Errorf("unit %q: dependency: %w", decl.Name, ErrEmptyName)
		}
		if _, dup := seenDeps[dep]; dup {
			continue
		}
		seenDeps[dep] = struct{}{}
		u.Deps = append(u.Deps, dep)
	}

	return u, nil
}
