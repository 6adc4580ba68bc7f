package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/model"
	"github.com/vk/ecow/internal/registry"
)

// Unit returns a unit with a single "src" part whose fingerprint is derived
// from the unit name.
func Unit(name string, deps ...string) *model.Unit {
	return &model.Unit{
		Name:  name,
		Kind:  model.DefaultUnitKind,
		Deps:  deps,
		Dir:   ".",
		Parts: []model.Part{{Name: "src", Kind: model.DefaultPartKind, Fingerprint: "fp-" + name}},
	}
}

// Registry registers the given units in order and fails the test on error.
func Registry(t *testing.T, units ...*model.Unit) *registry.Registry {
	t.Helper()

	r := registry.New()
	for _, u := range units {
		_, err := r.Register(u)
		require.NoError(t, err, "registering unit %q", u.Name)
	}
	return r
}

// Diamond returns the A, B(A), C(A), D(B, C) units in registration order.
func Diamond() []*model.Unit {
	return []*model.Unit{
		Unit("A"),
		Unit("B", "A"),
		Unit("C", "A"),
		Unit("D", "B", "C"),
	}
}
