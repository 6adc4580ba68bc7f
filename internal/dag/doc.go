// Package dag turns the units of a registry into a dependency graph.
//
// Nodes live in an arena indexed by registration order, so a NodeID is both a
// stable handle and the tie-break used for deterministic ordering. Edges are
// stored twice: each node's dependencies in declared order and each node's
// dependents in ascending NodeID order.
//
// Build is all or nothing. It either resolves every declared dependency name
// or returns an error and no graph. Cycles are not rejected here; that is the
// scheduler's job, apart from a unit naming itself, which Build reports
// immediately.
package dag
