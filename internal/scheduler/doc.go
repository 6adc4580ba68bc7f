// Package scheduler validates that a dependency graph is acyclic and derives
// the order units are built in.
//
// # How It Works
//
// Scheduling runs in three passes over the graph:
//  1. A depth-first search with three node colours finds cycles. Roots are
//     visited in registration order and edges in declared order, so the same
//     graph always reports the same cycle.
//  2. Kahn's algorithm, with a min-heap keyed on registration index, produces
//     a linear order in which every dependency precedes its dependents.
//     Units with no ordering constraint between them keep registration order.
//  3. Each unit is assigned a layer one deeper than its deepest dependency.
//     Units within a layer share no edges and can be built in parallel.
//
// Scheduling is pure; it reads the graph and returns a new Schedule.
package scheduler
