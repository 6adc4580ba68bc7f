// Package registry holds the table of units declared for one build generation.
//
// # Why Registry Exists
//
// Manifest evaluation produces units one at a time and in a meaningful order:
// the order units are registered in is the tie-break every later phase uses
// to keep its output deterministic. The registry is the single place that
// order is recorded and where name collisions are caught.
//
// # Concurrency
//
// Units are registered during a single-threaded manifest-evaluation phase.
// Afterwards the registry is only read, and reads are safe from any number
// of goroutines. All returns a snapshot, so an iteration already in progress
// never observes later registrations.
//
// There is no package-level registry. Callers create one with New and pass
// it to the phases that need it, which keeps repeated evaluations in one
// process isolated from each other.
package registry
