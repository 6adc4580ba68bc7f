// Package inmemorystore provides an ephemeral, thread-safe record of unit
// outcomes for a single execution.
//
// # Purpose
//
// The executor updates unit state from many worker goroutines at once while
// the next layer reads the states of its dependencies. The store keeps one
// sync.Map per attribute (state, error, cause, duration) keyed by unit name,
// which suits a key space that is fixed up front with values that change
// often.
//
// # Characteristics
//
//   - **Ephemeral:** Created fresh for each execution, nothing is persisted
//   - **Thread-Safe:** Uses sync.Map for fine-grained concurrent access
//   - **Checked:** State changes go through model.CanTransition
package inmemorystore
