// Package executor rebuilds the stale units of a build plan.
//
// # How It Works
//
// Layers of the plan run one after another. Units of a layer are dispatched
// to a bounded pool of workers and the next layer starts only after every
// unit of the current one has finished. Before a unit is dispatched its
// dependencies are checked:
//   - a dependency that Failed or was NotAttempted makes the unit NotAttempted
//   - a dependency that was Cancelled makes the unit Cancelled
//
// A unit that builds successfully has its fingerprint recorded and the
// fingerprint state saved. A failed unit keeps its previous fingerprint, so
// the next run retries it.
//
// # Cancellation
//
// When the run context is cancelled, builds already in progress receive a
// context that is never cancelled and run to completion. Units that have not
// started move to Cancelled and leave the fingerprint state untouched.
// Callers that need per-unit deadlines apply them inside their Builder.
package executor
