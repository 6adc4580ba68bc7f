// Package app contains the core application logic. It wires the manifest
// loader, the unit registry, the graph builder, the scheduler, the planner and
// the executor into one run, decoupled from any specific entrypoint like a
// CLI.
package app
