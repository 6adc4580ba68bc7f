// Package model defines the format-agnostic data model of a build: units, the
// parts they are composed of, the declarations they are created from, and the
// per-evaluation state a unit moves through.
//
// # Units and Parts
//
// A Unit is a named buildable entity (for example the module "jute"). It owns
// an ordered sequence of Parts and an ordered set of dependency names. A Part
// is the smallest processable group of inputs and carries a content
// fingerprint computed from those inputs.
//
// Declarations are pure data produced by a manifest loader. They are turned
// into Units with NewUnit once their part fingerprints are known; the
// dependency names stay unresolved until the dag package builds a graph.
package model
