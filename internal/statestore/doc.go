// Package statestore provides fingerprint.Store backends.
//
// # Backends
//
//   - Memory keeps state in process and is used by tests and dry runs.
//   - File keeps a JSON document on local disk, replaced atomically.
//   - Postgres keeps one row per unit in a table it creates on first use.
//   - S3 keeps the JSON document as an object in an S3 compatible bucket.
//
// Every backend treats "nothing saved yet" as an empty mapping, so the first
// evaluation of a workspace sees every unit as stale.
package statestore
