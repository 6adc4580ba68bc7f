package config

import "context"

// Loader is the interface for a format-specific manifest loader.
type Loader interface {
	// Load reads manifests from the given files or directories and returns
	// their declarations in a deterministic order.
	Load(ctx context.Context, paths ...string) (*Manifest, error)
}
