package statestore

import (
	"context"
	"fmt"

	"github.com/vk/ecow/internal/fingerprint"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Path    string
	DSN     string
	S3      S3Config
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg Config) (fingerprint.Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(nil), nil
	case BackendFile, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file state store requires a path")
		}
		return NewFile(cfg.Path), nil
	case BackendPostgres:
		return NewPostgres(ctx, cfg.DSN)
	case BackendS3:
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
