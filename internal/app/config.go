package app

import (
	"errors"
	"fmt"

	"github.com/vk/ecow/internal/statestore"
)

// DefaultStatePath is where the file backend keeps fingerprints when no path
// is configured.
const DefaultStatePath = ".ecow/fingerprints.json"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // hcl file or directory

	StateBackend string // memory, file, postgres or s3
	StatePath    string
	StateDSN     string
	S3           statestore.S3Config

	LogFormat   string
	LogLevel    string
	WorkerCount int

	// Execute runs the stale units instead of only printing the plan.
	Execute bool
	// DOTPath, when set, receives the graph in Graphviz DOT format.
	DOTPath string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}

	if cfg.StateBackend == "" {
		cfg.StateBackend = statestore.BackendFile
	}
	switch cfg.StateBackend {
	case statestore.BackendMemory:
	case statestore.BackendFile:
		if cfg.StatePath == "" {
			cfg.StatePath = DefaultStatePath
		}
	case statestore.BackendPostgres:
		if cfg.StateDSN == "" {
			return nil, errors.New("the postgres state backend requires a DSN")
		}
	case statestore.BackendS3:
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			return nil, errors.New("the s3 state backend requires an endpoint and a bucket")
		}
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}

	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}

	return &cfg, nil
}

func (c *Config) storeConfig() statestore.Config {
	return statestore.Config{
		Backend: c.StateBackend,
		Path:    c.StatePath,
		DSN:     c.StateDSN,
		S3:      c.S3,
	}
}
