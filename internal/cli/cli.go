package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/ecow/internal/app"
	"github.com/vk/ecow/internal/statestore"
)

// envPrefix prefixes every environment variable that provides a flag default.
const envPrefix = "ECOW_"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// LookupEnvFunc reads one environment variable.
type LookupEnvFunc func(key string) (string, bool)

// LoadEnvFiles loads KEY=VALUE pairs from the given dotenv files into the
// process environment. Variables that are already set win. Missing files are
// skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
		slog.Debug("Env file loaded.", "path", p)
	}
	return nil
}

// Parse processes command-line arguments with flag defaults taken from the
// process environment. See ParseEnv.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return ParseEnv(args, output, os.LookupEnv)
}

// ParseEnv processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Every flag defaults to the ECOW_ variable named after it, so -state-path
// reads ECOW_STATE_PATH.
func ParseEnv(args []string, output io.Writer, lookup LookupEnvFunc) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("ecow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
ecow - An incremental build graph evaluator.

Usage:
  ecow [options] [MANIFEST_PATH]

Arguments:
  MANIFEST_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	env := &envDefaults{lookup: lookup}

	manifestFlag := flagSet.String("manifest", env.str("manifest", ""), "Path to the manifest file or directory.")
	mFlag := flagSet.String("m", "", "Path to the manifest file or directory (shorthand).")
	stateFlag := flagSet.String("state", env.str("state", statestore.BackendFile), "Fingerprint state backend. Options: 'memory', 'file', 'postgres', 's3'.")
	statePathFlag := flagSet.String("state-path", env.str("state-path", app.DefaultStatePath), "State file for the file backend, relative to the manifest root.")
	stateDSNFlag := flagSet.String("state-dsn", env.str("state-dsn", ""), "PostgreSQL connection string for the postgres backend.")
	s3EndpointFlag := flagSet.String("s3-endpoint", env.str("s3-endpoint", ""), "S3 endpoint (host:port) for the s3 backend.")
	s3RegionFlag := flagSet.String("s3-region", env.str("s3-region", ""), "S3 region.")
	s3AccessKeyFlag := flagSet.String("s3-access-key", env.str("s3-access-key", ""), "S3 access key.")
	s3SecretKeyFlag := flagSet.String("s3-secret-key", env.str("s3-secret-key", ""), "S3 secret key.")
	s3BucketFlag := flagSet.String("s3-bucket", env.str("s3-bucket", ""), "S3 bucket holding the state object.")
	s3PrefixFlag := flagSet.String("s3-prefix", env.str("s3-prefix", ""), "Key prefix of the state object.")
	s3SSLFlag := flagSet.Bool("s3-ssl", env.boolean("s3-ssl", true), "Use TLS to reach the S3 endpoint.")
	workersFlag := flagSet.Int("workers", env.integer("workers", 0), "Number of concurrent builds. 0 uses GOMAXPROCS.")
	logFormatFlag := flagSet.String("log-format", env.str("log-format", "text"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", env.str("log-level", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	executeFlag := flagSet.Bool("execute", env.boolean("execute", false), "Build the stale units instead of only printing the plan.")
	dotFlag := flagSet.String("dot", env.str("dot", ""), "Write the dependency graph in Graphviz DOT format to this file.")

	if env.err != nil {
		return nil, false, &ExitError{Code: 2, Message: env.err.Error()}
	}

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	// An explicit flag beats the positional argument, which beats ECOW_MANIFEST.
	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	var path string
	switch {
	case explicit["manifest"]:
		path = *manifestFlag
	case *mFlag != "":
		path = *mFlag
	case flagSet.NArg() > 0:
		path = flagSet.Arg(0)
	default:
		path = *manifestFlag
	}
	slog.Debug("Manifest path determined.", "path", path)

	if path == "" {
		slog.Debug("No manifest path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPath: path,
		StateBackend: strings.ToLower(*stateFlag),
		StatePath:    *statePathFlag,
		StateDSN:     *stateDSNFlag,
		S3: statestore.S3Config{
			Endpoint:  *s3EndpointFlag,
			Region:    *s3RegionFlag,
			AccessKey: *s3AccessKeyFlag,
			SecretKey: *s3SecretKeyFlag,
			Bucket:    *s3BucketFlag,
			Prefix:    *s3PrefixFlag,
			UseSSL:    *s3SSLFlag,
		},
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		WorkerCount: *workersFlag,
		Execute:     *executeFlag,
		DOTPath:     *dotFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "manifest", config.ManifestPath, "state", config.StateBackend)
	return config, false, nil
}

// envDefaults reads flag defaults from the environment and keeps the first
// value that failed to parse.
type envDefaults struct {
	lookup LookupEnvFunc
	err    error
}

func envKey(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func (e *envDefaults) get(flagName string) (string, string, bool) {
	key := envKey(flagName)
	if e.lookup == nil {
		return key, "", false
	}
	v, ok := e.lookup(key)
	return key, v, ok && v != ""
}

func (e *envDefaults) str(flagName, def string) string {
	if _, v, ok := e.get(flagName); ok {
		return v
	}
	return def
}

func (e *envDefaults) integer(flagName string, def int) int {
	key, v, ok := e.get(flagName)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (e *envDefaults) boolean(flagName string, def bool) bool {
	key, v, ok := e.get(flagName)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(fmt.Errorf("invalid %s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (e *envDefaults) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
