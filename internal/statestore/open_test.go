package statestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/ecow/internal/fingerprint"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	mem, err := Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, mem)

	path := filepath.Join(t.TempDir(), "state.json")
	file, err := Open(ctx, Config{Backend: BackendFile, Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, file.(*File).Path())

	s3, err := Open(ctx, Config{Backend: BackendS3, S3: S3Config{
		Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "ecow", Prefix: "/ws/",
	}})
	require.NoError(t, err, "creating the client does not contact the endpoint")
	assert.Equal(t, "ws/fingerprints.json", s3.(*S3).Key())

	_, err = Open(ctx, Config{Backend: BackendFile})
	assert.Error(t, err)
	_, err = Open(ctx, Config{Backend: BackendPostgres})
	assert.Error(t, err)
	_, err = Open(ctx, Config{Backend: "etcd"})
	assert.Error(t, err)
}

func TestNewS3_Validation(t *testing.T) {
	t.Parallel()

	valid := S3Config{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "b"}

	testCases := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{"missing endpoint", func(c *S3Config) { c.Endpoint = " " }},
		{"missing secret", func(c *S3Config) { c.SecretKey = "" }},
		{"missing bucket", func(c *S3Config) { c.Bucket = "" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tc.mutate(&cfg)
			_, err := NewS3(cfg)
			assert.Error(t, err)
		})
	}

	s, err := NewS3(valid)
	require.NoError(t, err)
	assert.Equal(t, "fingerprints.json", s.Key())
	assert.Equal(t, "us-east-1", s.region)
}

func TestNewPostgresDB_QuotesTable(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		table string
		want  string
	}{
		{name: "default", table: "", want: `"ecow_fingerprints"`},
		{name: "plain", table: "builds", want: `"builds"`},
		{name: "embedded quote", table: `x"; DROP TABLE users; --`, want: `"x""; DROP TABLE users; --"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NewPostgresDB(nil, tc.table).table)
		})
	}
}

// These exercise real servers and only run when one is configured.

func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("ECOW_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ECOW_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	pool, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	store := NewPostgresDB(pool.db, "ecow_fingerprints_test")
	_, err = store.db.ExecContext(ctx, "DROP TABLE IF EXISTS ecow_fingerprints_test")
	require.NoError(t, err)

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Save(ctx, fingerprint.Map{"a": "1", "b": "2"}))
	require.NoError(t, store.Save(ctx, fingerprint.Map{"a": "3"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Map{"a": "3"}, loaded)
}

func TestS3_RoundTrip(t *testing.T) {
	endpoint := os.Getenv("ECOW_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("ECOW_TEST_S3_ENDPOINT not set")
	}

	ctx := context.Background()
	store, err := NewS3(S3Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("ECOW_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("ECOW_TEST_S3_SECRET_KEY"),
		Bucket:    "ecow-test",
		Prefix:    t.Name(),
	})
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, fingerprint.Map{"jute": "abc"}))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Map{"jute": "abc"}, loaded)
}
