package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/pkrouting/pkg/types"
)

const sampleYAML = `
data_dir: /var/lib/pkroute
logging:
  level: debug
  format: json
routing:
  strict_arity: true
  containers:
    orders:
      paths: ["/tenantId", "/userId"]
      kind: multihash
    events:
      paths: ["/id"]
      kind: Hash
      version: 2
storage:
  type: s3
  s3:
    bucket: routing-maps
    region: eu-west-1
    use_path_style: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile_YAML(t *testing.T) {
	cfg, err := LoadFromFile(writeFile(t, "pkroute.yaml", sampleYAML))
	require.NoError(t, err)
	cfg.Resolve()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Routing.StrictArity)
	assert.Equal(t, filepath.Join("/var/lib/pkroute", "routing.db"), cfg.Routing.SnapshotPath)
	assert.Equal(t, []string{"events", "orders"}, cfg.ContainerNames())

	orders, err := cfg.Definition("orders")
	require.NoError(t, err)
	assert.Equal(t, types.KindMultiHash, orders.Kind)
	assert.Equal(t, types.VersionV2, orders.EffectiveVersion())
	assert.Equal(t, 2, orders.PathCount())

	events, err := cfg.Definition("events")
	require.NoError(t, err)
	assert.Equal(t, types.VersionV2, events.Version)

	_, err = cfg.Definition("missing")
	assert.Error(t, err)

	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "routing-maps", cfg.Storage.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.S3.Region)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
}

func TestLoadFromFile_JSON(t *testing.T) {
	content := `{
		"logging": {"level": "warn"},
		"routing": {"containers": {"items": {"paths": ["/pk"], "kind": "range"}}}
	}`
	cfg, err := LoadFromFile(writeFile(t, "pkroute.json", content))
	require.NoError(t, err)
	cfg.Resolve()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format, "defaults survive partial files")
	def, err := cfg.Definition("items")
	require.NoError(t, err)
	assert.Equal(t, types.KindRange, def.Kind)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFromFile(writeFile(t, "pkroute.toml", "x = 1"))
	assert.Error(t, err)

	_, err = LoadFromFile(writeFile(t, "pkroute.yaml", "routing: {containers: {a: {kind: Bogus}}}"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad storage", func(c *Config) { c.Storage.Type = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }},
		{"multihash v1", func(c *Config) {
			c.Routing.Containers["a"] = types.PartitionKeyDefinition{
				Paths: []string{"/a"}, Kind: types.KindMultiHash, Version: types.VersionV1,
			}
		}},
		{"no paths", func(c *Config) {
			c.Routing.Containers["a"] = types.PartitionKeyDefinition{Kind: types.KindHash}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Resolve()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Resolve()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PKROUTE_LOG_LEVEL", "error")
	t.Setenv("PKROUTE_LOG_FORMAT", "json")
	t.Setenv("PKROUTE_SNAPSHOT_PATH", "/tmp/snap.db")
	t.Setenv("PKROUTE_STRICT_ARITY", "1")
	t.Setenv("PKROUTE_S3_BUCKET", "b")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/snap.db", cfg.Routing.SnapshotPath)
	assert.True(t, cfg.Routing.StrictArity)
	assert.Equal(t, "b", cfg.Storage.S3.Bucket)
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	cfg.Logging.Level = "nope"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Resolve()
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.DataDir, cfg.Storage.Path} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
