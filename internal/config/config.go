// Package config provides configuration for the pkroute tool and for
// programs embedding the partition-key router.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/arkilian/pkrouting/internal/partition"
	"github.com/arkilian/pkrouting/internal/storage"
	"github.com/arkilian/pkrouting/pkg/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PKROUTE_"

// Config holds the pkroute configuration.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Routing configuration
	Routing RoutingConfig `json:"routing" yaml:"routing"`

	// Storage configuration for published routing maps
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Format is json or console
	Format string `json:"format" yaml:"format"`
}

// RoutingConfig holds partition key routing configuration.
type RoutingConfig struct {
	// SnapshotPath is the SQLite database holding routing map snapshots
	SnapshotPath string `json:"snapshot_path" yaml:"snapshot_path"`

	// StrictArity rejects keys with more components than declared paths
	StrictArity bool `json:"strict_arity" yaml:"strict_arity"`

	// Containers maps container names to their partition key definitions
	Containers map[string]types.PartitionKeyDefinition `json:"containers" yaml:"containers"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	storage.S3Config `json:",inline" yaml:",inline"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/pkroute",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Routing: RoutingConfig{
			Containers: make(map[string]types.PartitionKeyDefinition),
		},
		Storage: StorageConfig{
			Type: "local",
			S3:   S3Config{S3Config: storage.DefaultS3Config()},
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/pkroute"
	}
	if c.Routing.SnapshotPath == "" {
		c.Routing.SnapshotPath = filepath.Join(c.DataDir, "routing.db")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Routing.Containers == nil {
		c.Routing.Containers = make(map[string]types.PartitionKeyDefinition)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging.format: %s (must be json or console)", c.Logging.Format)
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	for _, name := range c.ContainerNames() {
		if err := partition.ValidateDefinition(c.Routing.Containers[name]); err != nil {
			return fmt.Errorf("routing.containers.%s: %w", name, err)
		}
	}
	return nil
}

// ContainerNames returns the configured container names, sorted.
func (c *Config) ContainerNames() []string {
	names := make([]string, 0, len(c.Routing.Containers))
	for name := range c.Routing.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the partition key definition of a configured container.
func (c *Config) Definition(container string) (types.PartitionKeyDefinition, error) {
	def, ok := c.Routing.Containers[container]
	if !ok {
		return types.PartitionKeyDefinition{}, fmt.Errorf("unknown container %q", container)
	}
	return def, nil
}

// NewLogger builds the process logger described by the logging section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}

	var zc zap.Config
	if c.Logging.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// NewObjectStore opens the configured object store.
func (c *Config) NewObjectStore(ctx context.Context) (storage.ObjectStore, error) {
	switch c.Storage.Type {
	case "s3":
		return storage.NewS3Storage(ctx, c.Storage.S3.Bucket, c.Storage.S3.S3Config)
	default:
		return storage.NewLocalStorage(c.Storage.Path)
	}
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the PKROUTE_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Logging configuration
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Routing configuration
	if v := os.Getenv(EnvPrefix + "SNAPSHOT_PATH"); v != "" {
		cfg.Routing.SnapshotPath = v
	}
	if v := os.Getenv(EnvPrefix + "STRICT_ARITY"); v != "" {
		cfg.Routing.StrictArity = v == "true" || v == "1"
	}

	// Storage configuration
	if v := os.Getenv(EnvPrefix + "STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv(EnvPrefix + "STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv(EnvPrefix + "S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv(EnvPrefix + "S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv(EnvPrefix + "S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.Routing.SnapshotPath)}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
