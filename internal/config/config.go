// Package config loads and validates the YAML configuration consumed when
// assembling an Operator: which backend to use, its settings, and the
// retry/timeout/metrics policy layered over it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/objectgate/objectgate/internal/circuit"
	badgerstore "github.com/objectgate/objectgate/internal/storage/badger"
	fsstore "github.com/objectgate/objectgate/internal/storage/fs"
	gcsstore "github.com/objectgate/objectgate/internal/storage/gcs"
	obsstore "github.com/objectgate/objectgate/internal/storage/obs"
	s3store "github.com/objectgate/objectgate/internal/storage/s3"
	"github.com/objectgate/objectgate/pkg/retry"
)

// Backend schemes accepted in configuration.
const (
	SchemeS3     = "s3"
	SchemeGCS    = "gcs"
	SchemeOBS    = "obs"
	SchemeBadger = "badger"
	SchemeFS     = "fs"
)

// Configuration is the complete application configuration.
type Configuration struct {
	Backend BackendConfig `yaml:"backend"`
	Retry   retry.Config  `yaml:"retry"`
	Breaker BreakerConfig `yaml:"breaker"`
	Timeout time.Duration `yaml:"timeout"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// BreakerConfig controls the circuit-breaker layer.
type BreakerConfig struct {
	Enabled        bool `yaml:"enabled"`
	circuit.Config `yaml:",inline"`
}

// BackendConfig selects and configures one storage backend. Only the
// section matching Scheme is consulted.
type BackendConfig struct {
	Scheme string `yaml:"scheme"`

	S3     s3store.Config     `yaml:"s3"`
	GCS    gcsstore.Config    `yaml:"gcs"`
	OBS    obsstore.Config    `yaml:"obs"`
	Badger badgerstore.Config `yaml:"badger"`
	FS     fsstore.Config     `yaml:"fs"`
}

// MetricsConfig controls the Prometheus layer.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig controls slog setup in the embedding program.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when a file provides no value.
func Default() *Configuration {
	return &Configuration{
		Backend: BackendConfig{Scheme: SchemeFS, FS: fsstore.Config{Root: "./data"}},
		Retry:   retry.DefaultConfig(),
		Timeout: 30 * time.Second,
		Metrics: MetricsConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file, layering it over Default.
func Load(path string) (*Configuration, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironmentOverrides lets deployment environments override the file
// without editing it.
func (c *Configuration) applyEnvironmentOverrides() {
	if v := os.Getenv("OBJECTGATE_BACKEND"); v != "" {
		c.Backend.Scheme = v
	}
	if v := os.Getenv("OBJECTGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OBJECTGATE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
}

// Validate checks cross-field consistency.
func (c *Configuration) Validate() error {
	switch c.Backend.Scheme {
	case SchemeS3:
		if c.Backend.S3.Bucket == "" {
			return fmt.Errorf("backend %q requires s3.bucket", c.Backend.Scheme)
		}
	case SchemeGCS:
		if c.Backend.GCS.Bucket == "" {
			return fmt.Errorf("backend %q requires gcs.bucket", c.Backend.Scheme)
		}
	case SchemeOBS:
		if c.Backend.OBS.Bucket == "" || c.Backend.OBS.Endpoint == "" {
			return fmt.Errorf("backend %q requires obs.bucket and obs.endpoint", c.Backend.Scheme)
		}
	case SchemeBadger:
		if c.Backend.Badger.Dir == "" && !c.Backend.Badger.InMemory {
			return fmt.Errorf("backend %q requires badger.dir or badger.in_memory", c.Backend.Scheme)
		}
	case SchemeFS:
		if c.Backend.FS.Root == "" {
			return fmt.Errorf("backend %q requires fs.root", c.Backend.Scheme)
		}
	default:
		return fmt.Errorf("unknown backend scheme %q", c.Backend.Scheme)
	}

	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
