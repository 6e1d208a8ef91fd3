package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, SchemeFS, cfg.Backend.Scheme)
	assert.Equal(t, "./data", cfg.Backend.FS.Root)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
backend:
  scheme: s3
  s3:
    bucket: my-bucket
    region: us-west-2
retry:
  max_attempts: 3
  initial_delay: 50ms
timeout: 10s
metrics:
  enabled: false
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, SchemeS3, cfg.Backend.Scheme)
	assert.Equal(t, "my-bucket", cfg.Backend.S3.Bucket)
	assert.Equal(t, "us-west-2", cfg.Backend.S3.Region)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadBreakerSection(t *testing.T) {
	path := writeConfig(t, `
backend:
  scheme: badger
  badger:
    in_memory: true
breaker:
  enabled: true
  max_requests: 2
  timeout: 15s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(2), cfg.Breaker.MaxRequests)
	assert.Equal(t, 15*time.Second, cfg.Breaker.Timeout)
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, `
backend:
  scheme: badger
  badger:
    in_memory: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "backend: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OBJECTGATE_BACKEND", "fs")
	t.Setenv("OBJECTGATE_LOG_LEVEL", "warn")
	t.Setenv("OBJECTGATE_TIMEOUT", "5s")

	path := writeConfig(t, `
backend:
  scheme: badger
  badger:
    in_memory: true
  fs:
    root: /srv/objects
logging:
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SchemeFS, cfg.Backend.Scheme)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Configuration)
		wantErr bool
	}{
		{"valid default", func(*Configuration) {}, false},
		{"unknown scheme", func(c *Configuration) { c.Backend.Scheme = "ftp" }, true},
		{"s3 without bucket", func(c *Configuration) { c.Backend.Scheme = SchemeS3 }, true},
		{"gcs without bucket", func(c *Configuration) { c.Backend.Scheme = SchemeGCS }, true},
		{"obs without endpoint", func(c *Configuration) {
			c.Backend.Scheme = SchemeOBS
			c.Backend.OBS.Bucket = "b"
		}, true},
		{"badger without dir", func(c *Configuration) { c.Backend.Scheme = SchemeBadger }, true},
		{"fs without root", func(c *Configuration) {
			c.Backend.Scheme = SchemeFS
			c.Backend.FS.Root = ""
		}, true},
		{"negative timeout", func(c *Configuration) { c.Timeout = -time.Second }, true},
		{"negative attempts", func(c *Configuration) { c.Retry.MaxAttempts = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
