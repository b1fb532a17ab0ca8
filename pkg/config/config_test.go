package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroblk/zeroblk/internal/bytesize"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, DefaultWorkers, cfg.Scrub.Workers)
	assert.Equal(t, DefaultBlockSize, cfg.Scrub.BlockSize)
	assert.False(t, cfg.Scrub.DryRun)
	assert.Equal(t, DefaultListen, cfg.Metrics.Listen)

	require.NoError(t, Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
  format: json
scrub:
  fill: 255
  workers: 8
  dry_run: true
  block_size: 64Ki
metrics:
  enabled: true
  listen: "localhost:9100"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 255, cfg.Scrub.Fill)
	assert.Equal(t, 8, cfg.Scrub.Workers)
	assert.True(t, cfg.Scrub.DryRun)
	assert.Equal(t, 64*bytesize.KiB, cfg.Scrub.BlockSize)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "localhost:9100", cfg.Metrics.Listen)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fill too large", func(c *Config) { c.Scrub.Fill = 300 }},
		{"fill negative", func(c *Config) { c.Scrub.Fill = -1 }},
		{"zero workers", func(c *Config) { c.Scrub.Workers = 0 }},
		{"too many workers", func(c *Config) { c.Scrub.Workers = 10000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "LOUD" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"block size not power of two", func(c *Config) { c.Scrub.BlockSize = 5000 }},
		{"block size too small", func(c *Config) { c.Scrub.BlockSize = 256 }},
		{"block size too large", func(c *Config) { c.Scrub.BlockSize = bytesize.MiB }},
		{"bad listen address", func(c *Config) { c.Metrics.Listen = "not an address" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ZEROBLK_SCRUB_WORKERS", "16")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scrub:\n  workers: 2\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Scrub.Workers)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Scrub.Workers = 4
	cfg.Scrub.Fill = 0xAA
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Scrub.Workers)
	assert.Equal(t, 0xAA, loaded.Scrub.Fill)
}
