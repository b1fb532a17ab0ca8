package config

import (
	"strings"

	"github.com/zeroblk/zeroblk/internal/bytesize"
)

// Default configuration values.
const (
	DefaultWorkers   = 1
	DefaultBlockSize = 4 * bytesize.KiB
	DefaultListen    = "localhost:9090"
)

// GetDefaultConfig returns a fully-populated default configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields with defaults. Explicit values are
// preserved; only zero values are replaced.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Scrub.Workers == 0 {
		cfg.Scrub.Workers = DefaultWorkers
	}
	if cfg.Scrub.BlockSize == 0 {
		cfg.Scrub.BlockSize = DefaultBlockSize
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultListen
	}
}
