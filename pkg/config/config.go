// Package config loads and validates zeroblk configuration.
//
// Configuration sources, highest precedence first:
//  1. CLI flags (applied by the commands package after Load)
//  2. Environment variables (ZEROBLK_*)
//  3. Configuration file (YAML)
//  4. Defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zeroblk/zeroblk/internal/bytesize"
)

// Config is the full zeroblk configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Scrub controls the scan/rewrite run itself.
	Scrub ScrubConfig `mapstructure:"scrub" yaml:"scrub"`

	// Metrics controls the optional Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN or ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is "text" or "json".
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ScrubConfig controls the scrub run.
type ScrubConfig struct {
	// Fill is the byte value written to reclaimed blocks (0-255).
	Fill int `mapstructure:"fill" validate:"gte=0,lte=255" yaml:"fill"`

	// Workers is the worker pool size (1-256).
	Workers int `mapstructure:"workers" validate:"required,min=1,max=256" yaml:"workers"`

	// DryRun suppresses writes while still counting would-be rewrites.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`

	// Verbose enables the live percent readout on stderr.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// BlockSize is the device block size. Accepts "4Ki", "64KiB", plain
	// byte counts, etc. Must be a power of two between 512 and 64Ki.
	BlockSize bytesize.ByteSize `mapstructure:"block_size" validate:"required" yaml:"block_size"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled starts an HTTP listener serving /metrics during the run.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the address for the metrics listener.
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port" yaml:"listen"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath uses the default location and tolerates its absence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath != ""); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default config file location,
// $XDG_CONFIG_HOME/zeroblk/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "zeroblk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "zeroblk")
	}
	return filepath.Join(home, ".config", "zeroblk")
}

func setupViper(v *viper.Viper, configPath string) {
	// Environment overrides use ZEROBLK_ with underscores, e.g.
	// ZEROBLK_SCRUB_WORKERS=8.
	v.SetEnvPrefix("ZEROBLK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	if _, ok := err.(viper.ConfigFileNotFoundError); ok && !explicit {
		// No file at the default location: defaults apply.
		return nil
	}
	if os.IsNotExist(err) && !explicit {
		return nil
	}
	return fmt.Errorf("read config file: %w", err)
}

// decodeHooks converts config strings into richer types during unmarshal.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// byteSizeHook converts strings and integers to bytesize.ByteSize so config
// files can say block_size: 4Ki as well as block_size: 4096.
func byteSizeHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			return bytesize.Parse(val)
		case int:
			return bytesize.ByteSize(val), nil
		case int64:
			return bytesize.ByteSize(val), nil
		case uint64:
			return bytesize.ByteSize(val), nil
		case float64:
			return bytesize.ByteSize(val), nil
		default:
			return data, nil
		}
	}
}
