// Package config loads the fetcher configuration file. Every tunable
// that used to be an ambient environment variable in the installer
// scripts is an explicit value here, handed into components at
// construction time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joshjhall/artifact-fetcher/internal/fetch"
)

// Config is the root of fetcher.yaml.
type Config struct {
	// ScratchDir holds in-flight downloads. Empty means a fetcher
	// subdirectory of the system temp root.
	ScratchDir string `yaml:"scratchDir" json:"scratchDir"`

	// PinnedChecksums is the path to the local pinned checksum table,
	// the preferred checksum source.
	PinnedChecksums string `yaml:"pinnedChecksums" json:"pinnedChecksums"`

	// Progress enables the download progress bar.
	Progress bool `yaml:"progress" json:"progress"`

	// ReportDir, when set, receives a per-run report of verified
	// installs.
	ReportDir string `yaml:"reportDir" json:"reportDir"`

	Network NetworkConfig `yaml:"network" json:"network"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// NetworkConfig bounds every outbound call.
type NetworkConfig struct {
	ConnectTimeoutSeconds  int `yaml:"connectTimeoutSeconds" json:"connectTimeoutSeconds"`
	TransferTimeoutSeconds int `yaml:"transferTimeoutSeconds" json:"transferTimeoutSeconds"`
	Retries                int `yaml:"retries" json:"retries"`
	RetryBackoffSeconds    int `yaml:"retryBackoffSeconds" json:"retryBackoffSeconds"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Progress: true,
		Network: NetworkConfig{
			ConnectTimeoutSeconds:  10,
			TransferTimeoutSeconds: 300,
			Retries:                3,
			RetryBackoffSeconds:    2,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads, schema-validates and parses a fetcher.yaml. Values absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates raw YAML against the config schema and decodes it.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	if c.Network.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("network.connectTimeoutSeconds must be positive")
	}
	if c.Network.TransferTimeoutSeconds <= 0 {
		return fmt.Errorf("network.transferTimeoutSeconds must be positive")
	}
	if c.Network.Retries < 0 {
		return fmt.Errorf("network.retries must not be negative")
	}
	if c.Logging.Level != "" {
		switch strings.ToLower(c.Logging.Level) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.level %q not one of debug, info, warn, error", c.Logging.Level)
		}
	}
	return nil
}

// FetchOptions converts the network section into fetch.Options.
func (c *Config) FetchOptions() fetch.Options {
	return fetch.Options{
		ConnectTimeout:  time.Duration(c.Network.ConnectTimeoutSeconds) * time.Second,
		TransferTimeout: time.Duration(c.Network.TransferTimeoutSeconds) * time.Second,
		Retries:         c.Network.Retries,
		RetryBackoff:    time.Duration(c.Network.RetryBackoffSeconds) * time.Second,
	}
}

// ResolveScratchDir returns the absolute scratch directory, defaulting
// under the system temp root.
func (c *Config) ResolveScratchDir() (string, error) {
	dir := c.ScratchDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "artifact-fetcher")
	}
	return filepath.Abs(dir)
}
