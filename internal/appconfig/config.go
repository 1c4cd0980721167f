// Package appconfig loads cass's own application configuration: where its
// data directory lives, which connectors are enabled, scan timeouts, and
// search defaults. Precedence follows the teacher's internal/config:
// defaults, then a YAML file, then environment variables.
package appconfig

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1 << 20 // 1MB, matches the teacher's loader

// ConnectorsConfig controls which per-agent connectors a scan considers.
type ConnectorsConfig struct {
	// Enabled lists connector slugs to run. Empty means every registered
	// connector runs.
	Enabled []string `koanf:"enabled"`
}

// ScanConfig controls indexer scan behavior.
type ScanConfig struct {
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// SearchConfig controls search client defaults.
type SearchConfig struct {
	DefaultLimit int `koanf:"default_limit"`
}

// Config is cass's complete application configuration.
type Config struct {
	DataDir    string           `koanf:"data_dir"`
	Connectors ConnectorsConfig `koanf:"connectors"`
	Scan       ScanConfig       `koanf:"scan"`
	Search     SearchConfig     `koanf:"search"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	dataDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "cass")
	}
	return &Config{
		DataDir: dataDir,
		Scan:    ScanConfig{TimeoutSeconds: 300},
		Search:  SearchConfig{DefaultLimit: 20},
	}
}

// DefaultPath returns ~/.config/cass/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("appconfig: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cass", "config.yaml"), nil
}

// Load reads configPath (or DefaultPath when empty) as YAML, then applies
// CASS_-prefixed environment variable overrides, on top of DefaultConfig.
// A missing file is not an error.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("appconfig: config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("appconfig: open config file: %w", err)
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("appconfig: read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("appconfig: parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("appconfig: stat config file: %w", err)
	}

	if err := k.Load(env.Provider("CASS_", ".", envKeyTransformer), nil); err != nil {
		return nil, fmt.Errorf("appconfig: load environment overrides: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("appconfig: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("appconfig: %w", err)
	}
	return cfg, nil
}

// envKeyTransformer maps CASS_SCAN_TIMEOUT_SECONDS to scan.timeout_seconds:
// strip the CASS_ prefix (handled by env.Provider), lowercase, split on the
// first underscore into section and field.
func envKeyTransformer(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Scan.TimeoutSeconds <= 0 {
		return fmt.Errorf("scan.timeout_seconds must be positive, got %d", c.Scan.TimeoutSeconds)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	return nil
}

// EnabledSet returns Connectors.Enabled as a lookup set, for
// connectors.Registry.Enabled.
func (c *Config) EnabledSet() map[string]bool {
	if len(c.Connectors.Enabled) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.Connectors.Enabled))
	for _, slug := range c.Connectors.Enabled {
		set[slug] = true
	}
	return set
}
