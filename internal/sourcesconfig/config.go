// Package sourcesconfig loads the TOML file describing remote sources that
// the sync engine mirrors locally: zero or more [[sources]] tables, each
// naming a host and the paths to pull from it.
package sourcesconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig wraps malformed source definitions; per the error
// taxonomy this class is fatal at load time.
var ErrInvalidConfig = errors.New("sourcesconfig: invalid config")

// SourceDefinition is one [[sources]] table.
type SourceDefinition struct {
	Name  string   `toml:"name"`
	Type  string   `toml:"type"`
	Host  string   `toml:"host"`
	Paths []string `toml:"paths"`
}

// SourcesFile is the decoded shape of sources.toml.
type SourcesFile struct {
	Sources []SourceDefinition `toml:"sources"`
}

// DefaultPath returns the conventional location, <user config root>/cass/sources.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("sourcesconfig: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cass", "sources.toml"), nil
}

// Load reads and validates path (or DefaultPath when empty). A missing file
// is not an error and yields a SourcesFile with zero sources.
func Load(path string) (*SourcesFile, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &SourcesFile{}, nil
		}
		return nil, fmt.Errorf("sourcesconfig: stat %s: %w", path, err)
	}

	var file SourcesFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if err := validate(file.Sources); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return &file, nil
}

func validate(sources []SourceDefinition) error {
	seen := make(map[string]bool, len(sources))
	for i, s := range sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d]: name must not be empty", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, s.Name)
		}
		seen[s.Name] = true
		if s.Type != "ssh" {
			return fmt.Errorf("source %q: unsupported type %q, only \"ssh\" is recognized", s.Name, s.Type)
		}
		if s.Host == "" {
			return fmt.Errorf("source %q: host must not be empty", s.Name)
		}
		if len(s.Paths) == 0 {
			return fmt.Errorf("source %q: paths must list at least one path", s.Name)
		}
	}
	return nil
}
