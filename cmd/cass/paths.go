package main

import (
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/cass/internal/appconfig"
)

// invindexSchemaVersion names the on-disk inverted-index generation
// directory. It only needs to change if invindex.SchemaHash's format
// changes in a way that isn't self-describing via the sentinel file.
const invindexSchemaVersion = "v1"

// resolveDataDir applies spec.md §6's precedence: an explicit --data-dir
// flag wins, then the app config file's data_dir, then XDG_DATA_HOME, then
// the conventional ~/.local/share/cass fallback.
func resolveDataDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "cass"), nil
	}
	cfg, err := appconfig.Load("")
	if err == nil && cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "cass"), nil
}

// loadAppConfig loads cass's own configuration, falling back to defaults
// on any error so a malformed config.yaml degrades gracefully for flags
// that aren't safety-critical (unlike sources.toml, which is fatal to
// parse per spec.md §7's Config error class).
func loadAppConfig() *appconfig.Config {
	cfg, err := appconfig.Load("")
	if err != nil {
		return appconfig.DefaultConfig()
	}
	return cfg
}

func storeDBPath(dataDir string) string {
	return filepath.Join(dataDir, "agent_search.db")
}

func invindexDir(dataDir string) string {
	return filepath.Join(dataDir, "index", invindexSchemaVersion)
}

func modelsDir(dataDir string) string {
	return filepath.Join(dataDir, "models")
}

func ensureDataDir(dataDir string) error {
	return os.MkdirAll(dataDir, 0o755)
}
