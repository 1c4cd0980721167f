package sourcesconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsEmptySources(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Sources) != 0 {
		t.Fatalf("expected no sources, got %+v", f.Sources)
	}
}

func TestLoad_ParsesSourcesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.toml")
	content := `
[[sources]]
name = "workstation"
type = "ssh"
host = "workstation.lan"
paths = ["/home/me/.codex", "/home/me/.claude"]

[[sources]]
name = "laptop"
type = "ssh"
host = "laptop.lan"
paths = ["/home/me/.codex"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(f.Sources))
	}
	if f.Sources[0].Name != "workstation" || f.Sources[0].Host != "workstation.lan" {
		t.Errorf("unexpected first source: %+v", f.Sources[0])
	}
	if len(f.Sources[1].Paths) != 1 {
		t.Errorf("unexpected second source paths: %+v", f.Sources[1].Paths)
	}
}

func TestLoad_RejectsDuplicateNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.toml")
	content := `
[[sources]]
name = "dup"
type = "ssh"
host = "a"
paths = ["/x"]

[[sources]]
name = "dup"
type = "ssh"
host = "b"
paths = ["/y"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_RejectsUnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.toml")
	content := `
[[sources]]
name = "bad"
type = "s3"
host = "a"
paths = ["/x"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_RejectsEmptyPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.toml")
	content := `
[[sources]]
name = "bad"
type = "ssh"
host = "a"
paths = []
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_MalformedTOMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.toml")
	if err := os.WriteFile(path, []byte("not valid toml [[["), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
