package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAppend_WritesOneJSONLinePerCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	r1 := NewRecord("search", 0, 1700000000, 12).WithExtra("hits", 3)
	r2 := NewRecord("index", 9, 1700000050, 900)

	if err := Append(path, r1); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := Append(path, r2); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trace file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var decoded Record
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ContractVersion != "1" || decoded.Command != "search" || decoded.ExitCode != 0 {
		t.Errorf("unexpected first record: %+v", decoded)
	}
	if decoded.Extra["hits"].(float64) != 3 {
		t.Errorf("expected extra hits=3, got %v", decoded.Extra["hits"])
	}
}

func TestAppend_EmptyPathIsNoop(t *testing.T) {
	if err := Append("", NewRecord("search", 0, 0, 0)); err != nil {
		t.Fatalf("expected no-op for empty path, got %v", err)
	}
}
