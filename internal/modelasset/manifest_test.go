package modelasset

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMiniLMV2_TotalSize(t *testing.T) {
	if got := MiniLMV2().TotalSize(); got <= 20_000_000 {
		t.Fatalf("expected total size over 20MB, got %d", got)
	}
}

func TestManifest_DownloadURL(t *testing.T) {
	m := MiniLMV2()
	url := m.DownloadURL(m.Files[0])
	if !strings.Contains(url, "huggingface.co") || !strings.Contains(url, m.Repo) || !strings.Contains(url, "model.onnx") {
		t.Fatalf("unexpected url: %s", url)
	}
}

func TestComputeSHA256_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ComputeSHA256(path)
	if err != nil {
		t.Fatalf("ComputeSHA256: %v", err)
	}
	sum := sha256.Sum256([]byte("hello world"))
	want := hex.EncodeToString(sum[:])
	if got != want {
		t.Fatalf("ComputeSHA256 = %s, want %s", got, want)
	}
}
