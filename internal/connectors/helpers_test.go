package connectors

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileModifiedSince_NilWatermarkAlwaysTrue(t *testing.T) {
	assert.True(t, FileModifiedSince("/does/not/exist", nil))
}

func TestFileModifiedSince_ComparesMtime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	future := time.Now().Add(time.Hour).UnixMilli()
	assert.False(t, FileModifiedSince(path, &future))

	past := time.Now().Add(-time.Hour).UnixMilli()
	assert.True(t, FileModifiedSince(path, &past))
}

func TestParseTimestamp_Variants(t *testing.T) {
	if ms, ok := ParseTimestamp(float64(1700000000000)); assert.True(t, ok) {
		assert.Equal(t, int64(1700000000000), ms)
	}
	if ms, ok := ParseTimestamp(float64(1700000000)); assert.True(t, ok) {
		assert.Equal(t, int64(1700000000000), ms)
	}
	if ms, ok := ParseTimestamp("2023-11-14T22:13:20Z"); assert.True(t, ok) {
		assert.Equal(t, int64(1700000000000), ms)
	}
	_, ok := ParseTimestamp("not a timestamp")
	assert.False(t, ok)
}

func TestFlattenContent_String(t *testing.T) {
	assert.Equal(t, "hello", FlattenContent("hello"))
}

func TestFlattenContent_FragmentArray(t *testing.T) {
	v := []any{
		map[string]any{"text": "first"},
		map[string]any{"text": "second"},
	}
	assert.Equal(t, "first\nsecond", FlattenContent(v))
}

func TestFlattenContent_NestedToolResult(t *testing.T) {
	v := map[string]any{
		"content": []any{
			map[string]any{"text": "tool output"},
		},
	}
	assert.Equal(t, "tool output", FlattenContent(v))
}
