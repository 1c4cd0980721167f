package connectors

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// FileModifiedSince reports whether since is absent or path's mtime is at
// or after it. Used to prune work at the file level; callers must never
// apply this at message granularity, or re-indexing an appended file
// would silently drop earlier messages.
func FileModifiedSince(path string, since *int64) bool {
	if since == nil {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.ModTime().UnixMilli() >= *since
}

// ParseTimestamp accepts epoch seconds, epoch milliseconds, ISO-8601, and
// RFC-3339 values and returns milliseconds since the epoch.
func ParseTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return normalizeEpoch(int64(t)), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return normalizeEpoch(int64(f)), true
		}
	case int64:
		return normalizeEpoch(t), true
	case int:
		return normalizeEpoch(int64(t)), true
	case string:
		return parseTimestampString(t)
	}
	return 0, false
}

func parseTimestampString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return normalizeEpoch(n), true
	}
	layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UnixMilli(), true
		}
	}
	return 0, false
}

// normalizeEpoch guesses seconds vs milliseconds by magnitude: anything
// below the millisecond-scale threshold for the year 2001 is treated as
// seconds.
func normalizeEpoch(n int64) int64 {
	const secondsThreshold = 10_000_000_000
	if n != 0 && n < secondsThreshold {
		return n * 1000
	}
	return n
}

// FlattenContent collapses arbitrary structured content (arrays of typed
// fragments, nested text/tool-result blocks, or a bare string) into a
// single plain-text string, preserving human-readable ordering.
func FlattenContent(v any) string {
	var b strings.Builder
	flattenInto(&b, v)
	return strings.TrimSpace(b.String())
}

func flattenInto(b *strings.Builder, v any) {
	switch t := v.(type) {
	case string:
		b.WriteString(t)
		b.WriteByte('\n')
	case []any:
		for _, item := range t {
			flattenInto(b, item)
		}
	case map[string]any:
		if text, ok := t["text"].(string); ok {
			b.WriteString(text)
			b.WriteByte('\n')
			return
		}
		if input, ok := t["input"]; ok {
			flattenInto(b, input)
		}
		if output, ok := t["output"]; ok {
			flattenInto(b, output)
		}
		if content, ok := t["content"]; ok && content != nil {
			flattenInto(b, content)
		}
	case nil:
	default:
	}
}
