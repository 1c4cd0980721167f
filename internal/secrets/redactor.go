package secrets

import (
	"fmt"
	"sort"
	"strings"
)

// Redactor is run by the indexer over message content before it reaches
// the relational store and inverted index.
type Redactor struct {
	enabled bool
}

// NewRedactor builds a Redactor. When enabled is false, Redact is a no-op
// pass-through so the indexer can treat redaction uniformly.
func NewRedactor(enabled bool) *Redactor {
	return &Redactor{enabled: enabled}
}

// Redact returns content with any detected secrets replaced by
// [REDACTED:<rule>:<preview>] markers, and the count of findings. On
// detector failure it returns the original content unchanged; a detector
// error must never block indexing.
func (r *Redactor) Redact(content string) (string, int) {
	if !r.enabled || content == "" {
		return content, 0
	}
	findings, err := Detect(content)
	if err != nil || len(findings) == 0 {
		return content, 0
	}
	return replaceFindings(content, findings), len(findings)
}

func replaceFindings(content string, findings []Finding) string {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line > sorted[j].Line
		}
		return sorted[i].StartCol > sorted[j].StartCol
	})

	lines := strings.Split(content, "\n")
	for _, f := range sorted {
		if f.Line < 1 || f.Line > len(lines) {
			continue
		}
		line := lines[f.Line-1]
		if f.StartCol < 0 || f.EndCol > len(line) || f.StartCol >= f.EndCol {
			continue
		}
		marker := fmt.Sprintf("[REDACTED:%s:%s]", f.RuleID, preview(f.Match, 4))
		lines[f.Line-1] = line[:f.StartCol] + marker + line[f.EndCol:]
	}
	return strings.Join(lines, "\n")
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
