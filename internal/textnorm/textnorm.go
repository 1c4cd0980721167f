// Package textnorm holds the small text-normalization rules shared by the
// indexer's ingest-time filter and the search client's post-filter, so the
// two pipelines can never disagree about what counts as noise or as a
// duplicate.
package textnorm

import "strings"

// IsToolNoise reports whether content looks like a tool-invocation record
// rather than conversational text.
func IsToolNoise(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "[Tool:") {
		return len(trimmed) < 100 || strings.HasSuffix(trimmed, "]")
	}
	lower := strings.ToLower(trimmed)
	if len(lower) < 20 && (strings.HasPrefix(lower, "[tool") || strings.HasPrefix(lower, "tool:")) {
		return true
	}
	return false
}

// DedupeKey collapses runs of whitespace to a single space and trims the
// ends, giving two messages that differ only in formatting the same key.
func DedupeKey(content string) string {
	return strings.Join(strings.Fields(content), " ")
}

// SanitizeQuery replaces hyphens and Unicode dashes with spaces so a
// hyphenated query term matches both the hyphenated and spaced forms.
func SanitizeQuery(query string) string {
	replacer := strings.NewReplacer(
		"-", " ",
		"‐", " ", // hyphen
		"‑", " ", // non-breaking hyphen
		"‒", " ", // figure dash
		"–", " ", // en dash
		"—", " ", // em dash
		"―", " ", // horizontal bar
	)
	return strings.Join(strings.Fields(replacer.Replace(query)), " ")
}
