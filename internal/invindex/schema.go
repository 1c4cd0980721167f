package invindex

import (
	"strings"
	"unicode"
)

// SchemaHash is the compiled-in sentinel for the current document shape and
// tokenizer. Open compares it against the sidecar file written alongside the
// index and rebuilds from scratch on any mismatch.
const SchemaHash = "cass-invindex-schema-v1-edge-ngram-preview"

// maxTokenLen mirrors the tokenizer's RemoveLongFilter(40) in the teacher's
// Tantivy-based analyzer.
const maxTokenLen = 40

// Document is one message as seen by the inverted index. It mirrors
// spec.md's field list; title_prefix/content_prefix are not stored
// separately as document fields, they are generated token sets folded into
// the same posting index at write time (see Writer.Add).
type Document struct {
	Agent      string
	Workspace  string
	SourcePath string
	MsgIdx     int
	CreatedAt  *int64
	Title      string
	Content    string
	Preview    string
}

// buildPreview truncates content to maxChars runes, appending an ellipsis
// when truncated.
func buildPreview(content string, maxChars int) string {
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return string(runes[:maxChars]) + "…"
}

// tokenize implements the "hyphen_normalize" analyzer: split on
// non-alphanumeric runes, lowercase, drop tokens longer than maxTokenLen.
// Hyphen/dash normalization itself happens earlier, in the query sanitizer
// (textnorm.SanitizeQuery) and equally applies to indexed text here because
// hyphens are simply non-alphanumeric split points.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := strings.ToLower(cur.String())
		if len(tok) <= maxTokenLen {
			tokens = append(tokens, tok)
		}
		cur.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// edgeNgrams generates, for each whitespace/punctuation-delimited word of at
// least 2 runes, every prefix of length 2..min(len(word),20). Used to build
// the prefix-match postings alongside the full-token postings.
func edgeNgrams(text string) []string {
	var out []string
	for _, word := range splitWords(text) {
		runes := []rune(strings.ToLower(word))
		if len(runes) < 2 {
			continue
		}
		max := len(runes)
		if max > 20 {
			max = 20
		}
		for n := 2; n <= max; n++ {
			out = append(out, string(runes[:n]))
		}
	}
	return out
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
