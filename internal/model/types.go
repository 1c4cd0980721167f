// Package model defines the normalized conversation data types shared by
// every connector, the indexer, and the search client.
package model

import (
	"encoding/json"
	"strings"
)

// Snippet is a normalized reference to a piece of source code attached to a
// message (e.g. a diff hunk or a quoted file region).
type Snippet struct {
	FilePath  string `json:"file_path,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	Language  string `json:"language,omitempty"`
	Text      string `json:"text,omitempty"`

	hasLines bool
}

// HasLines reports whether a [start_line, end_line] range was set.
func (s Snippet) HasLines() bool { return s.hasLines }

// WithLines returns a copy of s with the line range set, enforcing
// start <= end.
func (s Snippet) WithLines(start, end int) Snippet {
	if start > end {
		start, end = end, start
	}
	s.StartLine, s.EndLine, s.hasLines = start, end, true
	return s
}

// Message is a single normalized turn within a conversation.
type Message struct {
	// Idx is the zero-based position within its conversation. Contiguous
	// after filtering — see Conversation.Reindex.
	Idx int
	// Role is a lowercase free-form string. Connectors normalize their
	// native vocabulary into at least {user, assistant, system, tool};
	// unknown roles pass through unchanged.
	Role string
	// Author is an optional sub-role tag (model name, reasoning variant).
	Author string
	// CreatedAt is optional epoch milliseconds.
	CreatedAt *int64
	// Content is UTF-8 text. Must be non-empty after trimming or the
	// message is dropped by the connector/indexer.
	Content string
	// Extra preserves the source record as an opaque structured payload.
	Extra json.RawMessage
	// Snippets is an ordered list of normalized code snippets.
	Snippets []Snippet
}

// TrimmedContent returns Content with leading/trailing whitespace removed.
func (m Message) TrimmedContent() string {
	return strings.TrimSpace(m.Content)
}

// IsEmpty reports whether the message should be dropped: no content after
// trimming.
func (m Message) IsEmpty() bool {
	return m.TrimmedContent() == ""
}

// Conversation is a normalized, ordered sequence of messages produced by a
// single connector from a single on-disk artifact.
type Conversation struct {
	// AgentSlug is a stable lowercase identifier of the producing agent
	// (aider, claude, cline, codex, cursor, roo, ...).
	AgentSlug string
	// ExternalID is an optional agent-assigned identifier, unique per
	// (AgentSlug, SourceRoot) when present.
	ExternalID string
	// Title is an optional short label; when empty the indexer derives one
	// from the first non-empty user message line, truncated to 100 runes.
	Title string
	// Workspace is an optional filesystem path describing where the
	// conversation was conducted.
	Workspace string
	// SourcePath is the canonical filesystem path of the underlying
	// artifact; used for dedupe keys and click-through.
	SourcePath string
	// StartedAt, EndedAt are optional epoch-ms bounds; StartedAt <= EndedAt
	// when both are present.
	StartedAt *int64
	EndedAt   *int64
	// Metadata is an opaque structured annotation blob (source type,
	// model, ...).
	Metadata json.RawMessage
	// Messages is the ordered list of normalized messages. At least one
	// message is required for the conversation to be emitted.
	Messages []Message
}

// TitleCap is the maximum number of runes kept when a title is truncated.
const TitleCap = 100

// IdentityKey returns the store-level identity of the conversation:
// (AgentSlug, ExternalID) when ExternalID is set, else
// (AgentSlug, SourcePath).
func (c *Conversation) IdentityKey() (agent, key string, byExternalID bool) {
	if c.ExternalID != "" {
		return c.AgentSlug, c.ExternalID, true
	}
	return c.AgentSlug, c.SourcePath, false
}

// Reindex re-assigns Idx sequentially from zero, in current slice order.
// Every connector and the indexer's filtering step must call this after
// dropping any messages so indices stay dense and gap-free.
func (c *Conversation) Reindex() {
	for i := range c.Messages {
		c.Messages[i].Idx = i
	}
}

// FilterEmpty removes messages whose content is empty after trimming and
// re-indexes the remainder.
func (c *Conversation) FilterEmpty() {
	kept := c.Messages[:0]
	for _, m := range c.Messages {
		if !m.IsEmpty() {
			kept = append(kept, m)
		}
	}
	c.Messages = kept
	c.Reindex()
}

// IsEmpty reports whether the conversation has no messages and should be
// dropped rather than emitted/persisted.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// DeriveTitle fills Title from the first non-empty user message's first
// line, truncated to TitleCap runes, when Title is not already set. Falls
// back to the first message of any role if there is no user message.
func (c *Conversation) DeriveTitle() {
	if c.Title != "" {
		return
	}
	var source *Message
	for i := range c.Messages {
		if c.Messages[i].Role == "user" && !c.Messages[i].IsEmpty() {
			source = &c.Messages[i]
			break
		}
	}
	if source == nil && len(c.Messages) > 0 {
		source = &c.Messages[0]
	}
	if source == nil {
		return
	}
	line := source.TrimmedContent()
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	c.Title = truncateRunes(line, TitleCap)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
