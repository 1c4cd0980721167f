// Package connectors discovers and parses chat-history artifacts produced
// by coding-assistant tools, normalizing them into model.Conversation
// values. Each agent family is a tagged entry in a single dispatch table
// rather than a subtype of some base connector; see Registry.
package connectors

import (
	"context"

	"github.com/fyrsmithlabs/cass/internal/model"
)

// DetectionResult reports whether a connector found plausible evidence of
// its agent's data without doing a recursive filesystem scan.
type DetectionResult struct {
	Detected  bool
	Evidence  []string
	RootPaths []string
}

// NotFound is the zero-evidence DetectionResult.
func NotFound() DetectionResult {
	return DetectionResult{}
}

// ScanContext carries the parameters of a single scan invocation.
type ScanContext struct {
	context.Context

	// DataRoot overrides the connector's default discovery location.
	// Empty means "use the connector's own defaults".
	DataRoot string
	// RootIsOverride is true when DataRoot was supplied explicitly (env
	// var or CLI flag) rather than left to the connector's defaults. A
	// connector whose override root does not match its expected shape
	// must return no conversations rather than falling back to its
	// default locations, to avoid test-fixture leakage into a real scan.
	RootIsOverride bool
	// SinceTS is the watermark in epoch milliseconds; nil means a full
	// scan. Filtering against it is file-level only — message-level
	// filtering would silently lose earlier messages from an appended
	// file.
	SinceTS *int64
}

// Connector detects and parses artifacts of one agent family.
type Connector interface {
	// Slug is the stable lowercase agent identifier used as
	// model.Conversation.AgentSlug.
	Slug() string
	// Detect performs fast, non-recursive evidence gathering.
	Detect() DetectionResult
	// Scan parses all artifacts visible under ctx, skipping ones not
	// modified since ctx.SinceTS. Parse errors on individual records are
	// reported via the logger and skipped, never returned.
	Scan(ctx ScanContext) ([]model.Conversation, error)
}

// Registry holds the dispatch table of active connectors (§9: "a single
// dispatch table holds the active set").
type Registry struct {
	connectors map[string]Connector
	order      []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector, keyed by its slug. Registering the same slug
// twice replaces the earlier entry but preserves its position.
func (r *Registry) Register(c Connector) {
	slug := c.Slug()
	if _, exists := r.connectors[slug]; !exists {
		r.order = append(r.order, slug)
	}
	r.connectors[slug] = c
}

// All returns the registered connectors in registration order.
func (r *Registry) All() []Connector {
	out := make([]Connector, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.connectors[slug])
	}
	return out
}

// Get returns the connector registered under slug, if any.
func (r *Registry) Get(slug string) (Connector, bool) {
	c, ok := r.connectors[slug]
	return c, ok
}

// Enabled returns the registered connectors whose slug is in the allow
// set, or all of them when allow is empty.
func (r *Registry) Enabled(allow map[string]bool) []Connector {
	if len(allow) == 0 {
		return r.All()
	}
	out := make([]Connector, 0, len(allow))
	for _, slug := range r.order {
		if allow[slug] {
			out = append(out, r.connectors[slug])
		}
	}
	return out
}
