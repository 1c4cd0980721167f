package connectors

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
)

// CodexConnector reads Codex CLI's line-delimited JSON session journals
// under $CODEX_HOME/sessions (envelope form, .jsonl) or the legacy
// single-object form (.json).
type CodexConnector struct {
	log *logging.Logger
}

func NewCodexConnector(log *logging.Logger) *CodexConnector {
	return &CodexConnector{log: log}
}

func (c *CodexConnector) Slug() string { return "codex" }

func (c *CodexConnector) home() string {
	if h := os.Getenv("CODEX_HOME"); h != "" {
		return h
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codex")
}

func (c *CodexConnector) Detect() DetectionResult {
	home := c.home()
	if dirExists(filepath.Join(home, "sessions")) {
		return DetectionResult{Detected: true, Evidence: []string{"found " + home}, RootPaths: []string{home}}
	}
	return NotFound()
}

func (c *CodexConnector) Scan(ctx ScanContext) ([]model.Conversation, error) {
	home := c.home()
	if ctx.DataRoot != "" && looksLikeCodexHome(ctx.DataRoot) {
		home = ctx.DataRoot
	}
	sessionsDir := filepath.Join(home, "sessions")
	files := rolloutFiles(sessionsDir)

	var convs []model.Conversation
	for _, path := range files {
		if !FileModifiedSince(path, ctx.SinceTS) {
			continue
		}
		externalID := externalIDFromSessions(sessionsDir, path)
		conv, err := parseJournalFile(c.log, "codex", path, externalID)
		if err != nil {
			logWarn(c.log, "parse codex rollout", path, err)
			continue
		}
		if conv.IsEmpty() {
			continue
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func looksLikeCodexHome(root string) bool {
	return strings.Contains(root, ".codex") || strings.HasSuffix(root, "/codex") || strings.HasSuffix(root, `\codex`)
}
