package connectors

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
)

// ClaudeConnector reads Claude Code's session journals under
// ~/.claude/projects. It is a second binding of the same envelope-journal
// shape the codex connector parses; only the default root, slug, and
// override variable differ.
type ClaudeConnector struct {
	log *logging.Logger
}

func NewClaudeConnector(log *logging.Logger) *ClaudeConnector {
	return &ClaudeConnector{log: log}
}

func (c *ClaudeConnector) Slug() string { return "claude" }

func (c *ClaudeConnector) projectsRoot() string {
	if h := os.Getenv("CASS_CLAUDE_DATA_ROOT"); h != "" {
		return h
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "projects")
}

func (c *ClaudeConnector) Detect() DetectionResult {
	root := c.projectsRoot()
	if dirExists(root) {
		return DetectionResult{Detected: true, Evidence: []string{"found " + root}, RootPaths: []string{root}}
	}
	return NotFound()
}

func (c *ClaudeConnector) Scan(ctx ScanContext) ([]model.Conversation, error) {
	root := c.projectsRoot()
	if ctx.DataRoot != "" && looksLikeClaudeProjects(ctx.DataRoot) {
		root = ctx.DataRoot
	}
	if !dirExists(root) {
		return nil, nil
	}

	var files []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})

	var convs []model.Conversation
	for _, path := range files {
		if !FileModifiedSince(path, ctx.SinceTS) {
			continue
		}
		externalID := externalIDFromSessions(root, path)
		conv, err := parseJournalFile(c.log, "claude", path, externalID)
		if err != nil {
			logWarn(c.log, "parse claude session", path, err)
			continue
		}
		if conv.IsEmpty() {
			continue
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func looksLikeClaudeProjects(root string) bool {
	return strings.Contains(root, ".claude") || strings.HasSuffix(root, "projects")
}
