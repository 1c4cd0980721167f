package connectors

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
)

// ClineConnector reads VS Code's global storage for the Cline extension:
// one subdirectory per task, each holding task_metadata.json,
// ui_messages.json, api_conversation_history.json.
type ClineConnector struct {
	log *logging.Logger
}

func NewClineConnector(log *logging.Logger) *ClineConnector {
	return &ClineConnector{log: log}
}

func (c *ClineConnector) Slug() string { return "cline" }

func (c *ClineConnector) storageRoot() string {
	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		if p := filepath.Join(home, "Library/Application Support/Code/User/globalStorage/saoudrizwan.claude-dev"); dirExists(p) {
			return p
		}
	}
	return filepath.Join(home, ".config/Code/User/globalStorage/saoudrizwan.claude-dev")
}

func (c *ClineConnector) Detect() DetectionResult {
	root := c.storageRoot()
	if dirExists(root) {
		return DetectionResult{Detected: true, Evidence: []string{"found " + root}, RootPaths: []string{root}}
	}
	return NotFound()
}

func (c *ClineConnector) Scan(ctx ScanContext) ([]model.Conversation, error) {
	root := c.storageRoot()
	if ctx.DataRoot != "" && ctx.RootIsOverride {
		root = ctx.DataRoot
	}
	convs, err := scanNestedDirRoot(c.log, "cline", root)
	if err != nil {
		return nil, err
	}
	return filterModifiedSince(convs, ctx.SinceTS), nil
}

func filterModifiedSince(convs []model.Conversation, since *int64) []model.Conversation {
	if since == nil {
		return convs
	}
	out := convs[:0]
	for _, conv := range convs {
		if FileModifiedSince(conv.SourcePath, since) {
			out = append(out, conv)
		}
	}
	return out
}
