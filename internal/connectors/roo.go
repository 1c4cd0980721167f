package connectors

import (
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
)

// RooConnector reads Roo Code's global storage. Roo forked Cline's
// storage shape verbatim, so this reuses the same triple-file reader
// under a different default root and agent slug.
type RooConnector struct {
	log *logging.Logger
}

func NewRooConnector(log *logging.Logger) *RooConnector {
	return &RooConnector{log: log}
}

func (c *RooConnector) Slug() string { return "roo" }

func (c *RooConnector) storageRoot() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config/Code/User/globalStorage/rooveterinaryinc.roo-cline")
}

func (c *RooConnector) Detect() DetectionResult {
	root := c.storageRoot()
	if dirExists(root) {
		return DetectionResult{Detected: true, Evidence: []string{"found " + root}, RootPaths: []string{root}}
	}
	return NotFound()
}

func (c *RooConnector) Scan(ctx ScanContext) ([]model.Conversation, error) {
	root := c.storageRoot()
	if ctx.DataRoot != "" && ctx.RootIsOverride {
		root = ctx.DataRoot
	}
	convs, err := scanNestedDirRoot(c.log, "roo", root)
	if err != nil {
		return nil, err
	}
	return filterModifiedSince(convs, ctx.SinceTS), nil
}
