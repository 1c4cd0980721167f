package connectors

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"go.uber.org/zap"
)

// logWarn reports a record/artifact-level parse failure. Per the
// framework contract these are never returned up the call stack — they
// are logged and the record or artifact is skipped.
func logWarn(log *logging.Logger, msg string, path string, err error) {
	if log == nil {
		return
	}
	log.Warn(context.Background(), msg, zap.String("path", path), zap.Error(err))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// findByName walks root up to maxDepth below it, looking for files named
// name. Errors reading individual entries are skipped.
func findByName(root, name string, maxDepth int) []string {
	var out []string
	if !dirExists(root) {
		return out
	}
	cleanRoot := filepath.Clean(root)
	_ = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(cleanRoot, path)
		if err != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if depth > maxDepth {
			return nil
		}
		if d.Name() == name {
			out = append(out, path)
		}
		return nil
	})
	return out
}
