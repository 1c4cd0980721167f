package connectors

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
)

const aiderHistoryFile = ".aider.chat.history.md"

// AiderConnector reads aider's markdown transcript files: lines prefixed
// "> " are user input, every other non-empty line is assistant content.
type AiderConnector struct {
	log *logging.Logger
}

// NewAiderConnector builds a connector; log may be nil.
func NewAiderConnector(log *logging.Logger) *AiderConnector {
	return &AiderConnector{log: log}
}

func (c *AiderConnector) Slug() string { return "aider" }

func (c *AiderConnector) Detect() DetectionResult {
	cwd, err := os.Getwd()
	if err == nil {
		if p := filepath.Join(cwd, aiderHistoryFile); fileExists(p) {
			return DetectionResult{Detected: true, Evidence: []string{"found " + p}, RootPaths: []string{cwd}}
		}
	}
	if root := os.Getenv("CASS_AIDER_DATA_ROOT"); root != "" {
		if p := filepath.Join(root, aiderHistoryFile); fileExists(p) {
			return DetectionResult{Detected: true, Evidence: []string{"found " + p}, RootPaths: []string{root}}
		}
		return DetectionResult{Detected: true, Evidence: []string{"CASS_AIDER_DATA_ROOT set to " + root}, RootPaths: []string{root}}
	}
	return NotFound()
}

func (c *AiderConnector) Scan(ctx ScanContext) ([]model.Conversation, error) {
	root := ctx.DataRoot
	if root == "" {
		root = os.Getenv("CASS_AIDER_DATA_ROOT")
	}
	if root == "" {
		root, _ = os.Getwd()
	}
	if root == "" {
		return nil, nil
	}

	files := findByName(root, aiderHistoryFile, 5)
	var convs []model.Conversation
	for _, path := range files {
		if !FileModifiedSince(path, ctx.SinceTS) {
			continue
		}
		conv, err := c.parseHistory(path)
		if err != nil {
			logWarn(c.log, "parse aider history", path, err)
			continue
		}
		if conv.IsEmpty() {
			continue
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func (c *AiderConnector) parseHistory(path string) (model.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Conversation{}, err
	}
	defer f.Close()

	var messages []model.Message
	currentRole := "system"
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			messages = append(messages, model.Message{
				Role:    currentRole,
				Author:  currentRole,
				Content: text,
			})
		}
		buf.Reset()
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "> ") {
			if currentRole != "user" {
				flush()
			}
			currentRole = "user"
			buf.WriteString(strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
			buf.WriteByte('\n')
			continue
		}
		if currentRole == "user" && trimmed != "" && !strings.HasPrefix(line, ">") {
			flush()
			currentRole = "assistant"
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return model.Conversation{}, err
	}
	flush()

	info, err := os.Stat(path)
	if err != nil {
		return model.Conversation{}, err
	}
	ts := info.ModTime().UnixMilli()

	conv := model.Conversation{
		AgentSlug:  "aider",
		ExternalID: filepath.Base(path),
		Title:      fmt.Sprintf("Aider Chat: %s", path),
		Workspace:  filepath.Dir(path),
		SourcePath: path,
		StartedAt:  &ts,
		EndedAt:    &ts,
		Messages:   messages,
	}
	conv.FilterEmpty()
	return conv, nil
}
