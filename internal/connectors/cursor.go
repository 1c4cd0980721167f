package connectors

import (
	"context"
	"database/sql"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
	"go.uber.org/zap"
)

// CursorConnector reads Cursor IDE chat history out of its SQLite state
// databases (state.vscdb). Chat data lives in two shapes:
//
//   - cursorDiskKV, keys "composerData:<uuid>": current composer/chat JSON.
//   - ItemTable, keys matching "%aichat%chatdata%" or "%composer%": legacy
//     chat JSON from older Cursor versions.
//
// Both tables may be present in the same database; entries are deduped by
// composer ID / key across the two queries.
type CursorConnector struct {
	log *logging.Logger
}

func NewCursorConnector(log *logging.Logger) *CursorConnector {
	return &CursorConnector{log: log}
}

func (c *CursorConnector) Slug() string { return "cursor" }

// appSupportDir returns Cursor's "User" directory for the current platform,
// probing WSL's Windows mount when running under Linux-on-Windows.
func (c *CursorConnector) appSupportDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library/Application Support/Cursor/User"), true
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Cursor/User"), true
		}
		return "", false
	case "linux":
		if isWSL() {
			if p, ok := findWSLCursorPath(); ok {
				return p, true
			}
		}
		return filepath.Join(home, ".config/Cursor/User"), true
	default:
		return "", false
	}
}

func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// findWSLCursorPath probes /mnt/c/Users/*/AppData/Roaming/Cursor/User for a
// Windows-side Cursor install reachable through the WSL mount.
func findWSLCursorPath() (string, bool) {
	const mntUsers = "/mnt/c/Users"
	if !dirExists(mntUsers) {
		return "", false
	}
	entries, err := os.ReadDir(mntUsers)
	if err != nil {
		return "", false
	}
	skip := map[string]bool{"Default": true, "Public": true, "All Users": true, "Default User": true}
	for _, entry := range entries {
		if !entry.IsDir() || skip[entry.Name()] {
			continue
		}
		candidate := filepath.Join(mntUsers, entry.Name(), "AppData/Roaming/Cursor/User")
		if dirExists(filepath.Join(candidate, "globalStorage")) || dirExists(filepath.Join(candidate, "workspaceStorage")) {
			return candidate, true
		}
	}
	return "", false
}

// findDBFiles locates every state.vscdb under base: the global storage copy
// plus one per workspace, at most two levels deep.
func (c *CursorConnector) findDBFiles(base string) []string {
	var dbs []string
	if global := filepath.Join(base, "globalStorage/state.vscdb"); fileExists(global) {
		dbs = append(dbs, global)
	}
	wsRoot := filepath.Join(base, "workspaceStorage")
	if !dirExists(wsRoot) {
		return dbs
	}
	_ = filepath.WalkDir(wsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(wsRoot, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if depth > 1 {
			return nil
		}
		if d.Name() == "state.vscdb" {
			dbs = append(dbs, path)
		}
		return nil
	})
	return dbs
}

func looksLikeCursorBase(path string) bool {
	return dirExists(filepath.Join(path, "globalStorage")) ||
		dirExists(filepath.Join(path, "workspaceStorage")) ||
		strings.Contains(filepath.Base(path), "Cursor")
}

func (c *CursorConnector) Detect() DetectionResult {
	base, ok := c.appSupportDir()
	if !ok || !dirExists(base) {
		return NotFound()
	}
	dbs := c.findDBFiles(base)
	if len(dbs) == 0 {
		return NotFound()
	}
	return DetectionResult{
		Detected:  true,
		Evidence:  []string{"found Cursor at " + base, "found database file(s)"},
		RootPaths: []string{base},
	}
}

func (c *CursorConnector) Scan(ctx ScanContext) ([]model.Conversation, error) {
	base := ""
	if ctx.DataRoot != "" && looksLikeCursorBase(ctx.DataRoot) {
		base = ctx.DataRoot
	} else if ctx.RootIsOverride {
		return nil, nil
	} else if b, ok := c.appSupportDir(); ok {
		base = b
	}
	if base == "" || !dirExists(base) {
		return nil, nil
	}

	var all []model.Conversation
	for _, dbPath := range c.findDBFiles(base) {
		if !FileModifiedSince(dbPath, ctx.SinceTS) {
			continue
		}
		convs, err := c.extractFromDB(dbPath)
		if err != nil {
			logWarn(c.log, "cursor failed to extract from db", dbPath, err)
			continue
		}
		all = append(all, convs...)
	}
	return all, nil
}

// extractFromDB opens db_path read-only and pulls conversations from both
// the current composerData key space and the legacy aichat/composer
// ItemTable key space, deduping across the two.
func (c *CursorConnector) extractFromDB(dbPath string) ([]model.Conversation, error) {
	dsn := "file:" + dbPath + "?mode=ro&immutable=1"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var convs []model.Conversation
	seen := make(map[string]bool)

	rows, err := db.Query(`SELECT key, value FROM cursorDiskKV WHERE key LIKE 'composerData:%'`)
	if err == nil {
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				continue
			}
			if conv, ok := c.parseComposerData(key, value, dbPath, seen); ok {
				convs = append(convs, conv)
			}
		}
		rows.Close()
	}

	rows, err = db.Query(`SELECT key, value FROM ItemTable WHERE key LIKE '%aichat%chatdata%' OR key LIKE '%composer%'`)
	if err == nil {
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				continue
			}
			if conv, ok := c.parseAichatData(key, value, dbPath, seen); ok {
				convs = append(convs, conv)
			}
		}
		rows.Close()
	}

	return convs, nil
}

// parseComposerData parses one cursorDiskKV composerData:<uuid> row.
// File-level modified-since filtering already happened in Scan; timestamps
// found here are used only for StartedAt/EndedAt, never to drop messages.
func (c *CursorConnector) parseComposerData(key, value, dbPath string, seen map[string]bool) (model.Conversation, bool) {
	composerID, ok := strings.CutPrefix(key, "composerData:")
	if !ok || seen[composerID] {
		return model.Conversation{}, false
	}

	var val map[string]any
	if err := json.Unmarshal([]byte(value), &val); err != nil {
		if c.log != nil {
			c.log.Warn(context.Background(), "parse cursor composerData", zap.String("path", dbPath), zap.Error(err))
		}
		return model.Conversation{}, false
	}
	seen[composerID] = true

	var createdAt *int64
	if v, ok := ParseTimestamp(val["createdAt"]); ok {
		createdAt = &v
	}

	var messages []model.Message
	if tabs, ok := val["tabs"].([]any); ok {
		for _, tab := range tabs {
			tabMap, ok := tab.(map[string]any)
			if !ok {
				continue
			}
			if bubbles, ok := tabMap["bubbles"].([]any); ok {
				for _, bubble := range bubbles {
					if msg, ok := parseBubble(bubble, len(messages)); ok {
						messages = append(messages, msg)
					}
				}
			}
		}
	}
	if convMap, ok := val["conversationMap"].(map[string]any); ok {
		for _, convVal := range convMap {
			entry, ok := convVal.(map[string]any)
			if !ok {
				continue
			}
			if bubbles, ok := entry["bubbles"].([]any); ok {
				for _, bubble := range bubbles {
					if msg, ok := parseBubble(bubble, len(messages)); ok {
						messages = append(messages, msg)
					}
				}
			}
		}
	}

	if len(messages) == 0 {
		userText, _ := val["text"].(string)
		if userText == "" {
			userText, _ = val["richText"].(string)
		}
		if strings.TrimSpace(userText) != "" {
			messages = append(messages, model.Message{Role: "user", CreatedAt: createdAt, Content: userText})
		}
	}
	if len(messages) == 0 {
		return model.Conversation{}, false
	}

	var modelName string
	if mc, ok := val["modelConfig"].(map[string]any); ok {
		modelName, _ = mc["modelName"].(string)
	}

	conv := model.Conversation{
		AgentSlug:  "cursor",
		ExternalID: composerID,
		SourcePath: dbPath,
		StartedAt:  createdAt,
		Messages:   messages,
	}
	conv.Reindex()
	if last := messages[len(messages)-1].CreatedAt; last != nil {
		conv.EndedAt = last
	} else {
		conv.EndedAt = createdAt
	}
	if modelName != "" {
		conv.Title = "Cursor chat with " + modelName
	}
	meta, _ := json.Marshal(map[string]any{"source": "cursor", "model": modelName})
	conv.Metadata = meta
	conv.DeriveTitle()
	return conv, true
}

// parseAichatData parses a legacy ItemTable row holding a tabs/bubbles blob
// under an aichat or composer key.
func (c *CursorConnector) parseAichatData(key, value, dbPath string, seen map[string]bool) (model.Conversation, bool) {
	id := "aichat-" + key
	if seen[id] {
		return model.Conversation{}, false
	}

	var val map[string]any
	if err := json.Unmarshal([]byte(value), &val); err != nil {
		return model.Conversation{}, false
	}
	seen[id] = true

	var messages []model.Message
	var startedAt, endedAt *int64
	if tabs, ok := val["tabs"].([]any); ok {
		for _, tab := range tabs {
			tabMap, ok := tab.(map[string]any)
			if !ok {
				continue
			}
			var tabTS *int64
			if v, ok := ParseTimestamp(tabMap["timestamp"]); ok {
				tabTS = &v
			}
			bubbles, _ := tabMap["bubbles"].([]any)
			for _, bubble := range bubbles {
				msg, ok := parseBubble(bubble, len(messages))
				if !ok {
					continue
				}
				ts := msg.CreatedAt
				if ts == nil {
					ts = tabTS
				}
				if startedAt == nil {
					startedAt = ts
				}
				endedAt = ts
				messages = append(messages, msg)
			}
		}
	}

	if len(messages) == 0 {
		return model.Conversation{}, false
	}

	conv := model.Conversation{
		AgentSlug:  "cursor",
		ExternalID: id,
		SourcePath: dbPath,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
		Metadata:   json.RawMessage(`{"source":"cursor_aichat"}`),
		Messages:   messages,
	}
	conv.Reindex()
	conv.DeriveTitle()
	return conv, true
}

// parseBubble normalizes a single Cursor chat bubble into a message. Role
// vocabulary is normalized (human -> user, ai/bot/assistant -> assistant);
// anything else passes through unchanged.
func parseBubble(bubble any, idx int) (model.Message, bool) {
	b, ok := bubble.(map[string]any)
	if !ok {
		return model.Message{}, false
	}

	content, ok := firstString(b, "text", "content", "message")
	if !ok || strings.TrimSpace(content) == "" {
		return model.Message{}, false
	}

	role := "assistant"
	if r, ok := firstString(b, "type", "role"); ok {
		switch strings.ToLower(r) {
		case "user", "human":
			role = "user"
		case "assistant", "ai", "bot":
			role = "assistant"
		default:
			role = r
		}
	}

	var createdAt *int64
	if ts, ok := firstValue(b, "timestamp", "createdAt"); ok {
		if v, ok := ParseTimestamp(ts); ok {
			createdAt = &v
		}
	}

	author, _ := firstString(b, "model")
	extra, _ := json.Marshal(b)

	return model.Message{
		Idx:       idx,
		Role:      role,
		Author:    author,
		CreatedAt: createdAt,
		Content:   content,
		Extra:     json.RawMessage(extra),
	}, true
}
