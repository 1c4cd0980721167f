package connectors

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
)

// scanNestedDirRoot implements the nested-directory connector shape
// shared by cline and roo: one subdirectory per task under root, each
// holding up to three sibling JSON files whose message arrays are
// concatenated.
func scanNestedDirRoot(log *logging.Logger, agentSlug, root string) ([]model.Conversation, error) {
	if !dirExists(root) {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var convs []model.Conversation
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		taskDir := filepath.Join(root, entry.Name())
		taskID := entry.Name()

		var messages []model.Message
		for _, name := range []string{"ui_messages.json", "api_conversation_history.json"} {
			path := filepath.Join(taskDir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var items []map[string]any
			if err := json.Unmarshal(data, &items); err != nil {
				logWarn(log, "parse nested-dir messages", path, err)
				continue
			}
			for _, item := range items {
				role, _ := firstString(item, "role", "type")
				content, _ := firstString(item, "content", "text")
				if content == "" {
					continue
				}
				var createdAt *int64
				if ts, ok := firstValue(item, "timestamp", "created_at"); ok {
					if ms, ok := ParseTimestamp(ts); ok {
						createdAt = &ms
					}
				}
				if role == "" {
					role = "agent"
				}
				extra, _ := json.Marshal(item)
				messages = append(messages, model.Message{
					Role:      role,
					CreatedAt: createdAt,
					Content:   content,
					Extra:     json.RawMessage(extra),
				})
			}
		}
		if len(messages) == 0 {
			continue
		}

		title := readTaskTitle(filepath.Join(taskDir, "task_metadata.json"))

		conv := model.Conversation{
			AgentSlug:  agentSlug,
			ExternalID: taskID,
			Title:      title,
			SourcePath: taskDir,
			Messages:   messages,
		}
		conv.FilterEmpty()
		if conv.IsEmpty() {
			continue
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func readTaskTitle(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var meta struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return ""
	}
	return meta.Title
}

func firstString(m map[string]any, keys ...string) (string, bool) {
	if v, ok := firstValue(m, keys...); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

func firstValue(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
