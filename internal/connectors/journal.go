package connectors

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/model"
)

// journalEntry is one line of the envelope-form line-delimited JSON
// journal, or the parsed shape of a legacy single-object journal item.
type journalEntry struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// rolloutFiles walks sessionsDir for files named "rollout-*.jsonl" or
// "rollout-*.json" (legacy), matching the codex/claude sessions tree
// shape: {sessionsDir}/{date-sharded path}/rollout-<id>.jsonl.
func rolloutFiles(sessionsDir string) []string {
	var out []string
	if !dirExists(sessionsDir) {
		return out
	}
	_ = filepath.Walk(sessionsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, "rollout-") && (strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".json")) {
			out = append(out, path)
		}
		return nil
	})
	return out
}

// externalIDFromSessions derives an external ID unique across a
// date-sharded sessions tree: the path relative to sessionsDir with its
// extension stripped.
func externalIDFromSessions(sessionsDir, path string) string {
	rel, err := filepath.Rel(sessionsDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// parseJournalFile parses a single rollout file (envelope .jsonl or
// legacy .json) into a conversation for the given agent slug. Record
// parse errors are logged and the record skipped; a totally unparsable
// file returns an error.
func parseJournalFile(log *logging.Logger, agentSlug, path, externalID string) (model.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Conversation{}, err
	}

	var messages []model.Message
	var startedAt, endedAt *int64
	var workspace string

	update := func(ts *int64, cur **int64, preferNew bool) {
		if ts == nil {
			return
		}
		if *cur == nil || preferNew {
			*cur = ts
		}
	}

	if strings.HasSuffix(path, ".jsonl") {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var entry journalEntry
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				logWarn(log, "parse journal line", path, err)
				continue
			}
			ts := extractTimestamp(entry.Timestamp)

			switch entry.Type {
			case "session_meta":
				var payload struct {
					CWD string `json:"cwd"`
				}
				_ = json.Unmarshal(entry.Payload, &payload)
				if payload.CWD != "" {
					workspace = payload.CWD
				}
				update(ts, &startedAt, false)
			case "response_item":
				var payload struct {
					Role    string `json:"role"`
					Content any    `json:"content"`
				}
				if err := json.Unmarshal(entry.Payload, &payload); err != nil {
					logWarn(log, "parse response_item", path, err)
					continue
				}
				role := payload.Role
				if role == "" {
					role = "agent"
				}
				content := FlattenContent(payload.Content)
				if content == "" {
					continue
				}
				update(ts, &startedAt, false)
				update(ts, &endedAt, true)
				messages = append(messages, model.Message{Role: role, CreatedAt: ts, Content: content})
			case "event_msg":
				var payload struct {
					Type    string `json:"type"`
					Message string `json:"message"`
					Text    string `json:"text"`
				}
				if err := json.Unmarshal(entry.Payload, &payload); err != nil {
					logWarn(log, "parse event_msg", path, err)
					continue
				}
				switch payload.Type {
				case "user_message":
					if payload.Message == "" {
						continue
					}
					update(ts, &endedAt, true)
					messages = append(messages, model.Message{Role: "user", CreatedAt: ts, Content: payload.Message})
				case "agent_reasoning":
					if payload.Text == "" {
						continue
					}
					update(ts, &endedAt, true)
					messages = append(messages, model.Message{Role: "assistant", Author: "reasoning", CreatedAt: ts, Content: payload.Text})
				}
			}
		}
		if err := scanner.Err(); err != nil {
			return model.Conversation{}, err
		}
	} else {
		var legacy struct {
			Session struct {
				CWD string `json:"cwd"`
			} `json:"session"`
			Items []struct {
				Role      string          `json:"role"`
				Content   any             `json:"content"`
				Timestamp json.RawMessage `json:"timestamp"`
			} `json:"items"`
		}
		if err := json.Unmarshal(data, &legacy); err != nil {
			return model.Conversation{}, err
		}
		workspace = legacy.Session.CWD
		for _, item := range legacy.Items {
			content := FlattenContent(item.Content)
			if content == "" {
				continue
			}
			role := item.Role
			if role == "" {
				role = "agent"
			}
			ts := extractTimestamp(item.Timestamp)
			update(ts, &startedAt, false)
			update(ts, &endedAt, true)
			messages = append(messages, model.Message{Role: role, CreatedAt: ts, Content: content})
		}
	}

	conv := model.Conversation{
		AgentSlug:  agentSlug,
		ExternalID: externalID,
		Workspace:  workspace,
		SourcePath: path,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
		Messages:   messages,
	}
	conv.FilterEmpty()
	conv.DeriveTitle()
	return conv, nil
}

func extractTimestamp(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	ms, ok := ParseTimestamp(v)
	if !ok {
		return nil
	}
	return &ms
}
