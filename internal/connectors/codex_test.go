package connectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodexConnector_Slug(t *testing.T) {
	assert.Equal(t, "codex", NewCodexConnector(nil).Slug())
}

func TestCodexConnector_Detect_UsesCodexHomeEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sessions"), 0o755))
	t.Setenv("CODEX_HOME", dir)

	result := NewCodexConnector(nil).Detect()
	assert.True(t, result.Detected)
	assert.Equal(t, []string{dir}, result.RootPaths)
}

func TestCodexConnector_Detect_NotFound(t *testing.T) {
	t.Setenv("CODEX_HOME", t.TempDir())
	assert.False(t, NewCodexConnector(nil).Detect().Detected)
}

func TestCodexConnector_Scan_ParsesRolloutJournal(t *testing.T) {
	dir := t.TempDir()
	sessions := filepath.Join(dir, "sessions", "2024", "01", "01")
	require.NoError(t, os.MkdirAll(sessions, 0o755))
	t.Setenv("CODEX_HOME", dir)

	rollout := `{"type":"session_meta","timestamp":"2024-01-01T00:00:00Z","payload":{"cwd":"/work"}}
{"type":"event_msg","timestamp":"2024-01-01T00:00:01Z","payload":{"type":"user_message","message":"hello codex"}}
{"type":"response_item","timestamp":"2024-01-01T00:00:02Z","payload":{"role":"assistant","content":"hi there"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(sessions, "rollout-1.jsonl"), []byte(rollout), 0o644))

	conn := NewCodexConnector(nil)
	convs, err := conn.Scan(ScanContext{})
	require.NoError(t, err)
	require.Len(t, convs, 1)

	conv := convs[0]
	assert.Equal(t, "codex", conv.AgentSlug)
	assert.Equal(t, "/work", conv.Workspace)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "user", conv.Messages[0].Role)
	assert.Equal(t, "assistant", conv.Messages[1].Role)
}

func TestCodexConnector_Scan_TrailingUnemittedLineDoesNotAdvanceEndedAt(t *testing.T) {
	dir := t.TempDir()
	sessions := filepath.Join(dir, "sessions", "2024", "01", "01")
	require.NoError(t, os.MkdirAll(sessions, 0o755))
	t.Setenv("CODEX_HOME", dir)

	// token_count carries a later timestamp than the last emitted message
	// but isn't a message-producing entry type, so it must not move
	// ended_at forward: ended_at only advances on types that emit a
	// message (response_item, event_msg/user_message,
	// event_msg/agent_reasoning), matching journal.go's update() calls.
	rollout := `{"type":"session_meta","timestamp":"2024-01-01T00:00:00Z","payload":{"cwd":"/work"}}
{"type":"event_msg","timestamp":"2024-01-01T00:00:01Z","payload":{"type":"user_message","message":"hello codex"}}
{"type":"response_item","timestamp":"2024-01-01T00:00:02Z","payload":{"role":"assistant","content":"hi there"}}
{"type":"token_count","timestamp":"2024-01-01T00:00:03Z","payload":{"count":42}}
`
	require.NoError(t, os.WriteFile(filepath.Join(sessions, "rollout-1.jsonl"), []byte(rollout), 0o644))

	conn := NewCodexConnector(nil)
	convs, err := conn.Scan(ScanContext{})
	require.NoError(t, err)
	require.Len(t, convs, 1)

	conv := convs[0]
	require.NotNil(t, conv.EndedAt)
	assert.Equal(t, int64(1704067202000), *conv.EndedAt)
}

func TestLooksLikeCodexHome(t *testing.T) {
	assert.True(t, looksLikeCodexHome("/home/user/.codex"))
	assert.True(t, looksLikeCodexHome(`C:\Users\user\codex`))
	assert.False(t, looksLikeCodexHome("/tmp/other"))
}
