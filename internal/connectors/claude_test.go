package connectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaudeConnector_Slug(t *testing.T) {
	assert.Equal(t, "claude", NewClaudeConnector(nil).Slug())
}

func TestClaudeConnector_Detect_UsesDataRootEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CASS_CLAUDE_DATA_ROOT", dir)

	result := NewClaudeConnector(nil).Detect()
	assert.True(t, result.Detected)
	assert.Equal(t, []string{dir}, result.RootPaths)
}

func TestClaudeConnector_Scan_WalksProjectSubdirectories(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "-root-some-project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	t.Setenv("CASS_CLAUDE_DATA_ROOT", dir)

	session := `{"type":"event_msg","timestamp":"2024-02-01T00:00:00Z","payload":{"type":"user_message","message":"hello claude"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(project, "session-1.jsonl"), []byte(session), 0o644))

	conn := NewClaudeConnector(nil)
	convs, err := conn.Scan(ScanContext{})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "claude", convs[0].AgentSlug)
	require.Len(t, convs[0].Messages, 1)
	assert.Equal(t, "hello claude", convs[0].Messages[0].Content)
}

func TestLooksLikeClaudeProjects(t *testing.T) {
	assert.True(t, looksLikeClaudeProjects("/home/user/.claude/projects"))
	assert.False(t, looksLikeClaudeProjects("/tmp/other"))
}
