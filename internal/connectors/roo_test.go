package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooConnector_Slug(t *testing.T) {
	assert.Equal(t, "roo", NewRooConnector(nil).Slug())
}

func TestRooConnector_Scan_ReadsNestedTaskDirectories(t *testing.T) {
	dir := t.TempDir()
	writeNestedTask(t, dir, "task-9", `[{"role":"assistant","content":"hello from roo"}]`)

	conn := NewRooConnector(nil)
	convs, err := conn.Scan(ScanContext{DataRoot: dir, RootIsOverride: true})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "roo", convs[0].AgentSlug)
	assert.Equal(t, "task-9", convs[0].ExternalID)
}

func TestRooConnector_Scan_EmptyRootReturnsNoConversations(t *testing.T) {
	conn := NewRooConnector(nil)
	convs, err := conn.Scan(ScanContext{DataRoot: t.TempDir(), RootIsOverride: true})
	require.NoError(t, err)
	assert.Empty(t, convs)
}
