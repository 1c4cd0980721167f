package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyrsmithlabs/cass/internal/connectors"
	"github.com/fyrsmithlabs/cass/internal/model"
)

func TestDetectWatchRoots_SkipsUndetectedAndRootless(t *testing.T) {
	registry := connectors.NewRegistry()
	registry.Register(&fakeConnector{slug: "ghost", detected: false})
	registry.Register(&fakeConnector{slug: "codex", detected: true})

	roots := DetectWatchRoots(registry)
	if len(roots) != 0 {
		t.Fatalf("expected no roots from an undetected or root-less connector, got %+v", roots)
	}
}

// rootedConnector is a fakeConnector that also reports RootPaths from
// Detect, since fakeConnector itself always returns an empty DetectionResult
// on success.
type rootedConnector struct {
	fakeConnector
	roots []string
}

func (r *rootedConnector) Detect() connectors.DetectionResult {
	if !r.detected {
		return connectors.NotFound()
	}
	return connectors.DetectionResult{Detected: true, RootPaths: r.roots}
}

func TestDetectWatchRoots_FlattensRootPaths(t *testing.T) {
	registry := connectors.NewRegistry()
	registry.Register(&rootedConnector{
		fakeConnector: fakeConnector{slug: "codex", detected: true},
		roots:         []string{"/a", "/b"},
	})

	roots := DetectWatchRoots(registry)
	if len(roots) != 2 {
		t.Fatalf("expected 2 watch roots, got %+v", roots)
	}
	for _, r := range roots {
		if r.Slug != "codex" {
			t.Errorf("expected every root tagged with its connector's slug, got %+v", r)
		}
	}
}

func TestWatch_RescansOnWrite(t *testing.T) {
	dir := t.TempDir()
	sessionFile := filepath.Join(dir, "sess-1.jsonl")
	if err := os.WriteFile(sessionFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d, _ := newTestDriver(t)
	registry := connectors.NewRegistry()
	fc := &rootedConnector{
		fakeConnector: fakeConnector{
			slug:     "codex",
			detected: true,
			convs: []model.Conversation{{
				AgentSlug:  "codex",
				ExternalID: "sess-1",
				SourcePath: sessionFile,
				Messages:   []model.Message{{Idx: 0, Role: "user", Content: "hello from the watcher"}},
			}},
		},
		roots: []string{dir},
	}
	registry.Register(fc)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates, err := d.Watch(ctx, registry, DetectWatchRoots(registry), RunOptions{})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Give the watcher a moment to register before triggering a change.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(sessionFile, []byte(`{"updated":true}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case cs, ok := <-updates:
		if !ok {
			t.Fatal("updates channel closed before a rescan was observed")
		}
		if cs.Slug != "codex" {
			t.Errorf("expected rescan for codex, got %q", cs.Slug)
		}
		if cs.ConversationCount != 1 {
			t.Errorf("expected the rescan to upsert 1 conversation, got %d", cs.ConversationCount)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for a watch-triggered rescan")
	}

	cancel()
	if _, ok := <-updates; ok {
		t.Error("expected updates channel to close once ctx is cancelled")
	}
}

func TestWatch_ErrorsWhenNoRootExists(t *testing.T) {
	d, _ := newTestDriver(t)
	registry := connectors.NewRegistry()
	registry.Register(&fakeConnector{slug: "codex", detected: true})

	_, err := d.Watch(context.Background(), registry, []WatchRoot{{Slug: "codex", Path: "/does/not/exist"}}, RunOptions{})
	if err == nil {
		t.Fatal("expected an error when no candidate root exists on disk")
	}
}
