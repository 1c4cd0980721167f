package indexer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fyrsmithlabs/cass/internal/connectors"
	"go.uber.org/zap"
)

// WatchRoot pairs a filesystem path worth watching with the connector slug
// it belongs to, so a change under that path re-triggers a scan of only
// that connector rather than a full Run across the registry.
type WatchRoot struct {
	Slug string
	Path string
}

// debounce coalesces the burst of fsnotify events a single save or git
// checkout produces into one rescan.
const debounce = 500 * time.Millisecond

// DetectWatchRoots runs Detect on every registered connector and flattens
// the detected root paths into a watch list. Connectors that aren't
// detected, or report no root paths, contribute nothing.
func DetectWatchRoots(registry *connectors.Registry) []WatchRoot {
	var roots []WatchRoot
	for _, c := range registry.All() {
		detection := c.Detect()
		if !detection.Detected {
			continue
		}
		for _, path := range detection.RootPaths {
			roots = append(roots, WatchRoot{Slug: c.Slug(), Path: path})
		}
	}
	return roots
}

// Watch watches roots with fsnotify and, on a debounced write under a
// root, rescans only the connector that root belongs to, emitting its
// ConnectorSummary on the returned channel. The channel is closed and
// watching stops when ctx is cancelled. Roots that no longer exist on disk
// are skipped rather than failing the whole watch.
func (d *Driver) Watch(ctx context.Context, registry *connectors.Registry, roots []WatchRoot, opts RunOptions) (<-chan ConnectorSummary, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("indexer: create watcher: %w", err)
	}

	pathSlug := make(map[string]string, len(roots))
	watched := 0
	for _, root := range roots {
		if _, err := os.Stat(root.Path); err != nil {
			continue
		}
		if err := watcher.Add(root.Path); err != nil {
			d.warn("watch add failed", root.Path, err)
			continue
		}
		pathSlug[root.Path] = root.Slug
		watched++
	}
	if watched == 0 {
		_ = watcher.Close()
		return nil, fmt.Errorf("indexer: no watchable roots among %d candidates", len(roots))
	}

	d.logWatchStart(roots)

	out := make(chan ConnectorSummary)
	go d.watchLoop(ctx, watcher, registry, pathSlug, opts, out)
	return out, nil
}

func (d *Driver) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, registry *connectors.Registry, pathSlug map[string]string, opts RunOptions, out chan<- ConnectorSummary) {
	defer watcher.Close()
	defer close(out)

	timers := make(map[string]*time.Timer)
	fire := make(chan string)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			slug, known := pathSlug[event.Name]
			if !known {
				slug, known = matchWatchedDir(pathSlug, event.Name)
				if !known {
					continue
				}
			}
			if t, exists := timers[slug]; exists {
				t.Stop()
			}
			timers[slug] = time.AfterFunc(debounce, func() {
				select {
				case fire <- slug:
				case <-ctx.Done():
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.warn("watch error", "", err)

		case slug := <-fire:
			c, ok := registry.Get(slug)
			if !ok {
				continue
			}
			writer, err := d.openWriter(opts)
			if err != nil {
				d.warn("watch rescan failed to open invindex", slug, err)
				continue
			}
			cs := d.runConnector(ctx, c, opts, writer)
			select {
			case out <- cs:
			case <-ctx.Done():
				return
			}
		}
	}
}

// matchWatchedDir finds the watched root that is a parent of path, since
// fsnotify events for files inside a watched directory carry the file's own
// path, not the directory's.
func matchWatchedDir(pathSlug map[string]string, path string) (string, bool) {
	for root, slug := range pathSlug {
		if strings.HasPrefix(path, strings.TrimRight(root, string(os.PathSeparator))+string(os.PathSeparator)) {
			return slug, true
		}
	}
	return "", false
}

func (d *Driver) logWatchStart(roots []WatchRoot) {
	if d.log == nil {
		return
	}
	d.log.Info(context.Background(), "watch started", zap.Int("roots", len(roots)))
}
