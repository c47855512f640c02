package graphbuilder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor reads batches until every predicate has matched an event and
// returns the last matching event per predicate.
func waitFor(t *testing.T, w *Watcher, preds ...func(WatchEvent) bool) []WatchEvent {
	t.Helper()
	found := make([]WatchEvent, len(preds))
	matched := make([]bool, len(preds))
	remaining := len(preds)
	timeout := time.After(3 * time.Second)
	for remaining > 0 {
		select {
		case batch, ok := <-w.Events():
			if !ok {
				t.Fatal("events channel closed")
			}
			for _, e := range batch {
				for i, pred := range preds {
					if pred(e) {
						if !matched[i] {
							remaining--
						}
						matched[i] = true
						found[i] = e
					}
				}
			}
		case <-timeout:
			t.Fatalf("timed out with %d unmatched predicates", remaining)
		}
	}
	return found
}

func pathIs(rel string) func(WatchEvent) bool {
	return func(e WatchEvent) bool { return e.Path == rel }
}

func startWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, 50*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func TestWatcher_BatchesDataAndContextFiles(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "context.yaml"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.md"), []byte("---\ntitle: A\n---\n"), 0o644))

	events := waitFor(t, w, pathIs("page.md"), pathIs("context.yaml"))

	assert.False(t, events[0].Context)
	assert.Equal(t, filepath.Join(root, "page.md"), events[0].AbsPath)
	assert.True(t, events[1].Context)
}

func TestWatcher_NewDirectoryAndDelete(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	dir := filepath.Join(root, "guide")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// Let the watcher pick up the directory before writing into it.
	time.Sleep(150 * time.Millisecond)
	page := filepath.Join(dir, "setup.md")
	require.NoError(t, os.WriteFile(page, []byte("---\ntitle: Setup\n---\n"), 0o644))

	events := waitFor(t, w, pathIs("guide/setup.md"))
	assert.NotEqual(t, WatchOpDelete, events[0].Operation)

	require.NoError(t, os.Remove(page))
	waitFor(t, w, func(e WatchEvent) bool {
		return e.Path == "guide/setup.md" && e.Operation == WatchOpDelete
	})
}

func TestWatcher_SkipsHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	w := startWatcher(t, root)

	assert.True(t, w.hidden(filepath.Join(root, ".git", "page.md")))
	assert.False(t, w.hidden(filepath.Join(root, "docs", "page.md")))
	assert.False(t, w.hidden(root))
}

func TestWatcher_HandleFSEventFiltersUnknownFiles(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root, 0, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, ".obsidian", "page.md"), Op: fsnotify.Write})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "data.yaml"), Op: fsnotify.Create})
	w.handleFSEvent(fsnotify.Event{Name: filepath.Join(root, "data.yaml"), Op: fsnotify.Write})

	assert.Equal(t, DefaultDebounce, w.debounce)
	require.Len(t, w.pending, 1)
	assert.True(t, w.pending[filepath.Join(root, "data.yaml")].Has(fsnotify.Create))
}
