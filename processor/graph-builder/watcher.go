package graphbuilder

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/octiron/ldcontext"
	"github.com/c360studio/octiron/source/loader"
)

const (
	// eventChannelBuffer is the number of batches the watcher may queue.
	eventChannelBuffer = 64

	// DefaultDebounce is the quiet period used when none is configured.
	DefaultDebounce = 500 * time.Millisecond
)

// WatchEvent represents a documentation file change.
type WatchEvent struct {
	// Path is the slash separated file path relative to the root.
	Path string

	// Operation is the type of change.
	Operation WatchOperation

	// AbsPath is the absolute file path.
	AbsPath string

	// Context is set for context files.
	Context bool
}

// WatchOperation indicates the type of file operation.
type WatchOperation string

// WatchOpCreate, WatchOpModify, and WatchOpDelete enumerate the file watch operation types.
const (
	WatchOpCreate WatchOperation = "create"
	WatchOpModify WatchOperation = "modify"
	WatchOpDelete WatchOperation = "delete"
)

// Watcher watches a documentation tree and emits debounced batches of
// changes to data and context files.
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Output channel
	events chan []WatchEvent

	droppedEvents atomic.Int64
}

// NewWatcher creates a watcher for the tree rooted at root.
func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		events:   make(chan []WatchEvent, eventChannelBuffer),
	}, nil
}

// Events returns the channel of change batches. It is closed when the
// context passed to Start is done or the watcher is stopped.
func (w *Watcher) Events() <-chan []WatchEvent {
	return w.events
}

// Start begins watching the root directory for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Document watcher started",
		"root", w.root,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of batches dropped due to channel overflow.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// addWatchesRecursive adds watches to all non-hidden directories.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.hidden(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	return err != nil || isHidden(filepath.ToSlash(rel))
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name
	if w.hidden(path) {
		return
	}

	if !ldcontext.IsContextFile(path) && loader.Select(path) == loader.KindNone {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Document change detected",
		"path", path,
		"op", event.Op.String())
}

// handleNewDirectory watches a newly created directory and queues the data
// files it already holds, which may have been written before the watch.
func (w *Watcher) handleNewDirectory(path string) {
	if err := w.addWatchesRecursive(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
		return
	}
	w.logger.Debug("Added watch for new directory", "path", path)

	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ldcontext.IsContextFile(p) || loader.Select(p) != loader.KindNone {
			w.pendingMu.Lock()
			w.pending[p] |= fsnotify.Create
			w.pendingMu.Unlock()
		}
		return nil
	})
}

// flushPending emits the accumulated changes as one batch, sorted by path.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	batch := make([]WatchEvent, 0, len(toProcess))
	for _, path := range slices.Sorted(maps.Keys(toProcess)) {
		op := toProcess[path]
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			continue
		}
		event := WatchEvent{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			Context: ldcontext.IsContextFile(path),
		}

		switch _, statErr := os.Stat(path); {
		case os.IsNotExist(statErr):
			event.Operation = WatchOpDelete
		case op.Has(fsnotify.Create):
			event.Operation = WatchOpCreate
		default:
			event.Operation = WatchOpModify
		}
		batch = append(batch, event)
	}

	select {
	case w.events <- batch:
		w.logger.Debug("Sent watch batch", "changes", len(batch))
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping batch",
			"changes", len(batch),
			"total_dropped", dropped)
	}
}
