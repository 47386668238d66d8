// Package watch implements a debounced file-system observer, grounded on
// the prior fsnotify-based fileWatcher (internal/watcher/file_watcher.go):
// recursive directory registration, a trailing-edge debounce timer, and a
// pause/resume seam for callers that need to quiesce eventing during a bulk
// reindex. It is generalized from a single directory tree with an extension
// allowlist to multiple named Sources, each resolving its own events back to
// (source_id, relative_path), and from a fixed 500ms debounce to a
// configurable quiet period D (default 30s) with delete events dispatched
// immediately.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mvp-joe/semsearchd/internal/logging"
	"github.com/mvp-joe/semsearchd/internal/source"
)

// EventKind classifies a dispatched change for the Handler.
type EventKind int

const (
	// KindChanged covers both create and modify: index_single is re-run.
	KindChanged EventKind = iota
	// KindRemoved means the file is gone: remove_file runs immediately,
	// with no debounce.
	KindRemoved
)

// Event is one dispatched, debounce-resolved change.
type Event struct {
	Kind         EventKind
	SourceID     string
	RelativePath string
}

// Handler is invoked once per resolved event, after debounce for
// KindChanged or immediately for KindRemoved.
type Handler func(Event)

// denyList excludes names that would otherwise cause feedback loops, such as
// the service's own log file living under a watched source.
var denyList = map[string]bool{
	"semsearchd.log": true,
}

const skipDirNames = ".git,node_modules,.semsearch"

func isSkippedDir(name string) bool {
	for _, skip := range strings.Split(skipDirNames, ",") {
		if name == skip {
			return true
		}
	}
	return false
}

// Watcher monitors every configured source root and dispatches resolved
// events to a Handler after a trailing-edge debounce.
type Watcher struct {
	sources  []*source.Source
	debounce time.Duration
	handler  Handler
	log      logging.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	paused  bool
	pending map[pendingKey]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type pendingKey struct {
	sourceID     string
	relativePath string
}

// New builds a Watcher over sources, dispatching debounced events to
// handler. debounce is the trailing-edge quiet period; a
// value <= 0 defaults to 30 seconds.
func New(sources []*source.Source, debounce time.Duration, handler Handler, log logging.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 30 * time.Second
	}
	if log == nil {
		log = logging.Nop{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		sources:  sources,
		debounce: debounce,
		handler:  handler,
		log:      log,
		fsw:      fsw,
		pending:  make(map[pendingKey]time.Time),
		done:     make(chan struct{}),
	}

	for _, s := range sources {
		if err := w.addRecursive(s.RootPath); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if isSkippedDir(filepath.Base(path)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Start begins the event loop and the debounce ticker, both stopped by ctx
// cancellation or Stop.
func (w *Watcher) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	go w.run()
}

// Stop halts the event loop and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return w.fsw.Close()
}

// Pause stops debounced dispatch while continuing to accumulate events.
// Removals and renames are still dispatched immediately while paused.
func (w *Watcher) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
}

// Resume re-enables dispatch. Events accumulated while paused are still
// subject to the normal debounce once resumed.
func (w *Watcher) Resume() {
	w.mu.Lock()
	w.paused = false
	w.mu.Unlock()
}

func (w *Watcher) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.debounce / 6)
	if w.debounce < 6*time.Second {
		ticker = time.NewTicker(time.Second)
	}
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watch error: %v", err)

		case <-ticker.C:
			w.flushExpired()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) == "" {
		return
	}
	if denyList[filepath.Base(event.Name)] {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !isSkippedDir(filepath.Base(event.Name)) {
				if err := w.addRecursive(event.Name); err != nil {
					w.log.Warnf("failed to watch new directory %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	sourceID, relPath, ok := w.resolve(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Op&fsnotify.Remove != 0:
		// Delete dispatches immediately, no debounce: the file is gone,
		// nothing to coalesce.
		w.mu.Lock()
		delete(w.pending, pendingKey{sourceID, relPath})
		w.mu.Unlock()
		w.dispatch(Event{Kind: KindRemoved, SourceID: sourceID, RelativePath: relPath})

	case event.Op&fsnotify.Rename != 0:
		// fsnotify reports a move as a Rename on the old path; the create
		// at the new path arrives as a separate Create event. Treating
		// Rename as an explicit removal (rather than waiting for it to
		// debounce away) prevents a ghost entry for the old path lingering
		// until the next flush.
		w.mu.Lock()
		delete(w.pending, pendingKey{sourceID, relPath})
		w.mu.Unlock()
		w.dispatch(Event{Kind: KindRemoved, SourceID: sourceID, RelativePath: relPath})

	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		w.mu.Lock()
		w.pending[pendingKey{sourceID, relPath}] = time.Now()
		w.mu.Unlock()
	}
}

func (w *Watcher) flushExpired() {
	w.mu.Lock()
	if w.paused {
		w.mu.Unlock()
		return
	}

	now := time.Now()
	var expired []pendingKey
	for k, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			expired = append(expired, k)
		}
	}
	for _, k := range expired {
		delete(w.pending, k)
	}
	w.mu.Unlock()

	for _, k := range expired {
		w.dispatch(Event{Kind: KindChanged, SourceID: k.sourceID, RelativePath: k.relativePath})
	}
}

func (w *Watcher) dispatch(e Event) {
	if w.handler != nil {
		w.handler(e)
	}
}

// resolve maps an absolute filesystem path back to the (source_id,
// relative_path) of whichever configured source contains it.
func (w *Watcher) resolve(absPath string) (sourceID, relativePath string, ok bool) {
	for _, s := range w.sources {
		rel, err := filepath.Rel(s.RootPath, absPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		return s.ID, filepath.ToSlash(rel), true
	}
	return "", "", false
}
