// Package watch implements the file-system watcher adapter — component
// G: a de-duplicating layer over fsnotify that collapses rapid duplicate
// modification events before they reach the handler, and recurses into
// subdirectories since fsnotify itself only watches the directories it's
// explicitly told about.
package watch

import (
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Gronis/wasmdev/internal/registry"
)

// Handler is invoked with the set of changed paths for one collapsed
// event. Exactly one goroutine per Watcher ever calls it, and never
// concurrently with itself.
type Handler func(paths []string)

// Watcher owns a recursive fsnotify watch plus the single consumer
// goroutine that serializes handler invocations. Close stops both.
type Watcher struct {
	fsw    *fsnotify.Watcher
	done   chan struct{}
	events chan string

	dedupMu   sync.Mutex
	active    uint32
	hasActive bool
	last      uint32
	hasLast   bool

	closeMu sync.Mutex
	closed  bool
}

// Watch starts watching root recursively, dispatching de-duplicated
// Modify events to handler. The returned Watcher's Close stops the
// underlying notifier and its consumer goroutine — the watcher token
// whose "drop" stops watching, per §4.G.
func Watch(root string, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(fsw, root); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		done:   make(chan struct{}),
		events: make(chan string),
	}

	go w.notifyLoop()
	go w.consumeLoop(handler)

	return w, nil
}

// Close stops the watcher and its consumer goroutine. Safe to call once.
func (w *Watcher) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return w.fsw.Close()
}

// notifyLoop is the fsnotify callback side: it filters to Modify events,
// applies the active/last dedup scheme from §4.G (ported from
// make_watcher), and enqueues surviving events to the single consumer
// goroutine.
func (w *Watcher) notifyLoop() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// Newly created directories must be watched too, since
				// fsnotify doesn't recurse on its own.
				addRecursive(w.fsw, event.Name)
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			w.maybeEnqueue(event.Name)
		case <-w.fsw.Errors:
			// Notifier errors are not part of the core contract here; the
			// watcher keeps running on whatever subscriptions remain.
		}
	}
}

func (w *Watcher) maybeEnqueue(path string) {
	hash := registry.HashBytes([]byte(path))

	w.dedupMu.Lock()
	if w.hasActive && hash == w.active {
		w.dedupMu.Unlock()
		return
	}
	if w.hasActive && w.hasLast && hash == w.last {
		w.dedupMu.Unlock()
		return
	}
	if !w.hasActive {
		w.active = hash
		w.hasActive = true
	}
	w.last = hash
	w.hasLast = true
	w.dedupMu.Unlock()

	select {
	case w.events <- path:
	case <-w.done:
	}
}

// consumeLoop is the single consumer goroutine: for each surviving event,
// set active to its hash, invoke handler, then clear active — matching the
// exact "set active, handle, clear active" sequence from make_watcher's
// consumer thread, so a distinct event queued behind an in-flight one still
// sees an up-to-date active slot rather than one stale from the event
// before it.
func (w *Watcher) consumeLoop(handler Handler) {
	for path := range w.events {
		hash := registry.HashBytes([]byte(path))

		w.dedupMu.Lock()
		w.active = hash
		w.hasActive = true
		w.dedupMu.Unlock()

		handler([]string{path})

		w.dedupMu.Lock()
		w.hasActive = false
		w.dedupMu.Unlock()
	}
}

// addRecursive adds root and every subdirectory beneath it to fsw.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
