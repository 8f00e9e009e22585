package source

import (
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher turns filesystem change notifications into invalidations of a
// Store's cached content state, driving the incremental engine's
// "source-file watching/rescanning model" (§2.9). It only watches *.ex
// files, matched with doublestar so a future version of this compiler
// that supports nested module directories doesn't need a new watcher.
type Watcher struct {
	store *Store
	fs    *fsnotify.Watcher

	mu      sync.Mutex
	dirs    map[string]bool
	onChange func(path string)
}

// NewWatcher constructs a Watcher over store. onChange is invoked
// (synchronously, from the Watcher's internal goroutine) whenever a
// watched *.ex file is created or written and [Store.Changed] reports
// that its content differs from what the Store last read; callers pass a
// closure that calls [incremental.Executor.Invalidate] with the file's
// query URL.
func NewWatcher(store *Store, onChange func(path string)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{store: store, fs: fs, dirs: map[string]bool{}, onChange: onChange}
	go w.loop()
	return w, nil
}

// Add starts watching the directory containing path (idempotent: adding a
// file whose directory is already watched is a no-op).
func (w *Watcher) Add(path string) error {
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			matched, err := doublestar.Match("*.ex", filepath.Base(event.Name))
			if err != nil || !matched {
				continue
			}

			id := w.store.FileID(event.Name)
			changed, err := w.store.Changed(id)
			if err != nil || !changed {
				continue
			}
			if w.onChange != nil {
				w.onChange(event.Name)
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}
