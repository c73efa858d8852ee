package registry

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the registry when its file changes on disk.
// Reload failures are logged, not fatal: a half-written file during an
// external edit should not take down a running session.
type Watcher struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// Watch starts watching the registry file for changes.
func Watch(r *Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors often replace files by rename,
	// which drops a watch on the file itself.
	if err := fsw.Add(filepath.Dir(r.Path())); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		registry: r,
		watcher:  fsw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var pending <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.registry.Path()) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce rapid write sequences from editors.
			pending = time.After(200 * time.Millisecond)
		case <-pending:
			pending = nil
			if err := w.registry.Reload(); err != nil {
				log.Printf("[registry] reload failed: %v", err)
			} else {
				log.Printf("[registry] reloaded %s", w.registry.Path())
			}
		case <-w.watcher.Errors:
			// Keep watching.
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.watcher.Close()
}
